/*
 * Copyright 2026 Lumenwall Systems, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumenwall/lumenwall/pkg/dispatcher"
	"github.com/lumenwall/lumenwall/pkg/protocol"
)

// registerAPIRoutes mounts the operator surface next to the websocket
// endpoint. The layout editor and credential UI live elsewhere and talk to
// these routes.
func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/clients", s.apiListClients)
	mux.HandleFunc("GET /api/clients/{id}", s.apiGetClient)
	mux.HandleFunc("POST /api/clients/{id}/assign", s.apiAssign)
	mux.HandleFunc("POST /api/clients/{id}/command", s.apiCommand)
}

func (s *Server) apiListClients(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.clients.List())
}

func (s *Server) apiGetClient(w http.ResponseWriter, r *http.Request) {
	client := s.clients.Get(r.PathValue("id"))
	if client == nil {
		writeError(w, "unknown client", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, client)
}

func (s *Server) apiAssign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ContentID string `json:"content_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.Assign(r.Context(), r.PathValue("id"), body.ContentID); err != nil {
		if errors.Is(err, ErrUnknownClient) {
			writeError(w, err.Error(), http.StatusNotFound)
			return
		}

		writeError(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) apiCommand(w http.ResponseWriter, r *http.Request) {
	var cmd protocol.Command

	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil || cmd.Name == "" {
		writeError(w, "invalid command body", http.StatusBadRequest)
		return
	}

	result, err := s.SendCommand(r.Context(), r.PathValue("id"), cmd)

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, ErrNotAuthorized):
		writeError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, dispatcher.ErrNotConnected):
		writeError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrCommandTimeout):
		writeError(w, err.Error(), http.StatusGatewayTimeout)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
