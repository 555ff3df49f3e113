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

// Package protocol defines the envelope format exchanged between the
// coordinator and display clients. Envelopes are JSON, one per websocket
// text frame, self-describing via the Type tag. Receivers must ignore
// envelope kinds they do not recognize so newer peers can talk to older
// ones.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates envelope payloads.
type Kind string

const (
	KindHello         Kind = "hello"
	KindHelloAck      Kind = "hello_ack"
	KindHeartbeat     Kind = "heartbeat"
	KindHeartbeatAck  Kind = "heartbeat_ack"
	KindContentPush   Kind = "content_push"
	KindCommand       Kind = "command"
	KindCommandResult Kind = "command_result"
	KindStatusReport  Kind = "status_report"
)

// knownKinds is the set a receiver dispatches on; anything else is ignored.
var knownKinds = map[Kind]struct{}{
	KindHello:         {},
	KindHelloAck:      {},
	KindHeartbeat:     {},
	KindHeartbeatAck:  {},
	KindContentPush:   {},
	KindCommand:       {},
	KindCommandResult: {},
	KindStatusReport:  {},
}

// Known reports whether k is an envelope kind this build understands.
func Known(k Kind) bool {
	_, ok := knownKinds[k]
	return ok
}

// Envelope is one discrete protocol message. Immutable once sent.
type Envelope struct {
	Type          Kind            `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// New builds an envelope of the given kind around payload.
func New(kind Kind, payload interface{}) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %s payload: %w", ErrProtocol, kind, err)
	}

	return &Envelope{
		Type:      kind,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// NewRequest builds an envelope carrying a fresh correlation id so the
// sender can pair the eventual reply.
func NewRequest(kind Kind, payload interface{}) (*Envelope, error) {
	env, err := New(kind, payload)
	if err != nil {
		return nil, err
	}

	env.CorrelationID = uuid.NewString()

	return env, nil
}

// Reply builds a response envelope reusing the request's correlation id.
func Reply(req *Envelope, kind Kind, payload interface{}) (*Envelope, error) {
	env, err := New(kind, payload)
	if err != nil {
		return nil, err
	}

	env.CorrelationID = req.CorrelationID

	return env, nil
}

// Encode serializes the envelope for the wire.
func Encode(env *Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: encode envelope: %w", ErrProtocol, err)
	}

	return data, nil
}

// Decode parses a wire frame into an Envelope. The payload stays raw; use
// DecodePayload once the kind has been matched.
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %w", ErrProtocol, err)
	}

	if env.Type == "" {
		return nil, fmt.Errorf("%w: envelope missing type", ErrProtocol)
	}

	return &env, nil
}

// DecodePayload unmarshals the envelope payload into dst.
func DecodePayload(env *Envelope, dst interface{}) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%w: %s envelope has no payload", ErrProtocol, env.Type)
	}

	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%w: decode %s payload: %w", ErrProtocol, env.Type, err)
	}

	return nil
}
