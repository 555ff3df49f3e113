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

// Package resolver turns a content id into the key/value data a display
// renders. Two implementations ship: a static map from configuration and an
// HTTP client against an upstream content service.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lumenwall/lumenwall/pkg/logger"
	"github.com/lumenwall/lumenwall/pkg/models"
)

const defaultHTTPTimeout = 10 * time.Second

// Config selects and tunes the resolver. A non-empty URL selects the HTTP
// resolver; otherwise the static content map serves.
type Config struct {
	// URL is the upstream content service base. Content data is fetched
	// from URL/content/{id} as a JSON string map.
	URL     string          `json:"url,omitempty"`
	Timeout models.Duration `json:"timeout,omitempty"`

	// Static maps content ids to their rendered data directly in the
	// coordinator config. Useful for small fixed fleets and testing.
	Static map[string]map[string]string `json:"static,omitempty"`
}

// Resolver resolves a content id to display data.
type Resolver interface {
	Resolve(ctx context.Context, contentID string) (map[string]string, error)
}

// New builds the resolver the config selects.
func New(cfg Config, log logger.Logger) Resolver {
	if cfg.URL != "" {
		timeout := cfg.Timeout.Duration()
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}

		return &HTTPResolver{
			baseURL: cfg.URL,
			client:  &http.Client{Timeout: timeout},
			logger:  log,
		}
	}

	return &StaticResolver{Content: cfg.Static}
}

// StaticResolver serves content data from a fixed in-memory map.
type StaticResolver struct {
	Content map[string]map[string]string
}

func (r *StaticResolver) Resolve(_ context.Context, contentID string) (map[string]string, error) {
	data, ok := r.Content[contentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContent, contentID)
	}

	out := make(map[string]string, len(data))
	for k, v := range data {
		out[k] = v
	}

	return out, nil
}

// HTTPResolver fetches content data from an upstream service.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	logger  logger.Logger
}

func (r *HTTPResolver) Resolve(ctx context.Context, contentID string) (map[string]string, error) {
	u, err := url.JoinPath(r.baseURL, "content", contentID)
	if err != nil {
		return nil, fmt.Errorf("building content url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building content request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching content %s: %w", contentID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContent, contentID)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching content %s: unexpected status %d", contentID, resp.StatusCode)
	}

	var data map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding content %s: %w", contentID, err)
	}

	return data, nil
}
