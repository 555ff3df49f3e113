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

package dispatcher

import (
	"sync"

	"github.com/lumenwall/lumenwall/pkg/protocol"
)

// pendingReplies pairs request envelopes with their replies by correlation
// id. A reply that arrives after its waiter gave up, or that carries no
// correlation id anyone registered, is discarded by the caller's timeout.
type pendingReplies struct {
	mu      sync.Mutex
	waiters map[string]chan *protocol.Envelope
}

func newPendingReplies() *pendingReplies {
	return &pendingReplies{
		waiters: make(map[string]chan *protocol.Envelope),
	}
}

func (p *pendingReplies) register(correlationID string) (<-chan *protocol.Envelope, func()) {
	ch := make(chan *protocol.Envelope, 1)

	p.mu.Lock()
	p.waiters[correlationID] = ch
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		delete(p.waiters, correlationID)
		p.mu.Unlock()
	}

	return ch, cancel
}

// deliver hands env to the waiter registered for its correlation id.
// Returns false when nobody is waiting, leaving the envelope to normal
// handler dispatch.
func (p *pendingReplies) deliver(env *protocol.Envelope) bool {
	p.mu.Lock()
	ch, ok := p.waiters[env.CorrelationID]
	if ok {
		delete(p.waiters, env.CorrelationID)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}

	ch <- env

	return true
}
