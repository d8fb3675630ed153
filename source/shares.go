// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"context"
	"sync"
)

// ShareVerifier gates data access arriving through a public share link.
// A nil error means the share exists, is enabled, and references the
// requested source.
type ShareVerifier interface {
	VerifyShareAccess(ctx context.Context, sourceID, shareID string) error
}

// Share is a published dashboard: a toggle plus the set of source IDs its
// widgets draw from.
type Share struct {
	ID      string
	Enabled bool
	Sources map[string]bool
}

// ShareRegistry is the in-process ShareVerifier implementation.
type ShareRegistry struct {
	lock   sync.RWMutex
	shares map[string]Share
}

func NewShareRegistry() *ShareRegistry {
	return &ShareRegistry{shares: make(map[string]Share)}
}

func (s *ShareRegistry) Put(share Share) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.shares[share.ID] = share
}

func (s *ShareRegistry) Delete(shareID string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.shares, shareID)
}

// VerifyShareAccess satisfies ShareVerifier. It fails NotFound for an
// unknown share or a source no widget on the share references, and
// Forbidden for a share that has been disabled.
func (s *ShareRegistry) VerifyShareAccess(_ context.Context, sourceID, shareID string) error {
	s.lock.RLock()
	defer s.lock.RUnlock()

	share, ok := s.shares[shareID]
	if !ok {
		return NotFoundErr{What: "share", ID: shareID}
	}
	if !share.Enabled {
		return ForbiddenErr{Message: "share " + shareID + " is disabled"}
	}
	if !share.Sources[sourceID] {
		return NotFoundErr{What: "shared source", ID: sourceID}
	}
	return nil
}
