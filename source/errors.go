// SPDX-FileCopyrightText: 2025 The quarry Authors
// SPDX-License-Identifier: Apache-2.0

package source

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/glowdash/quarry/fetch"
)

// NotFoundErr flags an absent source config, share, or share/source link.
type NotFoundErr struct {
	What string
	ID   string
}

func (nfe NotFoundErr) Error() string {
	return fmt.Sprintf("%s %q not found", nfe.What, nfe.ID)
}

func (nfe NotFoundErr) StatusCode() int {
	return http.StatusNotFound
}

// ForbiddenErr flags a share-based access check failure.
type ForbiddenErr struct {
	Message string
}

func (fe ForbiddenErr) Error() string {
	return fe.Message
}

func (fe ForbiddenErr) StatusCode() int {
	return http.StatusForbidden
}

// BadRequestErr flags a malformed or semantically invalid request.
type BadRequestErr struct {
	Message string
}

func (bre BadRequestErr) Error() string {
	return bre.Message
}

func (bre BadRequestErr) StatusCode() int {
	return http.StatusBadRequest
}

// BadConfigErr flags a source whose stored configuration cannot support
// the requested operation.
type BadConfigErr struct {
	Reason error
}

func (bce BadConfigErr) Error() string {
	return bce.Reason.Error()
}

func (bce BadConfigErr) Unwrap() error {
	return bce.Reason
}

func (bce BadConfigErr) StatusCode() int {
	return http.StatusBadRequest
}

// FetchErr flags a failed upstream fetch.
type FetchErr struct {
	Reason error
}

func (fe FetchErr) Error() string {
	return fe.Reason.Error()
}

func (fe FetchErr) Unwrap() error {
	return fe.Reason
}

func (fe FetchErr) StatusCode() int {
	return http.StatusBadGateway
}

// sanitizeFetchError maps backend failures onto the service taxonomy.
// Errors that already carry a status pass through unchanged.
func sanitizeFetchError(err error) error {
	if err == nil {
		return nil
	}
	var alreadyCoded interface{ StatusCode() int }
	if errors.As(err, &alreadyCoded) {
		return err
	}
	if errors.Is(err, fetch.ErrBadConfig) || errors.Is(err, fetch.ErrUnsupportedKind) {
		return BadConfigErr{Reason: err}
	}
	return FetchErr{Reason: err}
}
