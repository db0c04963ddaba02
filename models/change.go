// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"errors"
	"fmt"
)

// ChangeKind is the type of a server-pushed change notification.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "INSERT"
	ChangeUpdate ChangeKind = "UPDATE"
	ChangeDelete ChangeKind = "DELETE"
)

// ErrMalformedChange is returned by [ChangeEvent.Validate] for envelopes that
// must be dropped.
var ErrMalformedChange = errors.New("malformed change event")

// ChangeEvent is the push envelope {kind, collection, record}. For DELETE the
// record carries at least the id of the removed entry.
type ChangeEvent struct {
	Kind       ChangeKind `json:"kind"`
	Collection Collection `json:"collection"`
	Record     Record     `json:"record"`
}

// Validate rejects envelopes with an unknown kind or collection, or without a
// record id.
func (e ChangeEvent) Validate() error {
	switch e.Kind {
	case ChangeInsert, ChangeUpdate, ChangeDelete:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedChange, e.Kind)
	}
	if !e.Collection.Valid() {
		return fmt.Errorf("%w: unknown collection %q", ErrMalformedChange, e.Collection)
	}
	if e.Record.ID() == "" {
		return fmt.Errorf("%w: record without id", ErrMalformedChange)
	}
	return nil
}
