// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OperationKind is the type of a queued mutation.
type OperationKind string

const (
	OperationInsert OperationKind = "INSERT"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
)

// Valid reports whether k is one of the three supported kinds.
func (k OperationKind) Valid() bool {
	switch k {
	case OperationInsert, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Keys of the UPDATE payload.
const (
	updateDataField = "updateData"
)

// PendingOperation is a mutation that has not been confirmed by the server.
// The JSON form is what the durable queue persists; every entry is
// self-contained so a restarted process can replay it without any other
// state.
//
//	INSERT  data = full record payload (id is the temporary id)
//	UPDATE  data = {"id": <target>, "updateData": <patch>}
//	DELETE  data = {"id": <target>}
type PendingOperation struct {
	ID         string        `json:"id"`
	Collection Collection    `json:"table"`
	Kind       OperationKind `json:"operation"`
	Data       Record        `json:"data"`
	// Timestamp is the enqueue time in unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewInsertOperation builds the queue entry of an optimistic insert. The
// record must already carry its temporary id.
func NewInsertOperation(c Collection, record Record, now time.Time) PendingOperation {
	id := record.ID()
	return PendingOperation{
		ID:         "op-" + id,
		Collection: c,
		Kind:       OperationInsert,
		Data:       record.Clone(),
		Timestamp:  now.UnixMilli(),
	}
}

// NewUpdateOperation builds the queue entry of a patch against id.
func NewUpdateOperation(c Collection, id string, patch Record, now time.Time) PendingOperation {
	return PendingOperation{
		ID:         operationID(OperationUpdate, id, now),
		Collection: c,
		Kind:       OperationUpdate,
		Data: Record{
			IDField:         id,
			updateDataField: map[string]any(patch.WithoutID()),
		},
		Timestamp: now.UnixMilli(),
	}
}

// NewDeleteOperation builds the queue entry of a removal of id.
func NewDeleteOperation(c Collection, id string, now time.Time) PendingOperation {
	return PendingOperation{
		ID:         operationID(OperationDelete, id, now),
		Collection: c,
		Kind:       OperationDelete,
		Data:       Record{IDField: id},
		Timestamp:  now.UnixMilli(),
	}
}

func operationID(kind OperationKind, target string, now time.Time) string {
	return "op-" + strings.ToLower(string(kind)) + "-" + target + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// TargetID returns the id of the record the operation acts on.
func (op PendingOperation) TargetID() string {
	return op.Data.ID()
}

// Patch returns the field changes of an UPDATE. For other kinds it returns nil.
func (op PendingOperation) Patch() Record {
	if op.Kind != OperationUpdate {
		return nil
	}
	switch p := op.Data[updateDataField].(type) {
	case Record:
		return p.Clone()
	case map[string]any:
		return Record(p).Clone()
	}
	return Record{}
}

// Payload returns the body sent to the server for an INSERT: the queued
// record without its temporary id.
func (op PendingOperation) Payload() Record {
	if op.Kind != OperationInsert {
		return nil
	}
	return op.Data.WithoutID()
}

// Dependencies lists the temporary ids the operation references other than
// the one it creates itself.
func (op PendingOperation) Dependencies() []string {
	own := ""
	if op.Kind == OperationInsert {
		own = op.TargetID()
	}

	var deps []string
	for _, id := range TempIDsIn(op.Data) {
		if id != own {
			deps = append(deps, id)
		}
	}
	return deps
}

// RewriteID returns a copy of op with every occurrence of tempID replaced by
// serverID. When op is the INSERT that created tempID, its operation id is
// kept so that it can still be removed from the queue.
func (op PendingOperation) RewriteID(tempID, serverID string) (PendingOperation, bool) {
	rewritten, changed := op.Data.ReplaceIDs(map[string]string{tempID: serverID})
	if !changed {
		return op, false
	}
	op.Data = rewritten
	return op, true
}

// Validate checks the structural invariants of a queue entry loaded from
// durable storage.
func (op PendingOperation) Validate() error {
	if op.ID == "" {
		return fmt.Errorf("operation without id")
	}
	if !op.Collection.Valid() {
		return fmt.Errorf("operation %s: %w: %q", op.ID, ErrUnknownCollection, op.Collection)
	}
	if !op.Kind.Valid() {
		return fmt.Errorf("operation %s: unknown kind %q", op.ID, op.Kind)
	}
	if op.Kind != OperationInsert && op.TargetID() == "" {
		return fmt.Errorf("operation %s: missing target id", op.ID)
	}
	return nil
}
