// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides the transport between a sync client and the
// records backend.
//
// The primary abstraction is [Gateway], which decouples the sync engine from
// the underlying protocol. The package ships a REST implementation over
// resty with websocket push subscriptions ([NewHTTPGateway]).
//
// Every error returned by a Gateway is classified with an [app.Kind] by
// mapHTTPError so that callers branch on the kind instead of on status
// codes.
package adapter

import (
	"context"

	"github.com/MKhiriev/go-sync-keeper/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/gateway_mock.go -package=mock

// Gateway is the client-side view of the records backend.
type Gateway interface {
	// Fetch returns every record of collection owned by userID. Fails with a
	// network or auth error.
	Fetch(ctx context.Context, collection models.Collection, userID string) ([]models.Record, error)

	// Insert creates a record from payload and returns it with the id the
	// server assigned. Fails with a network, conflict, validation or auth
	// error.
	Insert(ctx context.Context, collection models.Collection, payload models.Record) (models.Record, error)

	// Update merges patch into the record with the given id and returns the
	// stored result.
	Update(ctx context.Context, collection models.Collection, id string, patch models.Record) (models.Record, error)

	// Delete removes the record with the given id. Deleting a record that
	// does not exist succeeds.
	Delete(ctx context.Context, collection models.Collection, id string) error

	// Subscribe opens the push channel of collection. Delivery is
	// at-least-once; malformed envelopes are dropped.
	Subscribe(ctx context.Context, collection models.Collection, userID string) (Subscription, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Subscription is an open push channel of one collection.
type Subscription interface {
	// Events yields change events until the subscription ends. The channel
	// is closed after the reader goroutine exits.
	Events() <-chan models.ChangeEvent

	// Done is closed once the subscription has ended for any reason.
	Done() <-chan struct{}

	// Err returns the failure that ended the subscription, or nil if it was
	// closed locally.
	Err() error

	// Close ends the subscription and blocks until the reader goroutine has
	// exited. It is safe to call more than once.
	Close() error
}
