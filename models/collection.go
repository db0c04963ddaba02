// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCollection is returned when a collection name is not part of the
// static registry.
var ErrUnknownCollection = errors.New("unknown collection")

// Collection is the name of a partition of records ("accounts",
// "transactions", ...). Each collection has its own cache state, queue
// ordering and push channel.
type Collection string

const (
	Accounts     Collection = "accounts"
	Transactions Collection = "transactions"
	Categories   Collection = "categories"
	Budgets      Collection = "budgets"
	Goals        Collection = "goals"
)

// registry is the closed set of collections the engine and the backend
// agree on. Names coming from the outside are validated against it.
var registry = []Collection{Accounts, Transactions, Categories, Budgets, Goals}

// Collections returns every registered collection in registry order.
func Collections() []Collection {
	out := make([]Collection, len(registry))
	copy(out, registry)
	return out
}

// ParseCollection validates name against the registry.
func ParseCollection(name string) (Collection, error) {
	c := Collection(strings.TrimSpace(name))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// Valid reports whether c is a registered collection.
func (c Collection) Valid() bool {
	for _, r := range registry {
		if r == c {
			return true
		}
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}
