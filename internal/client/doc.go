// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client assembles the offline-first sync runtime of one user.
//
// An App owns the local durable store, the REST/WebSocket gateway, the
// connectivity probe, the snapshot cache, the operation queue and the sync
// coordinator that ties them together. Commands and long-running processes
// talk to the coordinator; the App only manages the lifecycle.
package client
