// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

const (
	appendOperation = `
		INSERT INTO pending_operations (user_id, op_id, entry, created_at)
		VALUES (?, ?, ?, ?);`

	replaceOperation = `
		UPDATE pending_operations
		SET entry = ?
		WHERE user_id = ? AND op_id = ?;`

	deleteOperation = `
		DELETE FROM pending_operations
		WHERE user_id = ? AND op_id = ?;`

	listOperations = `
		SELECT entry
		FROM pending_operations
		WHERE user_id = ?
		ORDER BY seq;`

	saveMirror = `
		INSERT INTO collection_mirror (user_id, collection, records, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, collection)
		DO UPDATE SET records = excluded.records, updated_at = excluded.updated_at;`

	loadMirror = `
		SELECT records
		FROM collection_mirror
		WHERE user_id = ? AND collection = ?;`

	saveIDMapping = `
		INSERT INTO id_mappings (user_id, temp_id, server_id, collection, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, temp_id)
		DO UPDATE SET server_id = excluded.server_id;`

	listIDMappings = `
		SELECT temp_id, server_id
		FROM id_mappings
		WHERE user_id = ?;`

	clearIDMappings = `
		DELETE FROM id_mappings
		WHERE user_id = ?;`
)
