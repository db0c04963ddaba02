package cache

import "github.com/MKhiriev/go-sync-keeper/models"

// The helpers below never modify their input slice. When nothing changes
// they return the input and false so callers can skip publishing.

func indexOf(records []models.Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// Upsert inserts record, or replaces the entry with the same id.
func Upsert(records []models.Record, record models.Record) ([]models.Record, bool) {
	id := record.ID()
	if id == "" {
		return records, false
	}

	i := indexOf(records, id)
	if i < 0 {
		out := make([]models.Record, len(records), len(records)+1)
		copy(out, records)
		return append(out, record.Clone()), true
	}
	if records[i].Equal(record) {
		return records, false
	}

	out := make([]models.Record, len(records))
	copy(out, records)
	out[i] = record.Clone()
	return out, true
}

// Patch merges patch into the entry with the given id. Unknown ids are a
// no-op.
func Patch(records []models.Record, id string, patch models.Record) ([]models.Record, bool) {
	i := indexOf(records, id)
	if i < 0 {
		return records, false
	}

	merged := records[i].Merge(patch)
	if merged.Equal(records[i]) {
		return records, false
	}

	out := make([]models.Record, len(records))
	copy(out, records)
	out[i] = merged
	return out, true
}

// Replace swaps the entry with the given id for record. Unknown ids are a
// no-op.
func Replace(records []models.Record, id string, record models.Record) ([]models.Record, bool) {
	i := indexOf(records, id)
	if i < 0 || records[i].Equal(record) {
		return records, false
	}

	out := make([]models.Record, len(records))
	copy(out, records)
	out[i] = record.Clone()
	return out, true
}

// Remove drops the entry with the given id. Unknown ids are a no-op.
func Remove(records []models.Record, id string) ([]models.Record, bool) {
	i := indexOf(records, id)
	if i < 0 {
		return records, false
	}

	out := make([]models.Record, 0, len(records)-1)
	out = append(out, records[:i]...)
	return append(out, records[i+1:]...), true
}

// ApplyEvent merges a pushed change. INSERT upserts, UPDATE replaces a known
// entry with the pushed row and DELETE removes it. Applying the same event
// twice yields the same records.
func ApplyEvent(records []models.Record, event models.ChangeEvent) ([]models.Record, bool) {
	switch event.Kind {
	case models.ChangeInsert:
		return Upsert(records, event.Record)
	case models.ChangeUpdate:
		return Replace(records, event.Record.ID(), event.Record)
	case models.ChangeDelete:
		return Remove(records, event.Record.ID())
	}
	return records, false
}

// ApplyOperation replays a queued operation on top of records, the way the
// optimistic write did when it was issued.
func ApplyOperation(records []models.Record, op models.PendingOperation) ([]models.Record, bool) {
	switch op.Kind {
	case models.OperationInsert:
		return Upsert(records, op.Data)
	case models.OperationUpdate:
		return Patch(records, op.TargetID(), op.Patch())
	case models.OperationDelete:
		return Remove(records, op.TargetID())
	}
	return records, false
}

// ReconcileID replaces the entry keyed by tempID with confirmed. If an entry
// with the confirmed id is already present, typically because the push
// notification won the race, the temporary entry is dropped instead so the
// collection never holds both. When neither entry exists nothing is added.
func ReconcileID(records []models.Record, tempID string, confirmed models.Record) ([]models.Record, bool) {
	serverID := confirmed.ID()
	ti := indexOf(records, tempID)
	si := indexOf(records, serverID)

	switch {
	case si >= 0 && ti >= 0:
		out := make([]models.Record, 0, len(records)-1)
		for i, r := range records {
			switch i {
			case ti:
				continue
			case si:
				out = append(out, confirmed.Clone())
			default:
				out = append(out, r)
			}
		}
		return out, true
	case si >= 0:
		return Replace(records, serverID, confirmed)
	case ti >= 0:
		out := make([]models.Record, len(records))
		copy(out, records)
		out[ti] = confirmed.Clone()
		return out, true
	}
	return records, false
}

// RewriteReferences replaces tempID with serverID in every field of every
// record.
func RewriteReferences(records []models.Record, tempID, serverID string) ([]models.Record, bool) {
	var out []models.Record
	mapping := map[string]string{tempID: serverID}
	for i, r := range records {
		rewritten, changed := r.ReplaceIDs(mapping)
		if !changed {
			continue
		}
		if out == nil {
			out = make([]models.Record, len(records))
			copy(out, records)
		}
		out[i] = rewritten
	}
	if out == nil {
		return records, false
	}
	return out, true
}
