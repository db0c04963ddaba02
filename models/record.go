package models

import "reflect"

// IDField is the key under which every Record stores its identifier.
const IDField = "id"

// Record is an opaque, collection-scoped entity. The engine only interprets
// the "id" field; every other field is carried through untouched.
//
// Records handed out by the cache are shared between snapshots and must be
// treated as read-only. Use [Record.Clone] before modifying one.
type Record map[string]any

// ID returns the record identifier or an empty string if it is missing or
// not a string.
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	id, _ := r[IDField].(string)
	return id
}

// WithID returns a copy of r with the id field set to id.
func (r Record) WithID(id string) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	out[IDField] = id
	return out
}

// WithoutID returns a copy of r without the id field. Used to build insert
// payloads, where the server assigns the identifier.
func (r Record) WithoutID() Record {
	out := r.Clone()
	delete(out, IDField)
	return out
}

// Merge returns a copy of r with every field of patch applied on top.
// The id of r is preserved even if patch carries a different one.
func (r Record) Merge(patch Record) Record {
	out := r.Clone()
	if out == nil {
		out = Record{}
	}
	id, hasID := out[IDField]
	for k, v := range patch {
		out[k] = cloneValue(v)
	}
	if hasID {
		out[IDField] = id
	}
	return out
}

// Equal reports whether r and other hold the same fields and values.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	return reflect.DeepEqual(map[string]any(r), map[string]any(other))
}

// Clone returns a deep copy of r. Nested maps and slices produced by JSON
// decoding are copied as well.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}

// ReplaceString returns a copy of v where every string equal to from is
// replaced by to, at any depth. The second result reports whether anything
// was replaced.
func ReplaceString(v any, from, to string) (any, bool) {
	switch t := v.(type) {
	case string:
		if t == from {
			return to, true
		}
		return t, false
	case Record:
		out, changed := replaceInMap(t, from, to)
		return Record(out), changed
	case map[string]any:
		return replaceInMap(t, from, to)
	case []any:
		out := make([]any, len(t))
		changed := false
		for i := range t {
			var c bool
			out[i], c = ReplaceString(t[i], from, to)
			changed = changed || c
		}
		return out, changed
	default:
		return v, false
	}
}

func replaceInMap(m map[string]any, from, to string) (map[string]any, bool) {
	out := make(map[string]any, len(m))
	changed := false
	for k, val := range m {
		var c bool
		out[k], c = ReplaceString(val, from, to)
		changed = changed || c
	}
	return out, changed
}

// ReplaceIDs rewrites every occurrence of a temporary id known to mapping
// with its confirmed counterpart.
func (r Record) ReplaceIDs(mapping map[string]string) (Record, bool) {
	if len(mapping) == 0 || r == nil {
		return r, false
	}
	changed := false
	var cur any = r
	for _, tempID := range TempIDsIn(r) {
		serverID, ok := mapping[tempID]
		if !ok {
			continue
		}
		var c bool
		cur, c = ReplaceString(cur, tempID, serverID)
		changed = changed || c
	}
	return cur.(Record), changed
}
