package models

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix marks identifiers generated locally for records that the
// server has not confirmed yet. The backend refuses values in the temporary
// id format, so one can never collide with a server-assigned id.
const TempIDPrefix = "temp_"

// tempIDPattern is the exact shape produced by NewTempID. Values that only
// share the prefix, such as a category named "temp_savings", are user data.
var tempIDPattern = regexp.MustCompile(`^temp_[0-9]+_[0-9a-f]{8}$`)

// NewTempID returns a fresh temporary identifier of the form
// temp_<unix nanos>_<random suffix>.
func NewTempID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return TempIDPrefix + strconv.FormatInt(now.UnixNano(), 10) + "_" + suffix
}

// IsTempID reports whether id was produced by [NewTempID].
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix) && tempIDPattern.MatchString(id)
}

// TempIDsIn collects every temporary id referenced anywhere inside v,
// sorted and without duplicates.
func TempIDsIn(v any) []string {
	seen := make(map[string]struct{})
	collectTempIDs(v, seen)

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func collectTempIDs(v any, seen map[string]struct{}) {
	switch t := v.(type) {
	case string:
		if IsTempID(t) {
			seen[t] = struct{}{}
		}
	case Record:
		for _, val := range t {
			collectTempIDs(val, seen)
		}
	case map[string]any:
		for _, val := range t {
			collectTempIDs(val, seen)
		}
	case []any:
		for _, val := range t {
			collectTempIDs(val, seen)
		}
	}
}
