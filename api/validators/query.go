package validators

import (
	"net/http"
	"strings"

	"github.com/blakitny/storefront/pkg/types"
)

const maxQueryValueLength = 64

// ParseQueryID reads a single id parameter. Absent or blank values yield nil.
func ParseQueryID(r *http.Request, key string) *types.ID {
	id := types.NormalizeID(SanitizeString(r.URL.Query().Get(key), maxQueryValueLength))
	if id.IsZero() {
		return nil
	}
	return &id
}

// ParseQueryIDs collects a repeatable id parameter; each occurrence may also hold a
// comma-separated list ("size=1&size=2" and "size=1,2" are equivalent).
func ParseQueryIDs(r *http.Request, key string) []types.ID {
	var out []types.ID
	for _, raw := range r.URL.Query()[key] {
		for _, part := range strings.Split(raw, ",") {
			if id := types.NormalizeID(SanitizeString(part, maxQueryValueLength)); !id.IsZero() {
				out = append(out, id)
			}
		}
	}
	return out
}

// ParseQueryString reads a trimmed, length-capped string parameter.
func ParseQueryString(r *http.Request, key string) string {
	return SanitizeString(r.URL.Query().Get(key), maxQueryValueLength)
}
