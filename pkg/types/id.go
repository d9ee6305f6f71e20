package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is a backend identifier normalized to its canonical string form.
// The backend and the page client disagree on whether ids are numbers or strings;
// every comparison goes through NormalizeID so both spellings meet.
type ID string

// NormalizeID coerces numbers, numeric strings and plain strings into one canonical ID.
// Integral values lose leading zeros, signs and fractional ".0"; anything else is trimmed.
func NormalizeID(v any) ID {
	switch val := v.(type) {
	case nil:
		return ""
	case ID:
		return normalizeString(string(val))
	case string:
		return normalizeString(val)
	case json.Number:
		return normalizeString(val.String())
	case int:
		return ID(strconv.FormatInt(int64(val), 10))
	case int32:
		return ID(strconv.FormatInt(int64(val), 10))
	case int64:
		return ID(strconv.FormatInt(val, 10))
	case uint:
		return ID(strconv.FormatUint(uint64(val), 10))
	case uint64:
		return ID(strconv.FormatUint(val, 10))
	case float64:
		return normalizeFloat(val)
	case float32:
		return normalizeFloat(float64(val))
	case fmt.Stringer:
		return normalizeString(val.String())
	}
	return normalizeString(fmt.Sprint(v))
}

func normalizeString(raw string) ID {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return ID(strconv.FormatInt(n, 10))
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && f == math.Trunc(f) && !math.IsInf(f, 0) {
		return normalizeFloat(f)
	}
	return ID(trimmed)
}

func normalizeFloat(f float64) ID {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(strconv.FormatFloat(f, 'f', -1, 64))
}

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool {
	return strings.TrimSpace(string(id)) == ""
}

// Equal compares two ids after normalization.
func (id ID) Equal(other ID) bool {
	return NormalizeID(id) == NormalizeID(other)
}

func (id ID) String() string {
	return string(id)
}

// Int returns the numeric value of the id, when it has one.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(NormalizeID(id)), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*id = normalizeString(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = normalizeString(num.String())
	return nil
}

// MarshalJSON emits integral ids as JSON numbers, which is what the backend expects.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	if n, ok := id.Int(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// IDSet is a membership set keyed by normalized ids.
type IDSet map[ID]struct{}

func NewIDSet(ids ...ID) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		if n := NormalizeID(id); n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func (s IDSet) Has(id ID) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[NormalizeID(id)]
	return ok
}
