package query

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Page is a result window: skip Offset rows, then return at most Limit
// rows when HasLimit is set.
type Page struct {
	Offset   uint64
	Limit    uint64
	HasLimit bool
}

// Unbounded returns every row from the start.
func Unbounded() Page { return Page{} }

// Window returns at most limit rows after skipping offset.
func Window(offset, limit uint64) Page {
	return Page{Offset: offset, Limit: limit, HasLimit: true}
}

// IsWindowed reports whether the page restricts the result at all.
func (p Page) IsWindowed() bool { return p.Offset > 0 || p.HasLimit }

// Clamp caps the limit at max. A zero max leaves the page unchanged.
func (p Page) Clamp(max uint64) Page {
	if max == 0 {
		return p
	}
	if !p.HasLimit || p.Limit > max {
		p.Limit = max
		p.HasLimit = true
	}
	return p
}

// ParsePage reads the first (offset) and max_count (limit) parameters.
// Either may be absent: first defaults to 0 and max_count to unbounded.
// Values must be non-negative JSON integers.
func ParsePage(first, maxCount []byte) (Page, error) {
	var p Page

	offset, ok, err := parseCount("first", first)
	if err != nil {
		return Page{}, err
	}
	if ok {
		p.Offset = offset
	}

	limit, ok, err := parseCount("max_count", maxCount)
	if err != nil {
		return Page{}, err
	}
	if ok {
		p.Limit = limit
		p.HasLimit = true
	}

	return p, nil
}

func parseCount(param string, data []byte) (uint64, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false, nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, false, &InvalidPageError{Param: param, Reason: "must be an integer"}
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return 0, false, &InvalidPageError{Param: param, Reason: "must be an integer"}
	}
	if v < 0 {
		return 0, false, &InvalidPageError{Param: param, Reason: "cannot be negative"}
	}
	return uint64(v), true, nil
}
