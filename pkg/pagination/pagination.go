package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Params is a limit/offset window.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FromContext reads ?limit= and ?offset=. Missing or invalid values fall
// back to the defaults; limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	p := Params{Limit: DefaultLimit}
	if n, err := strconv.Atoi(c.QueryParam("limit")); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	if n, err := strconv.Atoi(c.QueryParam("offset")); err == nil && n > 0 {
		p.Offset = n
	}
	return p
}

// Page is one window of a list along with the total row count.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// NewPage never returns nil Items so the JSON array is always present.
func NewPage[T any](items []T, total int, p Params) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:   items,
		Total:   total,
		Limit:   p.Limit,
		Offset:  p.Offset,
		HasMore: p.Offset+len(items) < total,
	}
}
