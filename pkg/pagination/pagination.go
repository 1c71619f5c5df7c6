package pagination

import "math"

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page query can request.
	MaxLimit = 100
)

// Params holds page-based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize fills defaults and clamps the limit.
func (p Params) Normalize() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset returns the row offset for the normalized page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Meta describes a page of results in the response envelope.
type Meta struct {
	Total       int64
	Pages       int
	CurrentPage int
}

// NewMeta computes page counts for total rows under p.
func NewMeta(p Params, total int64) Meta {
	n := p.Normalize()
	return Meta{
		Total:       total,
		Pages:       int(math.Ceil(float64(total) / float64(n.Limit))),
		CurrentPage: n.Page,
	}
}
