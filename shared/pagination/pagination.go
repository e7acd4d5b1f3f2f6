package pagination

import (
	"math"

	"github.com/samber/lo"
)

const (
	DefaultPage = 1
	DefaultSize = 10
	MaxSize     = 100
	// MaxPage keeps Offset within int for every allowed size.
	MaxPage = math.MaxInt / MaxSize
)

// PageRequest is a normalized, 1-based page window.
type PageRequest struct {
	page int
	size int
}

// NewPageRequest normalizes the window at construction: page < 1 becomes 1 and
// page is capped at MaxPage; size < 1 becomes DefaultSize and is capped at MaxSize.
func NewPageRequest(page, size int) PageRequest {
	if page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	return PageRequest{page: page, size: size}
}

// DefaultPageRequest returns the first page with the default size.
func DefaultPageRequest() PageRequest {
	return NewPageRequest(DefaultPage, DefaultSize)
}

func (r PageRequest) Page() int { return r.page }
func (r PageRequest) Size() int { return r.size }

// Offset is the number of rows to skip before this page.
func (r PageRequest) Offset() int {
	return (r.page - 1) * r.size
}

// PageResponse is one page of results plus the metadata needed to navigate the rest.
type PageResponse[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPageResponse computes Pages as ceil(total/size), or 0 when total is 0.
func NewPageResponse[T any](items []T, page, size, total int) PageResponse[T] {
	if items == nil {
		items = []T{}
	}

	pages := 0
	if total > 0 && size > 0 {
		pages = (total + size - 1) / size
	}

	return PageResponse[T]{
		Items: items,
		Page:  page,
		Size:  size,
		Total: total,
		Pages: pages,
	}
}

func EmptyPage[T any](page, size int) PageResponse[T] {
	return NewPageResponse[T](nil, page, size, 0)
}

// MapPage transforms the items of p with f, leaving the page metadata untouched.
func MapPage[T, U any](p PageResponse[T], f func(T) U) PageResponse[U] {
	return PageResponse[U]{
		Items: lo.Map(p.Items, func(item T, _ int) U { return f(item) }),
		Page:  p.Page,
		Size:  p.Size,
		Total: p.Total,
		Pages: p.Pages,
	}
}
