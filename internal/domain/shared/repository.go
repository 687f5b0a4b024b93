package shared

// Filter holds common query options for list repositories
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string // asc or desc
	Filters  map[string]any
}

// NewFilter creates an empty filter
func NewFilter() Filter {
	return Filter{Filters: make(map[string]any)}
}

// WithPagination sets pagination options
func (f Filter) WithPagination(page, pageSize int) Filter {
	f.Page = page
	f.PageSize = pageSize
	return f
}

// WithOrder sets ordering options
func (f Filter) WithOrder(orderBy, orderDir string) Filter {
	f.OrderBy = orderBy
	f.OrderDir = orderDir
	return f
}

// With adds a named filter value
func (f Filter) With(key string, value any) Filter {
	if f.Filters == nil {
		f.Filters = make(map[string]any)
	}
	f.Filters[key] = value
	return f
}
