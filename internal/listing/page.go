package listing

// Page is one slice of a filtered collection plus the state the pager needs.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
	From       int  `json:"from"` // 1-based index of the first item shown, 0 when empty
	To         int  `json:"to"`
}

// Paginate returns items[(page-1)*size : min(page*size, n)] with page clamped
// to [1, totalPages]. An empty input yields page 1 of 0 with both controls
// disabled.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	n := len(items)
	totalPages := (n + pageSize - 1) / pageSize

	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		Total:      n,
		TotalPages: totalPages,
		HasPrev:    page > 1,
		HasNext:    page < totalPages,
	}
	if n == 0 {
		return p
	}

	start := (page - 1) * pageSize
	end := min(start+pageSize, n)
	p.Items = items[start:end]
	p.From = start + 1
	p.To = end
	return p
}

// Pages lists page numbers for the pager links.
func (p Page[T]) Pages() []int {
	out := make([]int, 0, p.TotalPages)
	for i := 1; i <= p.TotalPages; i++ {
		out = append(out, i)
	}
	return out
}

func (p Page[T]) PrevPage() int { return p.Page - 1 }

func (p Page[T]) NextPage() int { return p.Page + 1 }
