package catalog

type Book struct {
	ID          int64  `json:"id"`
	Title       string `json:"title" validate:"required,max=256"`
	Description string `json:"description" validate:"max=4000"`
	Pages       int    `json:"pages" validate:"gte=0"`
}

// Page is one slice of a catalog listing. Cached pages are shared between readers and must not be mutated.
type Page struct {
	Items      []Book `json:"items"`
	PageNumber int    `json:"pageNumber"`
	TotalPages int    `json:"totalPages"`
	TotalCount int    `json:"totalCount"`
}

// Clone returns a copy whose Items can be modified independently.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = append([]Book(nil), p.Items...)
	return &c
}

func totalPages(totalCount, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (totalCount + pageSize - 1) / pageSize
}
