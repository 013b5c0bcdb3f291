package request

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ByCodeRequest is used by endpoints keyed on an invite or reset code.
type ByCodeRequest struct {
	Code string `uri:"code" binding:"required"`
}

// PageRequest binds the page and page_size query parameters.
type PageRequest struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Normalize clamps the parameters to sane defaults.
func (p *PageRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 50
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
}

// Paginate returns the slice of items belonging to the given page.
func Paginate[T any](items []T, page, pageSize int) []T {
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
