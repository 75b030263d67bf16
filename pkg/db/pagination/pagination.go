package pagination

const (
	DefaultPageSize = 20
	MaxPageSize     = 250
)

type Pagination struct {
	Page int `form:"page,default=1"`
	Size int `form:"size,default=20" validate:"gte=1,lte=250"` // Min 1, Max 250
}

type PageInfo struct {
	Page     int   `json:"page"`
	Size     int   `json:"size"`
	Total    int64 `json:"total"`
	HasMore  bool  `json:"has_more"`
	NextPage *int  `json:"next_page,omitempty"`
}

// Normalize clamps page and size into their valid ranges.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Size
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	p = p.Normalize()
	info := PageInfo{
		Page:  p.Page,
		Size:  p.Size,
		Total: total,
	}
	if int64(p.Page*p.Size) < total {
		next := p.Page + 1
		info.HasMore = true
		info.NextPage = &next
	}
	return info
}
