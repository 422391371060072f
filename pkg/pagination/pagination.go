package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds page-based pagination. Page is 1-based; Offset is derived.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// FromContext reads ?page= and ?limit=, clamping limit to MaxLimit.
func FromContext(c echo.Context) Params {
	return New(atoi(c.QueryParam("page")), atoi(c.QueryParam("limit")))
}

func New(page, limit int) Params {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page < 1 {
		page = 1
	}
	return Params{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

type Meta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

type Response struct {
	Data       interface{} `json:"data"`
	Pagination Meta        `json:"pagination"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	pages := 0
	if p.Limit > 0 {
		pages = (total + p.Limit - 1) / p.Limit
	}
	return &Response{
		Data: data,
		Pagination: Meta{
			Total:      total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: pages,
		},
	}
}

func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}
