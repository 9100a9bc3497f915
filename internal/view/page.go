package view

import "github.com/xavierca1/ligue-crm/internal/entity"

const DefaultPageSize = 15

type PageResult struct {
	Items      []entity.Lead `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	Total      int           `json:"total"`
	FilterKey  string        `json:"filter_key"`
}

// TotalPages é ceil(total/size), com no mínimo uma página.
func TotalPages(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages < 1 {
		return 1
	}
	return pages
}

func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Paginate recorta a página pedida, já ajustada ao intervalo válido. Juntar
// todas as páginas reproduz records exatamente.
func Paginate(records []entity.Lead, page, size int) PageResult {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(records)
	pages := TotalPages(total, size)
	page = ClampPage(page, pages)

	start := (page - 1) * size
	end := min(start+size, total)
	items := make([]entity.Lead, 0, max(end-start, 0))
	if start < total {
		items = append(items, records[start:end]...)
	}

	return PageResult{
		Items:      items,
		Page:       page,
		PageSize:   size,
		TotalPages: pages,
		Total:      total,
	}
}

// Cursor é a posição do visitante: a Key do filtro com que ele paginou e a
// página. Qualquer mudança de filtro volta para a página 1.
type Cursor struct {
	FilterKey string `json:"filter_key"`
	Page      int    `json:"page"`
}

func NewCursor() Cursor { return Cursor{Page: 1} }

// WithFilter move o cursor para f. Cursor sem Key (primeira requisição)
// mantém a página pedida.
func (c Cursor) WithFilter(f FilterState) Cursor {
	key := f.Key()
	if c.FilterKey != "" && c.FilterKey != key {
		return Cursor{FilterKey: key, Page: 1}
	}
	c.FilterKey = key
	return c
}
