package services

import "sync"

// Pagination tracks the grid page. Next and Prev clamp to [1, TotalPages];
// calls at a boundary do nothing.
type Pagination struct {
	mu         sync.Mutex
	page       int
	pageSize   int
	totalCount int
}

// PageInfo is a snapshot of the pagination state
type PageInfo struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination creates a controller at page 1
func NewPagination(pageSize int) *Pagination {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Pagination{page: 1, pageSize: pageSize}
}

// Info returns the current state
func (p *Pagination) Info() PageInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PageInfo{
		Page:       p.page,
		PageSize:   p.pageSize,
		TotalCount: p.totalCount,
		TotalPages: p.totalPagesLocked(),
	}
}

// Page returns the current page
func (p *Pagination) Page() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page
}

// PageSize returns the fixed page size
func (p *Pagination) PageSize() int {
	return p.pageSize
}

// TotalPages returns ceil(totalCount/pageSize)
func (p *Pagination) TotalPages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalPagesLocked()
}

// SetTotal records the total number of matching items, clamping the page
func (p *Pagination) SetTotal(totalCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if totalCount < 0 {
		totalCount = 0
	}
	p.totalCount = totalCount
	if total := p.totalPagesLocked(); total > 0 && p.page > total {
		p.page = total
	}
}

// Next moves one page forward and reports whether the page changed
func (p *Pagination) Next() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page >= p.totalPagesLocked() {
		return false
	}
	p.page++
	return true
}

// Prev moves one page back and reports whether the page changed
func (p *Pagination) Prev() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.page <= 1 {
		return false
	}
	p.page--
	return true
}

// Reset returns to page 1
func (p *Pagination) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.page = 1
}

func (p *Pagination) totalPagesLocked() int {
	return (p.totalCount + p.pageSize - 1) / p.pageSize
}
