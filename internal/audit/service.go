package audit

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// Page is one page of audit entries with its pagination meta.
type Page struct {
	Data []Entry         `json:"data"`
	Meta shared.PageMeta `json:"meta"`
}

// Service reads the audit log.
type Service struct {
	repo           Repository
	defaultPerPage int
}

// NewService constructs the audit service. defaultPerPage falls back to 20.
func NewService(repo Repository, defaultPerPage int) *Service {
	if defaultPerPage <= 0 {
		defaultPerPage = 20
	}
	return &Service{repo: repo, defaultPerPage: defaultPerPage}
}

// Query returns a page of entries ordered by creation time descending.
func (s *Service) Query(ctx context.Context, filters Filters, page, perPage int) (Page, error) {
	if s.repo == nil {
		return Page{}, fmt.Errorf("audit: repository not configured")
	}
	page, perPage = shared.NormalizePage(page, perPage, s.defaultPerPage)
	pagination := shared.NewPagination(page, perPage, 0)
	entries, total, err := s.repo.List(ctx, filters, pagination.Offset(), perPage)
	if err != nil {
		return Page{}, err
	}
	if entries == nil {
		entries = []Entry{}
	}
	return Page{Data: entries, Meta: shared.NewPagination(page, perPage, total).Meta()}, nil
}

// Export returns every matching entry without paging.
func (s *Service) Export(ctx context.Context, filters Filters) ([]Entry, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.ListAll(ctx, filters)
}

// Revision reports how many entries the log holds. Governance reports are
// keyed on it so that a mutation is visible even if cache invalidation failed.
func (s *Service) Revision(ctx context.Context) (int64, error) {
	if s.repo == nil {
		return 0, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Revision(ctx)
}
