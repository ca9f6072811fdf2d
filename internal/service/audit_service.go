package service

import (
	"context"

	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/response"
)

// AuditService reads the grade change audit log.
type AuditService struct {
	audit AuditStore
}

// NewAuditService creates a new AuditService.
func NewAuditService(audit AuditStore) *AuditService {
	return &AuditService{audit: audit}
}

// List returns audit rows newest first, paginated.
func (s *AuditService) List(ctx context.Context, filter model.AuditFilter) ([]model.AuditEntry, *response.Pagination, error) {
	page, perPage := filter.Page, filter.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	entries, total, err := s.audit.List(ctx, filter, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	return entries, pagination, nil
}
