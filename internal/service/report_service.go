package service

import (
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
)

// ReportService handles business logic for pilot automation reports
type ReportService struct {
	repo *repository.ReportRepository
}

// NewReportService creates a new report service
func NewReportService(repo *repository.ReportRepository) *ReportService {
	return &ReportService{repo: repo}
}

// Create stores one pilot automation report
func (s *ReportService) Create(payload *models.PilotReportCreate) (*models.PilotReportRecord, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	id, err := s.repo.Insert(payload)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// List retrieves pilot report list items
func (s *ReportService) List(filter models.ReportFilter) ([]models.PilotReportListItem, error) {
	return s.repo.List(filter)
}

// GetByID retrieves a single pilot report
func (s *ReportService) GetByID(id int64) (*models.PilotReportRecord, error) {
	return s.repo.GetByID(id)
}
