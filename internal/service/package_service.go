package service

import (
	"errors"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
)

// ErrPairedMeasurementMissing is returned when a capture package references a
// paired measurement that does not exist.
var ErrPairedMeasurementMissing = errors.New("paired_measurement_id does not exist")

// PackageService handles business logic for capture packages
type PackageService struct {
	repo            *repository.PackageRepository
	measurementRepo *repository.MeasurementRepository
}

// NewPackageService creates a new package service
func NewPackageService(repo *repository.PackageRepository, measurementRepo *repository.MeasurementRepository) *PackageService {
	return &PackageService{repo: repo, measurementRepo: measurementRepo}
}

// Create archives a capture package, checking the paired measurement link
func (s *PackageService) Create(payload *models.CapturePackageCreate) (*models.CapturePackageRecord, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	if payload.PairedMeasurementID != nil {
		paired, err := s.measurementRepo.GetByID(*payload.PairedMeasurementID)
		if err != nil {
			return nil, err
		}
		if paired == nil {
			return nil, ErrPairedMeasurementMissing
		}
	}

	id, err := s.repo.Insert(payload)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

// List retrieves capture package list items
func (s *PackageService) List(filter models.PackageFilter) ([]models.CapturePackageListItem, error) {
	return s.repo.List(filter)
}

// GetByID retrieves a single capture package
func (s *PackageService) GetByID(id int64) (*models.CapturePackageRecord, error) {
	return s.repo.GetByID(id)
}
