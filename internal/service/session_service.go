package service

import (
	"log"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/capture"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/session"
)

// SessionService runs the capture analysis pipeline for the API
type SessionService struct{}

// NewSessionService creates a new session service
func NewSessionService() *SessionService {
	return &SessionService{}
}

// Analyze validates a capture payload and runs signal fusion, event
// detection, uroflow metrics, and the quality verdict over it.
func (s *SessionService) Analyze(payload *capture.Payload) (*session.Analysis, error) {
	analysis, err := session.AnalyzeCaptureSession(payload, session.DefaultConfig())
	if err != nil {
		return nil, err
	}
	log.Printf("[Session] analyzed session %s: status=%s score=%.1f",
		analysis.SessionID, analysis.Quality.Status, analysis.Quality.Score)
	return analysis, nil
}
