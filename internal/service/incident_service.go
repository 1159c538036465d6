package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"incident-dashboard/internal/domain/incident"
	"incident-dashboard/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type IncidentService struct {
	repo *repository.IncidentRepository
	log  zerolog.Logger
}

func NewIncidentService(repo *repository.IncidentRepository, log zerolog.Logger) *IncidentService {
	return &IncidentService{
		repo: repo,
		log:  log,
	}
}

// ListIncidents returns incidents newest first. A nil filter returns all of them.
func (s *IncidentService) ListIncidents(ctx context.Context, resolved *bool) ([]incident.Incident, error) {
	rows, err := s.repo.FindIncidents(ctx, resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to find incidents: %w", err)
	}

	result := make([]incident.Incident, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.ToDomain())
	}

	ev := s.log.Debug().Int("count", len(result))
	if resolved != nil {
		ev = ev.Bool("resolved", *resolved)
	}
	ev.Msg("listed incidents")

	return result, nil
}

// ResolveIncident flips the resolved flag of one incident and returns the
// updated record.
func (s *IncidentService) ResolveIncident(ctx context.Context, id string) (*incident.Incident, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: incident id is required", ErrInvalidInput)
	}

	row, err := s.repo.ToggleResolved(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrIncidentNotFound) {
			return nil, fmt.Errorf("%w: incident %s", ErrNotFound, id)
		}
		s.log.Error().Err(err).Str("incident_id", id).Msg("failed to toggle incident")
		return nil, fmt.Errorf("failed to toggle incident: %w", err)
	}

	out := row.ToDomain()
	s.log.Info().
		Str("incident_id", out.ID).
		Str("camera_id", out.Camera.ID).
		Str("type", out.Type).
		Bool("resolved", out.Resolved).
		Msg("incident resolution toggled")

	return &out, nil
}
