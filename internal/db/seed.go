package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"incident-dashboard/internal/domain/incident"
	"incident-dashboard/internal/repository"
)

type seedIncident struct {
	camera     int
	kind       string
	startAfter time.Duration
	length     time.Duration
	thumbnail  string
	confidence float64
}

var seedCameras = []incident.Camera{
	{Name: "Shop Floor A", Location: "Manufacturing Floor - Section A"},
	{Name: "Vault", Location: "Security Vault - Basement Level"},
	{Name: "Entrance", Location: "Main Building Entrance"},
	{Name: "Parking Lot", Location: "Employee Parking Area"},
}

var seedIncidents = []seedIncident{
	{0, "Unauthorized Access", 2 * time.Hour, 5 * time.Minute, "https://picsum.photos/640/360?random=11", 0.91},
	{1, "Gun Threat", 3 * time.Hour, 2 * time.Minute, "https://picsum.photos/640/360?random=12", 0.97},
	{2, "Face Recognised", 8 * time.Hour, time.Minute, "https://picsum.photos/640/360?random=1", 0.88},
	{3, "Suspicious Activity", 9 * time.Hour, 10 * time.Minute, "https://picsum.photos/640/360?random=13", 0.74},
	{0, "Motion Detection", 12 * time.Hour, 3 * time.Minute, "https://picsum.photos/640/360?random=14", 0.66},
	{2, "Unauthorized Access", 14 * time.Hour, 7 * time.Minute, "https://picsum.photos/640/360?random=15", 0.9},
	{1, "Face Recognised", 15 * time.Hour, 30 * time.Second, "https://picsum.photos/640/360?random=2", 0.85},
	{3, "Vehicle Intrusion", 16 * time.Hour, 8 * time.Minute, "https://picsum.photos/640/360?random=16", 0.79},
	{0, "Equipment Tampering", 18 * time.Hour, 15 * time.Minute, "https://picsum.photos/640/360?random=3", 0.83},
	{2, "Loitering", 20 * time.Hour, 25 * time.Minute, "https://picsum.photos/640/360?random=17", 0.71},
	{1, "Motion Detection", 22 * time.Hour, 2 * time.Minute, "https://picsum.photos/640/360?random=18", 0.62},
	{3, "Suspicious Activity", 23 * time.Hour, 12 * time.Minute, "https://picsum.photos/640/360?random=19", 0.77},
}

type SeedResult struct {
	Cameras   int
	Incidents int
	// Total is the number of incidents stored after seeding.
	Total int64
}

// Seed inserts the demo cameras and incidents spread over the day before now.
// With reset, existing incidents and cameras are deleted first.
func Seed(ctx context.Context, repo *repository.IncidentRepository, now time.Time, reset bool, log zerolog.Logger) (*SeedResult, error) {
	if reset {
		if err := repo.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("reset: %w", err)
		}
		log.Info().Msg("existing incidents and cameras deleted")
	}

	cameras := make([]incident.Camera, len(seedCameras))
	copy(cameras, seedCameras)
	for i := range cameras {
		if err := repo.CreateCamera(ctx, &cameras[i]); err != nil {
			return nil, fmt.Errorf("create camera %q: %w", cameras[i].Name, err)
		}
	}

	yesterday := now.UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	for _, s := range seedIncidents {
		start := yesterday.Add(s.startAfter)
		end := start.Add(s.length)
		in := incident.NewIncident{
			CameraID:     cameras[s.camera].ID,
			Type:         s.kind,
			TsStart:      start,
			TsEnd:        &end,
			ThumbnailURL: s.thumbnail,
			Metadata:     map[string]interface{}{"confidence": s.confidence},
		}
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("seed incident %q: %w", s.kind, err)
		}
		if _, err := repo.CreateIncident(ctx, in); err != nil {
			return nil, fmt.Errorf("create incident %q: %w", s.kind, err)
		}
	}

	total, err := repo.CountIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("count incidents: %w", err)
	}

	log.Info().
		Int("cameras", len(cameras)).
		Int("incidents", len(seedIncidents)).
		Int64("total", total).
		Msg("database seeded")

	return &SeedResult{Cameras: len(cameras), Incidents: len(seedIncidents), Total: total}, nil
}
