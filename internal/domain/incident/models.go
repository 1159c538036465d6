package incident

import (
	"errors"
	"time"
)

var ErrInvalidWindow = errors.New("incident ends before it starts")

type Camera struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Incident is the wire shape shared by the API and the dashboard client.
// TsEnd is nil while the incident is still ongoing.
type Incident struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	TsStart      time.Time              `json:"tsStart"`
	TsEnd        *time.Time             `json:"tsEnd"`
	ThumbnailURL string                 `json:"thumbnailUrl"`
	Resolved     bool                   `json:"resolved"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Camera       Camera                 `json:"camera"`
}

func (i Incident) Ongoing() bool {
	return i.TsEnd == nil
}

// Duration returns zero for ongoing incidents.
func (i Incident) Duration() time.Duration {
	if i.TsEnd == nil {
		return 0
	}
	return i.TsEnd.Sub(i.TsStart)
}

// NewIncident is the ingestion payload used by the seeder.
type NewIncident struct {
	CameraID     string
	Type         string
	TsStart      time.Time
	TsEnd        *time.Time
	ThumbnailURL string
	Resolved     bool
	Metadata     map[string]interface{}
}

func (n NewIncident) Validate() error {
	if n.TsEnd != nil && n.TsEnd.Before(n.TsStart) {
		return ErrInvalidWindow
	}
	return nil
}
