package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"incident-dashboard/internal/domain/incident"
)

var ErrIncidentNotFound = errors.New("incident not found")

type IncidentRepository struct {
	db *gorm.DB
}

func NewIncidentRepository(db *gorm.DB) *IncidentRepository {
	return &IncidentRepository{db: db}
}

type Camera struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"not null"`
	Location  string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Camera) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

type Incident struct {
	ID           string     `gorm:"primaryKey;size:36"`
	CameraID     string     `gorm:"not null;size:36;index"`
	Camera       Camera     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Type         string     `gorm:"not null"`
	TsStart      time.Time  `gorm:"not null;index"`
	TsEnd        *time.Time `gorm:"check:ts_end IS NULL OR ts_end >= ts_start"`
	ThumbnailURL string     `gorm:"not null"`
	Resolved     bool       `gorm:"not null;default:false;index"`
	Metadata     datatypes.JSONMap
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i *Incident) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Models lists the tables owned by this repository, in creation order.
func Models() []interface{} {
	return []interface{}{&Camera{}, &Incident{}}
}

func (r *IncidentRepository) FindIncidents(ctx context.Context, resolved *bool) ([]Incident, error) {
	query := r.db.WithContext(ctx).Model(&Incident{}).Preload("Camera")

	if resolved != nil {
		query = query.Where("resolved = ?", *resolved)
	}

	query = query.Order("ts_start DESC")

	var incidents []Incident
	err := query.Find(&incidents).Error
	return incidents, err
}

func (r *IncidentRepository) GetIncident(ctx context.Context, id string) (*Incident, error) {
	var inc Incident
	err := r.db.WithContext(ctx).Preload("Camera").Where("id = ?", id).First(&inc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIncidentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

// ToggleResolved flips the resolved flag with a single conditional update and
// reloads the row in the same transaction, so each call flips exactly once.
func (r *IncidentRepository) ToggleResolved(ctx context.Context, id string) (*Incident, error) {
	var updated *Incident
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Incident{}).
			Where("id = ?", id).
			Update("resolved", gorm.Expr("NOT resolved"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrIncidentNotFound
		}
		row, err := NewIncidentRepository(tx).GetIncident(ctx, id)
		if err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *IncidentRepository) CreateCamera(ctx context.Context, cam *incident.Camera) error {
	row := Camera{
		ID:       cam.ID,
		Name:     cam.Name,
		Location: cam.Location,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	cam.ID = row.ID
	return nil
}

func (r *IncidentRepository) CreateIncident(ctx context.Context, in incident.NewIncident) (*Incident, error) {
	row := Incident{
		CameraID:     in.CameraID,
		Type:         in.Type,
		TsStart:      in.TsStart,
		TsEnd:        in.TsEnd,
		ThumbnailURL: in.ThumbnailURL,
		Resolved:     in.Resolved,
	}
	if len(in.Metadata) > 0 {
		row.Metadata = datatypes.JSONMap(in.Metadata)
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteAll wipes incidents and cameras. Only the seeder's reset path uses it.
func (r *IncidentRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Incident{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Camera{}).Error
	})
}

func (r *IncidentRepository) CountIncidents(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Incident{}).Count(&n).Error
	return n, err
}

// ToDomain joins the row with its preloaded camera into the wire shape.
func (i Incident) ToDomain() incident.Incident {
	out := incident.Incident{
		ID:           i.ID,
		Type:         i.Type,
		TsStart:      i.TsStart,
		TsEnd:        i.TsEnd,
		ThumbnailURL: i.ThumbnailURL,
		Resolved:     i.Resolved,
		Camera: incident.Camera{
			ID:       i.Camera.ID,
			Name:     i.Camera.Name,
			Location: i.Camera.Location,
		},
	}
	if len(i.Metadata) > 0 {
		out.Metadata = plainMetadata(i.Metadata)
	}
	return out
}

// plainMetadata re-decodes metadata so numbers are float64 whether the row
// was just created or scanned back (JSONMap scans with UseNumber).
func plainMetadata(m datatypes.JSONMap) map[string]interface{} {
	raw, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return map[string]interface{}(m)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}(m)
	}
	return out
}
