// Package dashboard holds the client-side state of the incident dashboard:
// the incident list, the selected incident and the set of incidents with a
// resolve call in flight.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	ttlcache "github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"incident-dashboard/internal/domain/incident"
)

const (
	DefaultResolveTimeout = 10 * time.Second
	DefaultMaxPending     = 64
)

var (
	ErrResolveFailed    = errors.New("failed to resolve incident")
	ErrAlreadyResolving = errors.New("incident is already being resolved")
	ErrTooManyPending   = errors.New("too many resolves in flight")
)

// IncidentAPI is the remote incident store as seen by the dashboard.
type IncidentAPI interface {
	List(ctx context.Context, resolved *bool) ([]incident.Incident, error)
	Resolve(ctx context.Context, id string) (*incident.Incident, error)
}

type Options struct {
	// ResolveTimeout bounds each resolve call and the lifetime of its
	// optimistic marker.
	ResolveTimeout time.Duration
	// MaxPending caps the number of concurrent resolve calls.
	MaxPending int
	// Location is used when rendering timestamps. Defaults to time.Local.
	Location *time.Location
}

type Dashboard struct {
	api  IncidentAPI
	opts Options
	log  zerolog.Logger

	loadOnce sync.Once
	stopOnce sync.Once

	mu        sync.RWMutex
	incidents []incident.Incident
	selected  string
	loaded    bool
	loadErr   error
	attempt   uint64

	// id -> attempt number of the call that owns the marker
	resolving *ttlcache.Cache[string, uint64]
}

func New(api IncidentAPI, opts Options, log zerolog.Logger) *Dashboard {
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = DefaultResolveTimeout
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = DefaultMaxPending
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	d := &Dashboard{
		api:  api,
		opts: opts,
		log:  log,
		resolving: ttlcache.New[string, uint64](
			ttlcache.WithTTL[string, uint64](opts.ResolveTimeout),
			ttlcache.WithCapacity[string, uint64](uint64(opts.MaxPending)),
			ttlcache.WithDisableTouchOnHit[string, uint64](),
		),
	}
	d.resolving.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, uint64]) {
		if reason == ttlcache.EvictionReasonExpired {
			d.log.Warn().
				Str("incident_id", item.Key()).
				Dur("timeout", d.opts.ResolveTimeout).
				Msg("resolve marker expired")
		}
	})
	go d.resolving.Start()

	return d
}

// Close stops the marker expiry loop. The dashboard must not be used afterwards.
func (d *Dashboard) Close() {
	d.stopOnce.Do(d.resolving.Stop)
}

// Load fetches the unfiltered incident list. Only the first call reaches the
// API; later calls return the outcome of the first one. A failed load leaves
// the list empty and is not retried.
func (d *Dashboard) Load(ctx context.Context) error {
	d.loadOnce.Do(func() {
		list, err := d.api.List(ctx, nil)

		d.mu.Lock()
		defer d.mu.Unlock()
		d.loaded = true
		if err != nil {
			d.loadErr = err
			d.incidents = nil
			d.log.Error().Err(err).Msg("failed to fetch incidents")
			return
		}
		d.incidents = list
		d.log.Debug().Int("count", len(list)).Msg("incidents loaded")
	})

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadErr
}

func (d *Dashboard) Loaded() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loaded
}

func (d *Dashboard) LoadErr() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loadErr
}

// Incidents returns a copy of the list, most recent first.
func (d *Dashboard) Incidents() []incident.Incident {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]incident.Incident, len(d.incidents))
	copy(out, d.incidents)
	return out
}

// Select marks id as the selected incident. An id that is not in the list
// clears the selection; the return value reports whether it was found.
func (d *Dashboard) Select(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.indexLocked(id) < 0 {
		d.selected = ""
		return false
	}
	d.selected = id
	return true
}

func (d *Dashboard) ClearSelection() {
	d.mu.Lock()
	d.selected = ""
	d.mu.Unlock()
}

// Selected returns the current version of the selected incident, or nil.
func (d *Dashboard) Selected() *incident.Incident {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.indexLocked(d.selected)
	if i < 0 {
		return nil
	}
	inc := d.incidents[i]
	return &inc
}

func (d *Dashboard) IsResolving(id string) bool {
	return d.resolving.Has(id)
}

// IsDisplayedResolved reports whether id should be shown as resolved: either
// the stored flag is set or a resolve call for it is in flight.
func (d *Dashboard) IsDisplayedResolved(id string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := d.indexLocked(id)
	if i < 0 {
		return false
	}
	return d.incidents[i].Resolved || d.resolving.Has(id)
}

// Resolve issues a resolve call for id. The incident displays as resolved
// until the call returns. On success the server's record replaces the local
// one in place; on failure the local record is left untouched and the error
// is returned wrapped in ErrResolveFailed.
func (d *Dashboard) Resolve(ctx context.Context, id string) (*incident.Incident, error) {
	d.mu.Lock()
	if d.resolving.Has(id) {
		d.mu.Unlock()
		return nil, ErrAlreadyResolving
	}
	if d.resolving.Len() >= d.opts.MaxPending {
		d.resolving.DeleteExpired()
		if d.resolving.Len() >= d.opts.MaxPending {
			d.mu.Unlock()
			return nil, ErrTooManyPending
		}
	}
	d.attempt++
	attempt := d.attempt
	d.resolving.Set(id, attempt, ttlcache.DefaultTTL)
	d.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, d.opts.ResolveTimeout)
	defer cancel()
	updated, err := d.api.Resolve(callCtx, id)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.releaseLocked(id, attempt)

	if err != nil {
		d.log.Warn().Err(err).Str("incident_id", id).Msg("resolve failed, rolled back")
		return nil, fmt.Errorf("%w %s: %w", ErrResolveFailed, id, err)
	}

	if i := d.indexLocked(updated.ID); i >= 0 {
		d.incidents[i] = *updated
	}
	d.log.Info().
		Str("incident_id", updated.ID).
		Bool("resolved", updated.Resolved).
		Msg("incident updated")

	out := *updated
	return &out, nil
}

// releaseLocked removes the marker only if it still belongs to this attempt;
// an expired marker may already have been replaced by a newer call.
func (d *Dashboard) releaseLocked(id string, attempt uint64) {
	item := d.resolving.Get(id)
	if item != nil && item.Value() == attempt {
		d.resolving.Delete(id)
	}
}

func (d *Dashboard) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range d.incidents {
		if d.incidents[i].ID == id {
			return i
		}
	}
	return -1
}
