package dashboard

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"incident-dashboard/internal/domain/incident"
)

type fakeAPI struct {
	mu        sync.Mutex
	list      []incident.Incident
	listErr   error
	listCalls int32

	resolveCalls int32
	resolveFn    func(ctx context.Context, call int32, id string) (*incident.Incident, error)
}

func (f *fakeAPI) List(_ context.Context, _ *bool) ([]incident.Incident, error) {
	atomic.AddInt32(&f.listCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]incident.Incident, len(f.list))
	copy(out, f.list)
	return out, nil
}

func (f *fakeAPI) Resolve(ctx context.Context, id string) (*incident.Incident, error) {
	call := atomic.AddInt32(&f.resolveCalls, 1)
	return f.resolveFn(ctx, call, id)
}

func flipped(inc incident.Incident) *incident.Incident {
	inc.Resolved = !inc.Resolved
	return &inc
}

func sampleIncidents() []incident.Incident {
	base := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	end := base.Add(23*time.Hour + 2*time.Minute + 30*time.Second)
	return []incident.Incident{
		{
			ID: "inc-3", Type: "Suspicious Activity", TsStart: base.Add(23 * time.Hour), TsEnd: &end,
			Camera: incident.Camera{ID: "cam-4", Name: "Parking Lot", Location: "North Side"},
		},
		{
			ID: "inc-2", Type: "Face Recognised", TsStart: base.Add(14 * time.Hour),
			Camera: incident.Camera{ID: "cam-2", Name: "Vault", Location: "Basement"},
		},
		{
			ID: "inc-1", Type: "Unauthorised Access", TsStart: base.Add(3 * time.Hour), Resolved: true,
			Camera: incident.Camera{ID: "cam-1", Name: "Shop Floor A", Location: "Ground Floor"},
		},
	}
}

func newTestDashboard(t *testing.T, api *fakeAPI, opts Options) *Dashboard {
	t.Helper()
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	d := New(api, opts, zerolog.Nop())
	t.Cleanup(d.Close)
	return d
}

func TestLoadFetchesOnce(t *testing.T) {
	api := &fakeAPI{list: sampleIncidents()}
	d := newTestDashboard(t, api, Options{})

	assert.False(t, d.Loaded())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Load(context.Background()))
		}()
	}
	wg.Wait()
	require.NoError(t, d.Load(context.Background()))

	assert.EqualValues(t, 1, atomic.LoadInt32(&api.listCalls))
	assert.True(t, d.Loaded())

	got := d.Incidents()
	require.Len(t, got, 3)
	assert.Equal(t, "inc-3", got[0].ID)
	assert.Equal(t, "inc-1", got[2].ID)
}

func TestLoadFailureLeavesListEmpty(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("connection refused")}
	d := newTestDashboard(t, api, Options{})

	err := d.Load(context.Background())
	require.Error(t, err)
	assert.Empty(t, d.Incidents())
	assert.True(t, d.Loaded())
	assert.Equal(t, err, d.LoadErr())

	require.Error(t, d.Load(context.Background()))
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.listCalls))
}

func TestIncidentsReturnsCopy(t *testing.T) {
	d := newTestDashboard(t, &fakeAPI{list: sampleIncidents()}, Options{})
	require.NoError(t, d.Load(context.Background()))

	got := d.Incidents()
	got[0].Type = "mutated"
	assert.Equal(t, "Suspicious Activity", d.Incidents()[0].Type)
}

func TestSelect(t *testing.T) {
	api := &fakeAPI{list: sampleIncidents()}
	d := newTestDashboard(t, api, Options{})
	require.NoError(t, d.Load(context.Background()))

	assert.Nil(t, d.Selected())

	assert.True(t, d.Select("inc-2"))
	sel := d.Selected()
	require.NotNil(t, sel)
	assert.Equal(t, "Vault", sel.Camera.Name)

	assert.True(t, d.Select("inc-1"))
	assert.Equal(t, "inc-1", d.Selected().ID)

	assert.False(t, d.Select("nope"))
	assert.Nil(t, d.Selected())

	d.Select("inc-3")
	d.ClearSelection()
	assert.Nil(t, d.Selected())

	assert.EqualValues(t, 0, atomic.LoadInt32(&api.resolveCalls))
}

func TestResolveOptimisticThenConfirmed(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{list: sampleIncidents()}
	api.resolveFn = func(_ context.Context, _ int32, id string) (*incident.Incident, error) {
		<-release
		for _, inc := range sampleIncidents() {
			if inc.ID == id {
				return flipped(inc), nil
			}
		}
		return nil, errors.New("unknown")
	}
	d := newTestDashboard(t, api, Options{})
	require.NoError(t, d.Load(context.Background()))
	d.Select("inc-2")

	assert.False(t, d.IsDisplayedResolved("inc-2"))
	active, resolved := d.Counts()
	assert.Equal(t, 2, active)
	assert.Equal(t, 1, resolved)

	done := make(chan error, 1)
	go func() {
		_, err := d.Resolve(context.Background(), "inc-2")
		done <- err
	}()

	assert.Eventually(t, func() bool { return d.IsResolving("inc-2") }, time.Second, 5*time.Millisecond)
	assert.True(t, d.IsDisplayedResolved("inc-2"))
	assert.False(t, d.Incidents()[1].Resolved, "stored flag changes only after the server answers")
	active, resolved = d.Counts()
	assert.Equal(t, 1, active)
	assert.Equal(t, 2, resolved)

	close(release)
	require.NoError(t, <-done)

	assert.False(t, d.IsResolving("inc-2"))
	assert.True(t, d.IsDisplayedResolved("inc-2"))

	got := d.Incidents()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"inc-3", "inc-2", "inc-1"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.True(t, got[1].Resolved)

	sel := d.Selected()
	require.NotNil(t, sel)
	assert.True(t, sel.Resolved)
}

func TestResolveFlipsResolvedIncidentBack(t *testing.T) {
	api := &fakeAPI{list: sampleIncidents()}
	api.resolveFn = func(_ context.Context, _ int32, id string) (*incident.Incident, error) {
		return flipped(sampleIncidents()[2]), nil
	}
	d := newTestDashboard(t, api, Options{})
	require.NoError(t, d.Load(context.Background()))

	got, err := d.Resolve(context.Background(), "inc-1")
	require.NoError(t, err)
	assert.False(t, got.Resolved)
	assert.False(t, d.IsDisplayedResolved("inc-1"))
}

func TestResolveFailureRollsBack(t *testing.T) {
	cause := errors.New("status 500")
	api := &fakeAPI{list: sampleIncidents()}
	api.resolveFn = func(context.Context, int32, string) (*incident.Incident, error) {
		return nil, cause
	}
	d := newTestDashboard(t, api, Options{})
	require.NoError(t, d.Load(context.Background()))
	before := d.Incidents()

	_, err := d.Resolve(context.Background(), "inc-3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolveFailed)
	assert.ErrorIs(t, err, cause)

	assert.False(t, d.IsResolving("inc-3"))
	assert.False(t, d.IsDisplayedResolved("inc-3"))
	assert.Equal(t, before, d.Incidents())
}

func TestResolveRejectsDuplicate(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{list: sampleIncidents()}
	api.resolveFn = func(_ context.Context, _ int32, id string) (*incident.Incident, error) {
		<-release
		return flipped(sampleIncidents()[0]), nil
	}
	d := newTestDashboard(t, api, Options{})
	require.NoError(t, d.Load(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := d.Resolve(context.Background(), "inc-3")
		done <- err
	}()
	require.Eventually(t, func() bool { return d.IsResolving("inc-3") }, time.Second, 5*time.Millisecond)

	_, err := d.Resolve(context.Background(), "inc-3")
	assert.ErrorIs(t, err, ErrAlreadyResolving)

	close(release)
	require.NoError(t, <-done)
	assert.EqualValues(t, 1, atomic.LoadInt32(&api.resolveCalls))
}

func TestResolveBoundsPending(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{list: sampleIncidents()}
	api.resolveFn = func(_ context.Context, _ int32, id string) (*incident.Incident, error) {
		<-release
		return flipped(sampleIncidents()[0]), nil
	}
	d := newTestDashboard(t, api, Options{MaxPending: 1})
	require.NoError(t, d.Load(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := d.Resolve(context.Background(), "inc-3")
		done <- err
	}()
	require.Eventually(t, func() bool { return d.IsResolving("inc-3") }, time.Second, 5*time.Millisecond)

	_, err := d.Resolve(context.Background(), "inc-2")
	assert.ErrorIs(t, err, ErrTooManyPending)
	assert.False(t, d.IsDisplayedResolved("inc-2"))

	close(release)
	require.NoError(t, <-done)
}

func TestResolveTimesOut(t *testing.T) {
	api := &fakeAPI{list: sampleIncidents()}
	api.resolveFn = func(ctx context.Context, _ int32, _ string) (*incident.Incident, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	d := newTestDashboard(t, api, Options{ResolveTimeout: 50 * time.Millisecond})
	require.NoError(t, d.Load(context.Background()))

	_, err := d.Resolve(context.Background(), "inc-2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolveFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, d.IsDisplayedResolved("inc-2"))
}

func TestExpiredMarkerDoesNotOutliveTimeout(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})
	api := &fakeAPI{list: sampleIncidents()}
	api.resolveFn = func(_ context.Context, call int32, _ string) (*incident.Incident, error) {
		// ignores ctx on purpose
		if call == 1 {
			<-first
			return nil, errors.New("late failure")
		}
		<-second
		return flipped(sampleIncidents()[1]), nil
	}
	d := newTestDashboard(t, api, Options{ResolveTimeout: 200 * time.Millisecond})
	require.NoError(t, d.Load(context.Background()))

	firstDone := make(chan error, 1)
	go func() {
		_, err := d.Resolve(context.Background(), "inc-2")
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return d.IsResolving("inc-2") }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return !d.IsResolving("inc-2") }, 2*time.Second, 5*time.Millisecond)

	secondDone := make(chan error, 1)
	go func() {
		_, err := d.Resolve(context.Background(), "inc-2")
		secondDone <- err
	}()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&api.resolveCalls) == 2 }, time.Second, time.Millisecond)

	close(first)
	require.Error(t, <-firstDone)
	assert.True(t, d.IsResolving("inc-2"), "a stale completion must not clear a newer marker")

	close(second)
	require.NoError(t, <-secondDone)
	assert.False(t, d.IsResolving("inc-2"))
	assert.True(t, d.Incidents()[1].Resolved)
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := start.Add(d)
		return &ts
	}

	tests := []struct {
		name string
		end  *time.Time
		want string
	}{
		{"ongoing", nil, "Ongoing"},
		{"zero", at(0), "0:00"},
		{"seconds padded", at(5 * time.Second), "0:05"},
		{"minutes and seconds", at(2*time.Minute + 30*time.Second), "2:30"},
		{"over an hour", at(75*time.Minute + 9*time.Second), "75:09"},
		{"fractional seconds truncated", at(59*time.Second + 900*time.Millisecond), "0:59"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(start, tt.end))
		})
	}
}

func TestFormatClock(t *testing.T) {
	ts := time.Date(2026, 10, 18, 23, 5, 0, 0, time.UTC)
	assert.Equal(t, "11:05 PM", FormatClock(ts, time.UTC))
	assert.Equal(t, "03:00 AM", FormatClock(time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC), time.UTC))
}

func TestRender(t *testing.T) {
	d := newTestDashboard(t, &fakeAPI{list: sampleIncidents()}, Options{})
	require.NoError(t, d.Load(context.Background()))
	d.Select("inc-3")

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "Playing: Suspicious Activity - Parking Lot")
	assert.Contains(t, out, "Incident List (3)")
	assert.Contains(t, out, "Active: 2")
	assert.Contains(t, out, "Resolved: 1")
	assert.Contains(t, out, "11:00 PM")
	assert.Contains(t, out, "2:30")
	assert.Contains(t, out, "Ongoing")
	assert.Contains(t, out, "Resolved\n")
}

func TestRenderEmpty(t *testing.T) {
	d := newTestDashboard(t, &fakeAPI{}, Options{})
	require.NoError(t, d.Load(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "Select an incident to view")
	assert.Contains(t, out, "No incidents detected")
	assert.Contains(t, out, "All systems secure")
}

func TestRenderBeforeLoad(t *testing.T) {
	api := &fakeAPI{list: sampleIncidents()}
	d := newTestDashboard(t, api, Options{})

	var buf bytes.Buffer
	require.NoError(t, d.Render(&buf))
	assert.Equal(t, "Loading incidents...\n", buf.String())
	assert.EqualValues(t, 0, atomic.LoadInt32(&api.listCalls))
}
