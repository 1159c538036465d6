package dashboard

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"incident-dashboard/internal/domain/incident"
)

// Counts returns the number of active and resolved incidents as displayed,
// so an in-flight resolve already counts as resolved.
func (d *Dashboard) Counts() (active, resolved int) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.incidents {
		if d.incidents[i].Resolved || d.resolving.Has(d.incidents[i].ID) {
			resolved++
		} else {
			active++
		}
	}
	return active, resolved
}

// FormatDuration renders end-start as "m:ss", or "Ongoing" when end is nil.
func FormatDuration(start time.Time, end *time.Time) string {
	inc := incident.Incident{TsStart: start, TsEnd: end}
	if inc.Ongoing() {
		return "Ongoing"
	}
	d := inc.Duration()
	if d < 0 {
		d = 0
	}
	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// FormatClock renders the wall-clock time of t as "03:04 PM".
func FormatClock(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("03:04 PM")
}

// Render writes the player pane and the incident list to w.
func (d *Dashboard) Render(w io.Writer) error {
	if !d.Loaded() {
		_, err := fmt.Fprint(w, "Loading incidents...\n")
		return err
	}

	incidents := d.Incidents()
	selected := d.Selected()
	active, resolved := d.Counts()

	if selected != nil {
		if _, err := fmt.Fprintf(w, "Playing: %s - %s\n\n", selected.Type, selected.Camera.Name); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprint(w, "Select an incident to view\n\n"); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "Incident List (%d)\tActive: %d\tResolved: %d\n", len(incidents), active, resolved); err != nil {
		return err
	}
	if len(incidents) == 0 {
		_, err := fmt.Fprint(w, "No incidents detected\nAll systems secure\n")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTYPE\tCAMERA\tLOCATION\tTIME\tDURATION\tSTATUS")
	for _, inc := range incidents {
		marker := ""
		if selected != nil && selected.ID == inc.ID {
			marker = ">"
		}
		status := "Active"
		switch {
		case d.IsResolving(inc.ID):
			status = "Resolving..."
		case inc.Resolved:
			status = "Resolved"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			marker,
			inc.ID,
			inc.Type,
			inc.Camera.Name,
			inc.Camera.Location,
			FormatClock(inc.TsStart, d.opts.Location),
			FormatDuration(inc.TsStart, inc.TsEnd),
			status,
		)
	}
	return tw.Flush()
}
