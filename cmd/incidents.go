package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"incident-dashboard/internal/client"
	"incident-dashboard/internal/dashboard"
	"incident-dashboard/internal/domain/incident"
)

var (
	listResolved string
	jsonOutput   bool
)

// filteredAPI narrows every List call to one resolved state.
type filteredAPI struct {
	dashboard.IncidentAPI
	resolved *bool
}

func (f filteredAPI) List(ctx context.Context, _ *bool) ([]incident.Incident, error) {
	return f.IncidentAPI.List(ctx, f.resolved)
}

func newDashboard(filter *bool) *dashboard.Dashboard {
	var api dashboard.IncidentAPI = client.New(client.Config{
		BaseURL: cfg.Dashboard.APIURL,
		Token:   cfg.Dashboard.APIToken,
		Timeout: cfg.Dashboard.ResolveTimeout,
	})
	if filter != nil {
		api = filteredAPI{IncidentAPI: api, resolved: filter}
	}
	return dashboard.New(api, dashboard.Options{
		ResolveTimeout: cfg.Dashboard.ResolveTimeout,
		MaxPending:     cfg.Dashboard.MaxPending,
	}, appLog)
}

func parseResolvedFlag(raw string) (*bool, error) {
	switch raw {
	case "":
		return nil, nil
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	default:
		return nil, fmt.Errorf("invalid --resolved value %q, want true or false", raw)
	}
}

var incidentsCmd = &cobra.Command{
	Use:   "incidents",
	Short: "Browse and resolve incidents through the API",
}

var incidentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List incidents, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := parseResolvedFlag(listResolved)
		if err != nil {
			return err
		}

		d := newDashboard(filter)
		defer d.Close()

		if err := d.Load(cmd.Context()); err != nil {
			return fmt.Errorf("fetch incidents: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(d.Incidents())
		}
		return d.Render(cmd.OutOrStdout())
	},
}

var incidentsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Toggle the resolved state of an incident",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		d := newDashboard(nil)
		defer d.Close()

		if err := d.Load(cmd.Context()); err != nil {
			return fmt.Errorf("fetch incidents: %w", err)
		}
		if !d.Select(id) {
			return fmt.Errorf("incident %s not found", id)
		}

		updated, err := d.Resolve(cmd.Context(), id)
		if err != nil {
			return err
		}

		state := "reopened"
		if updated.Resolved {
			state = "resolved"
		}
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(updated)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Incident %s %s.\n\n", id, state)
		return d.Render(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(incidentsCmd)
	incidentsCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")

	incidentsCmd.AddCommand(incidentsListCmd)
	incidentsListCmd.Flags().StringVar(&listResolved, "resolved", "", "only incidents with this resolved state (true or false)")

	incidentsCmd.AddCommand(incidentsResolveCmd)
}
