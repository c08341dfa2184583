package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joeblew999/cfdeploy/internal/config"
	"github.com/joeblew999/cfdeploy/internal/deploy"
	"github.com/joeblew999/cfdeploy/internal/manifest"
)

// RoutesCmd is the parent command for route inspection
var RoutesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Inspect worker routes",
}

var routesZone string

var routesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the worker routes registered in the zone",
	Long: `List the worker routes registered in the zone.

The zone is taken from --zone, then provider.config.zoneId, then
CLOUDFLARE_ZONE_ID. The manifest is optional for this command.

Examples:
  cfdeploy routes list
  cfdeploy routes list --zone 023e105f4ecef8ad9ca31a8372d0c353
  cfdeploy routes list -q '.result[] | "\(.pattern) -> \(.script)"'`,
	Args: cobra.NoArgs,
	RunE: runRoutesList,
}

func init() {
	addServiceFlags(routesListCmd)
	addOutputFlags(routesListCmd)
	routesListCmd.Flags().StringVar(&routesZone, "zone", "", "Zone ID (overrides the manifest)")

	RoutesCmd.AddCommand(routesListCmd)
}

// workerRoute is one entry of the list routes result.
type workerRoute struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Script  string `json:"script"`
}

func runRoutesList(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil && routesZone == "" {
		return err
	}

	zone, err := zoneID(svc, routesZone)
	if err != nil {
		return err
	}

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return fmt.Errorf("cloudflare credentials: %w", err)
	}

	log := newLogger(cmd.ErrOrStderr())
	api := newAPIClient(creds, log)
	if svc == nil {
		svc = &manifest.Service{}
	}
	d := deploy.New(deploy.Config{ZoneID: zone}, deploy.NewServiceHost(svc, nil), api, nil, deploy.WithLogger(log))

	resp, err := d.ListRoutes(cmd.Context(), zone)
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "Listing routes failed: %v\n", err)
		return err
	}

	if jsonOutput || jsonQuery != "" {
		return writeJSON(cmd.OutOrStdout(), resp, jsonQuery)
	}

	var routes []workerRoute
	if err := resp.DecodeResult(&routes); err != nil {
		return fmt.Errorf("unexpected routes result: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(routes) == 0 {
		fmt.Fprintln(out, "No routes in zone", zone)
		return nil
	}
	for _, r := range routes {
		script := r.Script
		if script == "" {
			script = color.HiBlackString("(disabled)")
		}
		fmt.Fprintf(out, "%-50s %s\n", r.Pattern, script)
	}
	return nil
}
