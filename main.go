// cfdeploy - Deploy multi-script Cloudflare Workers services
//
// Uploads one worker script per function declared in cfdeploy.yaml and
// registers the function's http events as routes in the zone.
package main

import (
	"os"

	// Bootstrap MUST be imported first to set the log level before anything logs
	_ "github.com/joeblew999/cfdeploy/internal/bootstrap"

	"github.com/joeblew999/cfdeploy/cmd/cfdeploy/cmd"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "cfdeploy",
		Short: "Deploy worker scripts and routes to Cloudflare",
		Long: `cfdeploy deploys a multi-script Cloudflare Workers service.

Each function in cfdeploy.yaml becomes its own worker script, and each of
its http events becomes a route in the configured zone.

TYPICAL WORKFLOW:
  1. cfdeploy info           # Check functions, scripts and routes
  2. cfdeploy deploy         # Upload scripts and register routes
  3. cfdeploy routes list    # See what is live in the zone

KEY COMMANDS:
  deploy          - Deploy all functions (or one with 'deploy function -f')
  routes list     - List worker routes in the zone
  info            - Show what a deploy would publish
  verify          - Check credentials, account and zone`,
		SilenceUsage: true,
	}

	cmd.SetVersion(Version)

	rootCmd.AddCommand(cmd.VersionCmd)
	rootCmd.AddCommand(cmd.DeployCmd)
	rootCmd.AddCommand(cmd.RoutesCmd)
	rootCmd.AddCommand(cmd.InfoCmd)
	rootCmd.AddCommand(cmd.VerifyCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
