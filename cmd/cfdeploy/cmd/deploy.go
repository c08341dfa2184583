package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joeblew999/cfdeploy/internal/deploy"
)

// DeployCmd deploys every function of the service as its own worker script
var DeployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy all functions as worker scripts and register their routes",
	Long: `Deploy all functions of the service (multi-script mode).

For each function, in manifest order:
  1. Bundle with webpack if the function sets 'webpack'
  2. Upload the script to /accounts/{accountId}/workers/scripts/{name}
  3. Register one route per http event in /zones/{zoneId}/workers/routes

The first failure stops the deploy. Routes registered before the failure
stay live.

Environment:
  CLOUDFLARE_API_TOKEN    API token (or CLOUDFLARE_AUTH_EMAIL + CLOUDFLARE_AUTH_KEY)
  CLOUDFLARE_ACCOUNT_ID   Used when provider.config.accountId is empty
  CLOUDFLARE_ZONE_ID      Used when provider.config.zoneId is empty

Examples:
  cfdeploy deploy
  cfdeploy deploy -c services/api/cfdeploy.yaml
  cfdeploy deploy --json -q '.routesResponse[][].result.id'
  cfdeploy deploy function -f hello`,
	Args: cobra.NoArgs,
	RunE: runDeploy,
}

var deployFunctionName string

var deployFunctionCmd = &cobra.Command{
	Use:   "function",
	Short: "Deploy a single function",
	Long: `Deploy a single function: bundle (if requested), upload its script and
register its routes.

Example:
  cfdeploy deploy function -f hello`,
	Args: cobra.NoArgs,
	RunE: runDeployFunction,
}

func init() {
	addServiceFlags(DeployCmd)
	addOutputFlags(DeployCmd)
	addBundleFlags(DeployCmd)

	addServiceFlags(deployFunctionCmd)
	addOutputFlags(deployFunctionCmd)
	addBundleFlags(deployFunctionCmd)
	deployFunctionCmd.Flags().StringVarP(&deployFunctionName, "function", "f", "", "Function to deploy")
	_ = deployFunctionCmd.MarkFlagRequired("function")

	DeployCmd.AddCommand(deployFunctionCmd)
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := setupDeployer(cmd)
	if err != nil {
		return err
	}

	result, err := d.DeployAll(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "Deploy failed: %v\n", err)
		return err
	}

	if jsonOutput || jsonQuery != "" {
		return writeJSON(cmd.OutOrStdout(), result, jsonQuery)
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Deployed %d script(s)\n", len(result.WorkerScriptResponse))
	return nil
}

func runDeployFunction(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d, err := setupDeployer(cmd)
	if err != nil {
		return err
	}

	result, err := d.Deploy(ctx, deployFunctionName)
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "Deploy failed: %v\n", err)
		return err
	}

	if jsonOutput || jsonQuery != "" {
		return writeJSON(cmd.OutOrStdout(), result, jsonQuery)
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✅ Deployed %s (%d route(s))\n", deployFunctionName, len(result.RoutesResponse))
	return nil
}

func setupDeployer(cmd *cobra.Command) (*deploy.Deployer, error) {
	svc, err := loadService(cmd)
	if err != nil {
		return nil, err
	}

	d, err := newDeployer(cmd, svc, newLogger(cmd.ErrOrStderr()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", svc.Service, err)
	}
	return d, nil
}
