package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joeblew999/cfdeploy/internal/bundler"
	"github.com/joeblew999/cfdeploy/internal/cfapi"
	"github.com/joeblew999/cfdeploy/internal/config"
	"github.com/joeblew999/cfdeploy/internal/deploy"
	"github.com/joeblew999/cfdeploy/internal/manifest"
	"github.com/joeblew999/cfdeploy/internal/workerscript"
)

// Flags shared by every command that reads the service manifest.
var (
	manifestPath string
	envFilePath  string
	strictEnv    bool
	apiTimeout   time.Duration
	jsonOutput   bool
	jsonQuery    string
	noBundle     bool
	bundleCmd    []string
)

func addServiceFlags(c *cobra.Command) {
	c.Flags().StringVarP(&manifestPath, "config", "c", config.ManifestFileName, "Service manifest")
	c.Flags().StringVar(&envFilePath, "env-file", config.EnvFileName, "Load environment variables from file")
	c.Flags().BoolVar(&strictEnv, "strict-env", false, "Fail if the manifest references an unset variable")
	c.Flags().DurationVar(&apiTimeout, "api-timeout", config.DefaultAPITimeout, "Timeout for each Cloudflare API request")
}

// newAPIClient returns a Cloudflare client honouring --api-timeout.
func newAPIClient(creds config.Credentials, log zerolog.Logger) *cfapi.Client {
	return cfapi.NewClient(creds,
		cfapi.WithHTTPClient(&http.Client{Timeout: apiTimeout}),
		cfapi.WithLogger(log),
	)
}

func addOutputFlags(c *cobra.Command) {
	c.Flags().BoolVar(&jsonOutput, "json", false, "Print the API responses as JSON")
	c.Flags().StringVarP(&jsonQuery, "query", "q", "", "jq query applied to the JSON output (implies --json)")
}

func addBundleFlags(c *cobra.Command) {
	c.Flags().BoolVar(&noBundle, "no-bundle", false, "Skip webpack and deploy the previous bundle output")
	c.Flags().StringArrayVar(&bundleCmd, "bundle-cmd", nil, "Bundle command and arguments (repeatable, default: npx webpack)")
}

// newLogger returns the console logger used by all commands.
func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

// loadService loads the .env file and the manifest. Unless --env-file is
// given, the .env next to the manifest is used.
func loadService(c *cobra.Command) (*manifest.Service, error) {
	envFile := envFilePath
	if !c.Flags().Changed("env-file") {
		envFile = filepath.Join(filepath.Dir(manifestPath), config.EnvFileName)
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	loader := manifest.NewLoader()
	loader.Strict = strictEnv
	return loader.LoadFile(manifestPath)
}

// newDeployer wires the API client, code generator and bundler for svc.
func newDeployer(c *cobra.Command, svc *manifest.Service, log zerolog.Logger) (*deploy.Deployer, error) {
	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return nil, fmt.Errorf("cloudflare credentials: %w", err)
	}

	provider, err := config.ResolveProvider(config.Provider{
		AccountID: svc.Provider.Config.AccountID,
		ZoneID:    svc.Provider.Config.ZoneID,
	})
	if err != nil {
		return nil, fmt.Errorf("provider config: %w", err)
	}

	api := newAPIClient(creds, log)
	buildDir := config.BuildDir(svc.Path)
	gen := workerscript.New(svc.Path, buildDir)

	bopts := []bundler.Option{bundler.WithLogger(log), bundler.WithBuildDir(buildDir)}
	if len(bundleCmd) > 0 {
		bopts = append(bopts, bundler.WithCommand(bundleCmd...))
	}

	errOut := c.ErrOrStderr()
	host := deploy.NewServiceHost(svc, func(msg string) {
		fmt.Fprintln(errOut, color.CyanString("cfdeploy:")+" "+msg)
	})

	return deploy.New(
		deploy.Config{
			AccountID: provider.AccountID,
			ZoneID:    provider.ZoneID,
			Bundle:    !noBundle,
		},
		host, api, gen,
		deploy.WithBundler(bundler.New(svc.Path, bopts...)),
		deploy.WithLogger(log),
	), nil
}

// zoneID resolves the zone for commands that only need the zone scope.
func zoneID(svc *manifest.Service, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if svc != nil && svc.Provider.Config.ZoneID != "" {
		return svc.Provider.Config.ZoneID, nil
	}
	if z := os.Getenv(config.KeyZoneID); z != "" {
		return z, nil
	}
	return "", fmt.Errorf("zone ID is required (provider.config.zoneId, --zone or %s)", config.KeyZoneID)
}
