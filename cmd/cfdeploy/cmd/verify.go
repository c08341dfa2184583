package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joeblew999/cfdeploy/internal/config"
)

// VerifyCmd checks credentials against the account and zone of the service
var VerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify Cloudflare credentials, account and zone",
	Long: `Verify that the configured credentials are valid and can reach the
service's account and zone. Makes read-only API calls.

Example:
  cfdeploy verify`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	addServiceFlags(VerifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ credentials: %v\n", err)
		return err
	}
	provider, err := config.ResolveProvider(config.Provider{
		AccountID: svc.Provider.Config.AccountID,
		ZoneID:    svc.Provider.Config.ZoneID,
	})
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ provider: %v\n", err)
		return err
	}

	ctx := cmd.Context()
	api := newAPIClient(creds, newLogger(cmd.ErrOrStderr()))
	out := cmd.OutOrStdout()

	status, err := api.VerifyToken(ctx)
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ token: %v\n", err)
		return err
	}
	if status != nil {
		fmt.Fprintf(out, "✓ token %s is %s\n", status.ID, status.Status)
	} else {
		fmt.Fprintln(out, "✓ using global API key")
	}

	acc, err := api.GetAccount(ctx, provider.AccountID)
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ account %s: %v\n", provider.AccountID, err)
		return err
	}
	fmt.Fprintf(out, "✓ account %s (%s)\n", acc.ID, acc.Name)

	zone, err := api.GetZone(ctx, provider.ZoneID)
	if err != nil {
		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "✗ zone %s: %v\n", provider.ZoneID, err)
		return err
	}
	fmt.Fprintf(out, "✓ zone %s (%s)\n", zone.ID, zone.Name)

	return nil
}
