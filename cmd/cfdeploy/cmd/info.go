package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joeblew999/cfdeploy/internal/deploy"
	"github.com/joeblew999/cfdeploy/internal/manifest"
)

// InfoCmd shows what a deploy would do without calling the API
var InfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the functions and routes a deploy would publish",
	Long: `Show the functions and routes a deploy would publish, and check that
the referenced scripts exist. No API calls are made.

Examples:
  cfdeploy info
  cfdeploy info --json -q '.functions[].name'`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	addServiceFlags(InfoCmd)
	addOutputFlags(InfoCmd)
}

type infoFunction struct {
	Name    string    `json:"name"`
	Script  string    `json:"script"`
	Webpack bool      `json:"webpack"`
	Routes  []*string `json:"routes"`
}

type infoOutput struct {
	Service   string         `json:"service"`
	AccountID string         `json:"accountId,omitempty"`
	ZoneID    string         `json:"zoneId,omitempty"`
	Functions []infoFunction `json:"functions"`
	Errors    []string       `json:"errors,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}

	check := manifest.Check(svc, svc.Path)
	info := infoOutput{
		Service:   svc.Service,
		AccountID: svc.Provider.Config.AccountID,
		ZoneID:    svc.Provider.Config.ZoneID,
		Functions: []infoFunction{},
		Errors:    check.Errors,
		Warnings:  check.Warnings,
	}
	for _, name := range svc.FunctionNames() {
		fn, _ := svc.Function(name)
		info.Functions = append(info.Functions, infoFunction{
			Name:    fn.Name,
			Script:  fn.Script,
			Webpack: fn.Webpack.Enabled,
			Routes:  deploy.Routes(fn.Events),
		})
	}

	if jsonOutput || jsonQuery != "" {
		if err := writeJSON(cmd.OutOrStdout(), info, jsonQuery); err != nil {
			return err
		}
	} else {
		printInfo(cmd, info)
	}

	if !check.IsValid() {
		return fmt.Errorf("%s: %d problem(s) found", svc.Service, len(check.Errors))
	}
	return nil
}

func printInfo(cmd *cobra.Command, info infoOutput) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	color.New(color.FgCyan).Fprintf(out, "=== %s ===\n", info.Service)
	fmt.Fprintf(out, "account: %s\nzone:    %s\n\n", orDash(info.AccountID), orDash(info.ZoneID))

	for _, fn := range info.Functions {
		bundled := ""
		if fn.Webpack {
			bundled = color.YellowString(" [webpack]")
		}
		fmt.Fprintf(out, "%s (%s.js)%s\n", color.New(color.Bold).Sprint(fn.Name), fn.Script, bundled)
		for _, r := range fn.Routes {
			if r == nil {
				fmt.Fprintf(out, "  %s\n", color.HiBlackString("- (no http trigger)"))
				continue
			}
			fmt.Fprintf(out, "  - %s\n", *r)
		}
	}

	if len(info.Warnings) > 0 {
		fmt.Fprintln(out)
		for _, w := range info.Warnings {
			color.New(color.FgYellow).Fprintf(out, "⚠ %s\n", w)
		}
	}
	if len(info.Errors) > 0 {
		fmt.Fprintln(out)
		for _, e := range info.Errors {
			color.New(color.FgRed).Fprintf(out, "✗ %s\n", e)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
