package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joeblew999/cfdeploy/internal/config"
)

// CheckResult holds the result of a manifest validation check.
type CheckResult struct {
	Name     string
	Path     string
	Errors   []string
	Warnings []string
}

// AddError adds an error to the result.
func (r *CheckResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddWarning adds a warning to the result.
func (r *CheckResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// IsValid returns true if there are no errors.
func (r *CheckResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Check performs deep validation of a manifest against its filesystem.
// servicePath is the directory the function scripts are resolved against.
func Check(s *Service, servicePath string) CheckResult {
	result := CheckResult{
		Name: s.Service,
		Path: servicePath,
	}

	if s.Functions.Names() == nil {
		result.AddError("no functions section (multi-script deploy needs one)")
		return result
	}
	if s.Functions.Len() == 0 {
		result.AddWarning("functions section is empty, nothing to deploy")
	}

	for _, name := range s.Functions.Names() {
		fn, _ := s.Functions.Get(name)

		// Bundled functions are built before the script is read
		if !fn.Webpack.Enabled {
			scriptPath := filepath.Join(servicePath, fn.Script+config.ScriptExt)
			if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
				result.AddError(fmt.Sprintf("function '%s': script '%s' does not exist", name, fn.Script+config.ScriptExt))
			}
		}

		if fn.Webpack.Config != "" {
			if _, err := os.Stat(filepath.Join(servicePath, fn.Webpack.Config)); os.IsNotExist(err) {
				result.AddError(fmt.Sprintf("function '%s': webpack config '%s' does not exist", name, fn.Webpack.Config))
			}
		}

		httpEvents := 0
		for i, ev := range fn.Events {
			if ev.HTTP == nil {
				result.AddWarning(fmt.Sprintf("function '%s': events[%d] has no http trigger and is skipped", name, i))
				continue
			}
			httpEvents++
		}
		if httpEvents == 0 {
			result.AddWarning(fmt.Sprintf("function '%s' has no routes", name))
		}
	}

	if s.Provider.Config.AccountID == "" && os.Getenv(config.KeyAccountID) == "" {
		result.AddWarning("provider.config.accountId is empty and " + config.KeyAccountID + " is unset")
	}
	if s.Provider.Config.ZoneID == "" && os.Getenv(config.KeyZoneID) == "" {
		result.AddWarning("provider.config.zoneId is empty and " + config.KeyZoneID + " is unset")
	}

	return result
}
