package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleManifest = `
service: edge-api
provider:
  name: cloudflare
  config:
    accountId: ${TEST_CF_ACCOUNT}
    zoneId: zone-123
functions:
  zeta:
    name: zeta-script
    script: handlers/zeta
    events:
      - http:
          url: example.com/zeta/*
          method: GET
  alpha:
    script: alpha
    webpack: true
    events:
      - http:
          url: example.com/alpha
      - schedule: rate(1 hour)
  beta:
    script: beta
    webpack: config/webpack.beta.js
`

func TestParseKeepsFunctionOrder(t *testing.T) {
	t.Setenv("TEST_CF_ACCOUNT", "acc-42")

	s, err := NewLoader().Parse([]byte(sampleManifest), "test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if diff := cmp.Diff([]string{"zeta", "alpha", "beta"}, s.FunctionNames()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if s.Provider.Config.AccountID != "acc-42" {
		t.Errorf("Expected expanded account ID, got %q", s.Provider.Config.AccountID)
	}
	if s.Provider.Config.ZoneID != "zone-123" {
		t.Errorf("Unexpected zone ID %q", s.Provider.Config.ZoneID)
	}
}

func TestParseFunctionFields(t *testing.T) {
	t.Setenv("TEST_CF_ACCOUNT", "acc")

	s, err := NewLoader().Parse([]byte(sampleManifest), "test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	zeta, err := s.Function("zeta")
	if err != nil {
		t.Fatal(err)
	}
	if zeta.Name != "zeta-script" {
		t.Errorf("Expected explicit name, got %q", zeta.Name)
	}
	if zeta.Events[0].HTTP == nil || zeta.Events[0].HTTP.Method != "GET" {
		t.Errorf("Unexpected zeta events: %+v", zeta.Events)
	}

	alpha, _ := s.Function("alpha")
	if alpha.Name != "alpha" {
		t.Errorf("Expected name to default to key, got %q", alpha.Name)
	}
	if !alpha.Webpack.Enabled || alpha.Webpack.Config != "" {
		t.Errorf("Expected bool webpack, got %+v", alpha.Webpack)
	}
	if len(alpha.Events) != 2 || alpha.Events[1].HTTP != nil {
		t.Errorf("Expected a non-http second event, got %+v", alpha.Events)
	}

	beta, _ := s.Function("beta")
	if !beta.Webpack.Enabled || beta.Webpack.Config != "config/webpack.beta.js" {
		t.Errorf("Expected webpack config path, got %+v", beta.Webpack)
	}

	if _, err := s.Function("missing"); err == nil {
		t.Error("Expected error for undefined function")
	}
}

func TestParseWithoutFunctions(t *testing.T) {
	s, err := NewLoader().Parse([]byte("service: empty\n"), "test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.FunctionNames() != nil {
		t.Errorf("Expected nil function names, got %v", s.FunctionNames())
	}

	s, err = NewLoader().Parse([]byte("service: empty\nfunctions: {}\n"), "test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if names := s.FunctionNames(); names == nil || len(names) != 0 {
		t.Errorf("Expected empty non-nil function names, got %#v", names)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing service", "functions:\n  a:\n    script: a\n"},
		{"missing script", "service: s\nfunctions:\n  a:\n    events: []\n"},
		{"empty http url", "service: s\nfunctions:\n  a:\n    script: a\n    events:\n      - http: {}\n"},
		{"duplicate function", "service: s\nfunctions:\n  a:\n    script: a\n  a:\n    script: b\n"},
		{"functions not a mapping", "service: s\nfunctions:\n  - a\n"},
		{"webpack not scalar", "service: s\nfunctions:\n  a:\n    script: a\n    webpack: [x]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLoader().Parse([]byte(tt.yaml), "test"); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestParseStrictEnv(t *testing.T) {
	os.Unsetenv("TEST_CF_UNSET_VAR")

	l := NewLoader()
	l.Strict = true
	if _, err := l.Parse([]byte("service: ${TEST_CF_UNSET_VAR}\n"), "test"); err == nil {
		t.Error("Expected strict mode to fail on unset variable")
	}
}

func TestLoadDirSetsPath(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("TEST_CF_ACCOUNT", "acc")

	if err := os.WriteFile(filepath.Join(tmpDir, "cfdeploy.yaml"), []byte(sampleManifest), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewLoader().LoadDir(tmpDir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}

	want, _ := filepath.Abs(tmpDir)
	if s.Path != want {
		t.Errorf("Expected path %s, got %s", want, s.Path)
	}
}

func TestFunctionsAddKeepsOrder(t *testing.T) {
	var f Functions
	f.add("one", Function{Script: "one"})
	f.add("two", Function{Script: "two"})
	f.add("one", Function{Script: "uno"})

	if diff := cmp.Diff([]string{"one", "two"}, f.Names()); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	fn, ok := f.Get("one")
	if !ok || fn.Script != "uno" || fn.Name != "one" {
		t.Errorf("Unexpected function: %+v", fn)
	}
}

func TestCheckEmptyFunctions(t *testing.T) {
	s, err := NewLoader().Parse([]byte("service: svc\nfunctions: {}\n"), "test")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	result := Check(s, t.TempDir())
	if !result.IsValid() {
		t.Errorf("Expected empty functions to be valid, got %v", result.Errors)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "nothing to deploy") {
		t.Errorf("Expected nothing-to-deploy warning, got %v", result.Warnings)
	}
}

func TestCheck(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "")
	t.Setenv("CLOUDFLARE_ZONE_ID", "")

	if err := os.WriteFile(filepath.Join(tmpDir, "present.js"), []byte("//"), 0644); err != nil {
		t.Fatal(err)
	}

	var s Service
	s.Service = "svc"
	s.Functions.add("present", Function{Script: "present", Events: []Event{{HTTP: &HTTPEvent{URL: "/p"}}}})
	s.Functions.add("absent", Function{Script: "absent"})
	s.Functions.add("bundled", Function{Script: "src/bundled", Webpack: Webpack{Enabled: true}})

	result := Check(&s, tmpDir)
	if result.IsValid() {
		t.Fatal("Expected missing script to be an error")
	}
	if len(result.Errors) != 1 {
		t.Errorf("Expected 1 error (bundled scripts are not checked), got %v", result.Errors)
	}
	// absent + bundled have no routes, plus account and zone warnings
	if len(result.Warnings) != 4 {
		t.Errorf("Expected 4 warnings, got %v", result.Warnings)
	}
}
