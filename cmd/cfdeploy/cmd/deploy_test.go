package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joeblew999/cfdeploy/internal/config"
)

const testManifest = `service: edge
provider:
  name: cloudflare
  config:
    accountId: acc
    zoneId: zone
functions:
  a:
    script: a
    events:
      - http:
          url: example.com/a
  b:
    script: b
    events:
      - http:
          url: example.com/b1
      - http:
          url: example.com/b2
`

// fakeCloudflare records requests and answers with a success envelope.
type fakeCloudflare struct {
	mu           sync.Mutex
	requests     []string
	contentTypes []string
	auth         []string
	failPath     string
	delay        time.Duration
}

func (f *fakeCloudflare) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path+" "+string(body))
	f.contentTypes = append(f.contentTypes, r.Header.Get("Content-Type"))
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if f.failPath != "" && strings.Contains(string(body), f.failPath) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"errors":[{"code":10020,"message":"duplicate route"}]}`))
		return
	}

	if r.Method == http.MethodGet {
		_, _ = w.Write([]byte(`{"success":true,"result":[{"id":"r1","pattern":"example.com/a","script":"a"}]}`))
		return
	}
	_, _ = w.Write([]byte(`{"success":true,"result":{"id":"x"}}`))
}

func setupService(t *testing.T, fake *fakeCloudflare) string {
	t.Helper()

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	t.Setenv(config.KeyAPIBaseURL, srv.URL)
	t.Setenv(config.KeyAPIToken, "tok")
	t.Setenv(config.KeyAccountID, "")
	t.Setenv(config.KeyZoneID, "")

	dir := t.TempDir()
	files := map[string]string{
		"cfdeploy.yaml": testManifest,
		"a.js":          "// a",
		"b.js":          "// b",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "cfdeploy.yaml")
}

func resetFlags() {
	for _, c := range []*cobra.Command{DeployCmd, deployFunctionCmd, routesListCmd, InfoCmd, VerifyCmd} {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			if _, ok := f.Value.(pflag.SliceValue); !ok {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}
	jsonOutput = false
	jsonQuery = ""
	noBundle = false
	bundleCmd = nil
	deployFunctionName = ""
	routesZone = ""
}

func TestDeployCommand(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)

	var stdout, stderr bytes.Buffer
	DeployCmd.SetOut(&stdout)
	DeployCmd.SetErr(&stderr)
	DeployCmd.SetArgs([]string{"-c", path, "--json"})

	if err := DeployCmd.Execute(); err != nil {
		t.Fatalf("deploy failed: %v\n%s", err, stderr.String())
	}

	want := []string{
		"PUT /accounts/acc/workers/scripts/a // a",
		`POST /zones/zone/workers/routes {"pattern":"example.com/a","script":"a"}`,
		"PUT /accounts/acc/workers/scripts/b // b",
		`POST /zones/zone/workers/routes {"pattern":"example.com/b1","script":"b"}`,
		`POST /zones/zone/workers/routes {"pattern":"example.com/b2","script":"b"}`,
	}
	if diff := cmp.Diff(want, fake.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	wantTypes := []string{"application/javascript", "application/json", "application/javascript", "application/json", "application/json"}
	if diff := cmp.Diff(wantTypes, fake.contentTypes); diff != "" {
		t.Errorf("content types mismatch (-want +got):\n%s", diff)
	}

	var result struct {
		WorkerScriptResponse []json.RawMessage   `json:"workerScriptResponse"`
		RoutesResponse       [][]json.RawMessage `json:"routesResponse"`
		IsMultiScript        bool                `json:"isMultiScript"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	if !result.IsMultiScript || len(result.WorkerScriptResponse) != 2 || len(result.RoutesResponse) != 2 {
		t.Errorf("Unexpected result: %s", stdout.String())
	}

	if !strings.Contains(stderr.String(), "deploying script: a") || !strings.Contains(stderr.String(), "deploying route: example.com/b2") {
		t.Errorf("Expected progress lines on stderr, got:\n%s", stderr.String())
	}
}

func TestDeployCommandStopsOnRouteFailure(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{failPath: "example.com/a"}
	path := setupService(t, fake)

	DeployCmd.SetOut(io.Discard)
	DeployCmd.SetErr(io.Discard)
	DeployCmd.SetArgs([]string{"-c", path})

	if err := DeployCmd.Execute(); err == nil {
		t.Fatal("Expected deploy to fail")
	}

	// upload a, failed route for a, nothing for b
	if len(fake.requests) != 2 {
		t.Errorf("Expected 2 requests, got %v", fake.requests)
	}
}

func TestDeployCommandFailureGoesToStderr(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{failPath: "example.com/a"}
	path := setupService(t, fake)

	var stdout, stderr bytes.Buffer
	DeployCmd.SetOut(&stdout)
	DeployCmd.SetErr(&stderr)
	DeployCmd.SetArgs([]string{"-c", path})

	if err := DeployCmd.Execute(); err == nil {
		t.Fatal("Expected deploy to fail")
	}

	if strings.Contains(stdout.String(), "Deploy failed") {
		t.Errorf("Failure line should not be on stdout, got %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Deploy failed") || !strings.Contains(stderr.String(), "duplicate route") {
		t.Errorf("Expected failure line on stderr, got:\n%s", stderr.String())
	}
}

func TestDeployCommandSuccessLineOnStdout(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)

	var stdout bytes.Buffer
	DeployCmd.SetOut(&stdout)
	DeployCmd.SetErr(io.Discard)
	DeployCmd.SetArgs([]string{"-c", path})

	if err := DeployCmd.Execute(); err != nil {
		t.Fatalf("deploy failed: %v", err)
	}
	if !strings.Contains(stdout.String(), "Deployed 2 script(s)") {
		t.Errorf("Expected summary on stdout, got %q", stdout.String())
	}
}

func TestDeployFunctionCommand(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)

	var stdout bytes.Buffer
	DeployCmd.SetOut(&stdout)
	DeployCmd.SetErr(io.Discard)
	DeployCmd.SetArgs([]string{"function", "-c", path, "-f", "b", "-q", ".routesResponse | length"})

	if err := DeployCmd.Execute(); err != nil {
		t.Fatalf("deploy function failed: %v", err)
	}

	if len(fake.requests) != 3 || !strings.HasPrefix(fake.requests[0], "PUT /accounts/acc/workers/scripts/b") {
		t.Errorf("Unexpected requests: %v", fake.requests)
	}
	if strings.TrimSpace(stdout.String()) != "2" {
		t.Errorf("Expected query output 2, got %q", stdout.String())
	}
}

func TestDeployCommandMissingCredentials(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)
	t.Setenv(config.KeyAPIToken, "")
	t.Setenv(config.KeyAuthKey, "")
	t.Setenv(config.KeyAuthEmail, "")

	DeployCmd.SetOut(io.Discard)
	DeployCmd.SetErr(io.Discard)
	DeployCmd.SetArgs([]string{"-c", path})

	if err := DeployCmd.Execute(); err == nil {
		t.Fatal("Expected credentials error")
	}
	if len(fake.requests) != 0 {
		t.Errorf("Expected no requests, got %v", fake.requests)
	}
}

func TestRoutesListCommand(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)

	var stdout bytes.Buffer
	RoutesCmd.SetOut(&stdout)
	RoutesCmd.SetErr(io.Discard)
	RoutesCmd.SetArgs([]string{"list", "-c", path})

	if err := RoutesCmd.Execute(); err != nil {
		t.Fatalf("routes list failed: %v", err)
	}

	if diff := cmp.Diff([]string{"GET /zones/zone/workers/routes "}, fake.requests); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"application/javascript"}, fake.contentTypes); diff != "" {
		t.Errorf("content types mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stdout.String(), "example.com/a") {
		t.Errorf("Expected route in output, got %q", stdout.String())
	}
}

func TestInfoCommand(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)

	var stdout bytes.Buffer
	InfoCmd.SetOut(&stdout)
	InfoCmd.SetErr(io.Discard)
	InfoCmd.SetArgs([]string{"-c", path, "-q", "[.functions[].name]"})

	if err := InfoCmd.Execute(); err != nil {
		t.Fatalf("info failed: %v", err)
	}

	var names []string
	if err := json.Unmarshal(stdout.Bytes(), &names); err != nil {
		t.Fatalf("invalid output %q: %v", stdout.String(), err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if len(fake.requests) != 0 {
		t.Errorf("info must not call the API, got %v", fake.requests)
	}
}

// writeEnvFile writes a .env with the given API token into dir.
func writeEnvFile(t *testing.T, dir, token string) {
	t.Helper()
	content := config.KeyAPIToken + "=" + token + "\n"
	if err := os.WriteFile(filepath.Join(dir, config.EnvFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// unsetToken clears the API token so .env files can provide it.
func unsetToken(t *testing.T) {
	t.Helper()
	t.Setenv(config.KeyAPIToken, "")
	if err := os.Unsetenv(config.KeyAPIToken); err != nil {
		t.Fatal(err)
	}
}

func TestEnvFileDefaultsToManifestDir(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)
	unsetToken(t)
	writeEnvFile(t, filepath.Dir(path), "manifest-token")

	RoutesCmd.SetOut(io.Discard)
	RoutesCmd.SetErr(io.Discard)
	RoutesCmd.SetArgs([]string{"list", "-c", path})

	if err := RoutesCmd.Execute(); err != nil {
		t.Fatalf("routes list failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Bearer manifest-token"}, fake.auth); diff != "" {
		t.Errorf("auth mismatch (-want +got):\n%s", diff)
	}
}

func TestExplicitEnvFileIsNotRewritten(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{}
	path := setupService(t, fake)
	unsetToken(t)
	writeEnvFile(t, filepath.Dir(path), "manifest-token")

	workDir := t.TempDir()
	writeEnvFile(t, workDir, "workdir-token")
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(workDir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	RoutesCmd.SetOut(io.Discard)
	RoutesCmd.SetErr(io.Discard)
	RoutesCmd.SetArgs([]string{"list", "-c", path, "--env-file", config.EnvFileName})

	if err := RoutesCmd.Execute(); err != nil {
		t.Fatalf("routes list failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Bearer workdir-token"}, fake.auth); diff != "" {
		t.Errorf("auth mismatch (-want +got):\n%s", diff)
	}
}

func TestAPITimeoutFlag(t *testing.T) {
	resetFlags()
	fake := &fakeCloudflare{delay: 500 * time.Millisecond}
	path := setupService(t, fake)

	RoutesCmd.SetOut(io.Discard)
	RoutesCmd.SetErr(io.Discard)
	RoutesCmd.SetArgs([]string{"list", "-c", path, "--api-timeout", "50ms"})

	err := RoutesCmd.Execute()
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "Client.Timeout") {
		t.Errorf("Expected client timeout, got %v", err)
	}
}
