// Package deploy publishes worker scripts and their routes.
//
// A Deployer works in multi-script mode: each function of the service is
// uploaded as its own script and every HTTP trigger of that function is
// registered as a route in the configured zone. All calls are sequential
// and the first failure aborts the run. Nothing is rolled back.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/joeblew999/cfdeploy/internal/cfapi"
	"github.com/joeblew999/cfdeploy/internal/manifest"
)

// ErrIncorrectTemplate is returned when the host has no function list,
// which means the service is not set up for multi-script deploys.
var ErrIncorrectTemplate = errors.New("incorrect template being used for a multi-script user")

// Host is the deployment framework the Deployer runs inside.
type Host interface {
	// FunctionNames returns nil when the service declares no functions section.
	FunctionNames() []string
	Function(name string) (*manifest.Function, error)
	Log(msg string)
}

// API issues Cloudflare API calls.
type API interface {
	Do(ctx context.Context, r cfapi.Request) (*cfapi.Response, error)
}

// CodeGenerator produces the script body for a function.
type CodeGenerator interface {
	Generate(fn *manifest.Function) (string, error)
}

// Bundler prepares a function's sources before code generation.
type Bundler interface {
	Pack(ctx context.Context, fn *manifest.Function) (string, error)
}

// Config scopes a deployment.
type Config struct {
	AccountID string
	ZoneID    string

	// Bundle allows functions that set `webpack` to be bundled before upload.
	// When false their previous bundle output is deployed as is.
	Bundle bool
}

// Result is the outcome of deploying one function.
type Result struct {
	WorkerScriptResponse *cfapi.Response   `json:"workerScriptResponse"`
	RoutesResponse       []*cfapi.Response `json:"routesResponse"`
}

// BatchResult aggregates a multi-script deploy. The slices are indexed by
// function order.
type BatchResult struct {
	WorkerScriptResponse []*cfapi.Response   `json:"workerScriptResponse"`
	RoutesResponse       [][]*cfapi.Response `json:"routesResponse"`
	IsMultiScript        bool                `json:"isMultiScript"`
}

// Deployer sequences bundling, code generation, script upload and route
// registration.
type Deployer struct {
	cfg     Config
	host    Host
	api     API
	gen     CodeGenerator
	bundler Bundler
	log     zerolog.Logger
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithBundler enables bundling for functions that request it.
func WithBundler(b Bundler) Option {
	return func(d *Deployer) { d.bundler = b }
}

// WithLogger sets the structured logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Deployer) { d.log = l }
}

// New creates a Deployer.
func New(cfg Config, host Host, api API, gen CodeGenerator, opts ...Option) *Deployer {
	d := &Deployer{
		cfg:  cfg,
		host: host,
		api:  api,
		gen:  gen,
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// UploadScript creates or replaces the worker script scriptName.
func (d *Deployer) UploadScript(ctx context.Context, contents, scriptName string) (*cfapi.Response, error) {
	return d.api.Do(ctx, cfapi.Request{
		Method:      "PUT",
		Path:        fmt.Sprintf("/accounts/%s/workers/scripts/%s", d.cfg.AccountID, url.PathEscape(scriptName)),
		ContentType: cfapi.ContentTypeJavaScript,
		Body:        []byte(contents),
	})
}

type routePayload struct {
	Pattern string `json:"pattern"`
	Script  string `json:"script"`
}

// RegisterRoute binds pattern to scriptName in zoneID.
func (d *Deployer) RegisterRoute(ctx context.Context, pattern, scriptName, zoneID string) (*cfapi.Response, error) {
	body, err := json.Marshal(routePayload{Pattern: pattern, Script: scriptName})
	if err != nil {
		return nil, err
	}
	return d.api.Do(ctx, cfapi.Request{
		Method:      "POST",
		Path:        fmt.Sprintf("/zones/%s/workers/routes", zoneID),
		ContentType: cfapi.ContentTypeJSON,
		Body:        body,
	})
}

// ListRoutes fetches the routes registered in zoneID.
func (d *Deployer) ListRoutes(ctx context.Context, zoneID string) (*cfapi.Response, error) {
	return d.api.Do(ctx, cfapi.Request{
		Method:      "GET",
		Path:        fmt.Sprintf("/zones/%s/workers/routes", zoneID),
		ContentType: cfapi.ContentTypeJavaScript,
	})
}

// Routes returns one entry per event, in order. Events without an HTTP
// trigger yield nil.
func Routes(events []manifest.Event) []*string {
	routes := make([]*string, len(events))
	for i, ev := range events {
		if ev.HTTP != nil {
			u := ev.HTTP.URL
			routes[i] = &u
		}
	}
	return routes
}

// DeployFunction uploads fn's script and registers its routes in
// declaration order. Events without an HTTP trigger are skipped.
func (d *Deployer) DeployFunction(ctx context.Context, fn *manifest.Function) (*Result, error) {
	contents, err := d.gen.Generate(fn)
	if err != nil {
		return nil, err
	}

	scriptName := fn.Name

	scriptResp, err := d.UploadScript(ctx, contents, scriptName)
	if err != nil {
		return nil, err
	}

	result := &Result{
		WorkerScriptResponse: scriptResp,
		RoutesResponse:       []*cfapi.Response{},
	}

	for i, pattern := range Routes(fn.Events) {
		if pattern == nil {
			d.log.Debug().Str("script", scriptName).Int("event", i).Msg("event has no http trigger, skipping")
			continue
		}

		d.host.Log(fmt.Sprintf("deploying route: %s ", *pattern))
		resp, err := d.RegisterRoute(ctx, *pattern, scriptName, d.cfg.ZoneID)
		if err != nil {
			return nil, err
		}
		result.RoutesResponse = append(result.RoutesResponse, resp)
	}

	return result, nil
}

// Deploy resolves, optionally bundles and deploys a single function by name.
func (d *Deployer) Deploy(ctx context.Context, name string) (*Result, error) {
	fn, err := d.host.Function(name)
	if err != nil {
		return nil, err
	}

	if d.shouldBundle(fn) {
		out, err := d.bundler.Pack(ctx, fn)
		if err != nil {
			return nil, err
		}
		d.log.Debug().Str("script", name).Str("bundle", out).Msg("bundled")
	}

	d.host.Log(fmt.Sprintf("deploying script: %s", name))

	return d.DeployFunction(ctx, fn)
}

// DeployAll deploys every function of the host in enumeration order.
func (d *Deployer) DeployAll(ctx context.Context) (*BatchResult, error) {
	names := d.host.FunctionNames()
	if names == nil {
		return nil, ErrIncorrectTemplate
	}

	runLog := d.log.With().Str("run_id", uuid.NewString()).Logger()
	runLog.Info().Int("functions", len(names)).Msg("multi-script deploy started")

	batch := &BatchResult{
		WorkerScriptResponse: make([]*cfapi.Response, 0, len(names)),
		RoutesResponse:       make([][]*cfapi.Response, 0, len(names)),
		IsMultiScript:        true,
	}

	for _, name := range names {
		res, err := d.Deploy(ctx, name)
		if err != nil {
			runLog.Error().Err(err).Str("script", name).Msg("deploy aborted")
			return nil, err
		}
		batch.WorkerScriptResponse = append(batch.WorkerScriptResponse, res.WorkerScriptResponse)
		batch.RoutesResponse = append(batch.RoutesResponse, res.RoutesResponse)
		runLog.Info().Str("script", name).Int("routes", len(res.RoutesResponse)).Msg("script deployed")
	}

	return batch, nil
}

// shouldBundle reports whether fn is bundled before its script is generated.
func (d *Deployer) shouldBundle(fn *manifest.Function) bool {
	return d.cfg.Bundle && d.bundler != nil && fn.Webpack.Enabled
}
