// Package config provides centralized configuration and paths for cfdeploy.
//
// This package defines:
// - Default endpoints, timeouts and file names used across cfdeploy
// - Environment variable keys for Cloudflare credentials and scope
// - Loading of credentials from the environment and an optional .env file
//
// Environment variables:
//   - CLOUDFLARE_API_TOKEN: API token (preferred auth)
//   - CLOUDFLARE_AUTH_EMAIL / CLOUDFLARE_AUTH_KEY: global API key auth
//   - CLOUDFLARE_ACCOUNT_ID: fallback account ID when the manifest has none
//   - CLOUDFLARE_ZONE_ID: fallback zone ID when the manifest has none
//   - CLOUDFLARE_API_BASE_URL: override the API base URL
//   - CFDEPLOY_BUILD_DIR: override the bundle work directory (default: $PWD/.cfdeploy)
//   - CFDEPLOY_LOG_LEVEL: zerolog level (default: info)
package config

import (
	"os"
	"path/filepath"
	"time"
)

// === Cloudflare API ===

const (
	// DefaultAPIBaseURL is the Cloudflare v4 API root.
	DefaultAPIBaseURL = "https://api.cloudflare.com/client/v4"

	// DefaultAPITimeout bounds a single API request.
	DefaultAPITimeout = 30 * time.Second
)

// === Default paths ===

const (
	// ManifestFileName is the default service manifest.
	ManifestFileName = "cfdeploy.yaml"

	// EnvFileName is the optional dotenv file loaded before reading credentials.
	EnvFileName = ".env"

	// BuildDirName is the project-local bundle work directory.
	BuildDirName = ".cfdeploy"

	// ScriptExt is appended to a function's script path.
	ScriptExt = ".js"
)

// === Bundling ===

const (
	// DefaultBundleCommand runs webpack through npx.
	DefaultBundleCommand = "npx webpack"

	// DefaultBundleConfig is used when a function sets `webpack: true`.
	DefaultBundleConfig = "webpack.config.js"
)

// === Environment keys ===

const (
	KeyAPIToken   = "CLOUDFLARE_API_TOKEN"
	KeyAuthEmail  = "CLOUDFLARE_AUTH_EMAIL"
	KeyAuthKey    = "CLOUDFLARE_AUTH_KEY"
	KeyAccountID  = "CLOUDFLARE_ACCOUNT_ID"
	KeyZoneID     = "CLOUDFLARE_ZONE_ID"
	KeyAPIBaseURL = "CLOUDFLARE_API_BASE_URL"
	KeyBuildDir   = "CFDEPLOY_BUILD_DIR"
	KeyLogLevel   = "CFDEPLOY_LOG_LEVEL"
)

// APIBaseURL returns the API base URL, honouring CLOUDFLARE_API_BASE_URL.
func APIBaseURL() string {
	if v := os.Getenv(KeyAPIBaseURL); v != "" {
		return v
	}
	return DefaultAPIBaseURL
}

// BuildDir returns the bundle work directory for the given service path.
func BuildDir(servicePath string) string {
	if v := os.Getenv(KeyBuildDir); v != "" {
		return v
	}
	return filepath.Join(servicePath, BuildDirName)
}
