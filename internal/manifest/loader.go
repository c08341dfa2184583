package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/a8m/envsubst"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/cfdeploy/internal/config"
)

// Loader loads service manifests from local files.
type Loader struct {
	// Strict fails when a ${VAR} reference is unset.
	Strict bool
}

// NewLoader creates a new manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadFile loads a manifest from a local file path.
func (l *Loader) LoadFile(path string) (*Service, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest dir: %w", err)
	}

	s, err := l.Parse(data, path)
	if err != nil {
		return nil, err
	}
	s.Path = abs
	return s, nil
}

// LoadDir loads a manifest from a directory (looks for cfdeploy.yaml).
func (l *Loader) LoadDir(dir string) (*Service, error) {
	return l.LoadFile(filepath.Join(dir, config.ManifestFileName))
}

// Parse expands ${VAR} references and parses manifest YAML data.
func (l *Loader) Parse(data []byte, source string) (*Service, error) {
	var expanded []byte
	var err error
	if l.Strict {
		var s string
		s, err = envsubst.StringRestricted(string(data), true, false)
		expanded = []byte(s)
	} else {
		expanded, err = envsubst.Bytes(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to expand variables in %s: %w", source, err)
	}

	var s Service
	if err := yaml.Unmarshal(expanded, &s); err != nil {
		return nil, fmt.Errorf("failed to parse manifest from %s: %w", source, err)
	}

	if err := l.validate(&s); err != nil {
		return nil, fmt.Errorf("invalid manifest from %s: %w", source, err)
	}

	return &s, nil
}

// validate checks that the manifest is valid.
func (l *Loader) validate(s *Service) error {
	if s.Service == "" {
		return fmt.Errorf("service is required")
	}

	for _, name := range s.Functions.Names() {
		fn, _ := s.Functions.Get(name)
		if fn.Script == "" {
			return fmt.Errorf("function %q: script is required", name)
		}
		for i, ev := range fn.Events {
			if ev.HTTP != nil && ev.HTTP.URL == "" {
				return fmt.Errorf("function %q: events[%d].http.url is required", name, i)
			}
		}
	}

	return nil
}
