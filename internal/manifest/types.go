// Package manifest provides types and parsing for cfdeploy.yaml service manifests.
package manifest

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Service represents a cfdeploy.yaml service manifest.
type Service struct {
	Service  string         `yaml:"service"`
	Provider ProviderConfig `yaml:"provider"`

	// Functions keeps declaration order; see FunctionNames.
	Functions Functions `yaml:"functions"`

	// Path is the directory the manifest was loaded from.
	Path string `yaml:"-"`
}

// ProviderConfig identifies the Cloudflare account and zone.
type ProviderConfig struct {
	Name   string         `yaml:"name"`
	Config ProviderScope  `yaml:"config"`
	Extra  map[string]any `yaml:",inline"`
}

// ProviderScope holds the account-scoped and zone-scoped identifiers.
type ProviderScope struct {
	AccountID string `yaml:"accountId"`
	ZoneID    string `yaml:"zoneId"`
}

// Function is one deployable worker script.
type Function struct {
	Name        string            `yaml:"name"`
	Script      string            `yaml:"script"`
	Webpack     Webpack           `yaml:"webpack,omitempty"`
	Events      []Event           `yaml:"events,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Resources   map[string]any    `yaml:"resources,omitempty"`
}

// Event is a trigger declaration. Only HTTP triggers produce routes.
type Event struct {
	HTTP *HTTPEvent `yaml:"http,omitempty"`
}

// HTTPEvent binds a route pattern to the function.
type HTTPEvent struct {
	URL    string `yaml:"url"`
	Method string `yaml:"method,omitempty"`
}

// Webpack is the per-function bundling request. In YAML it is either a
// boolean (`webpack: true` uses the default config) or a config path.
type Webpack struct {
	Enabled bool
	Config  string
}

// UnmarshalYAML accepts a bool or a string.
func (w *Webpack) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: webpack must be a boolean or a config path", node.Line)
	}

	var b bool
	if node.ShortTag() == "!!bool" {
		if err := node.Decode(&b); err != nil {
			return err
		}
		*w = Webpack{Enabled: b}
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*w = Webpack{Enabled: s != "", Config: s}
	return nil
}

// Functions is the ordered `functions` mapping.
type Functions struct {
	names []string
	byKey map[string]*Function
}

// UnmarshalYAML decodes the mapping while remembering key order.
func (f *Functions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: functions must be a mapping", node.Line)
	}

	f.names = make([]string, 0, len(node.Content)/2)
	f.byKey = make(map[string]*Function, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var fn Function
		if err := node.Content[i+1].Decode(&fn); err != nil {
			return fmt.Errorf("function %q: %w", key, err)
		}
		if _, dup := f.byKey[key]; dup {
			return fmt.Errorf("line %d: duplicate function %q", node.Content[i].Line, key)
		}
		f.add(key, fn)
	}
	return nil
}

// add appends a function, replacing any existing one with the same key.
// The name defaults to the key.
func (f *Functions) add(key string, fn Function) {
	if f.byKey == nil {
		f.byKey = make(map[string]*Function)
	}
	if fn.Name == "" {
		fn.Name = key
	}
	if _, ok := f.byKey[key]; !ok {
		f.names = append(f.names, key)
	}
	f.byKey[key] = &fn
}

// Len returns the number of declared functions.
func (f *Functions) Len() int {
	return len(f.names)
}

// Names returns function keys in declaration order, or nil when the
// manifest has no functions section.
func (f *Functions) Names() []string {
	if f.names == nil {
		return nil
	}
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Get returns the function declared under key.
func (f *Functions) Get(key string) (*Function, bool) {
	fn, ok := f.byKey[key]
	return fn, ok
}
