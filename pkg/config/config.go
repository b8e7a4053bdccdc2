// Package config loads node connection presets from a YAML file, so
// frequently probed nodes can be addressed by name instead of
// repeating host, password and key flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nodelink-protocol/nodelink-go/pkg/wire"
)

// Node is one preset: everything needed to reach a node.
type Node struct {
	// Host is the node's hostname or IP address.
	Host string `yaml:"host"`

	// Port is the node's TCP port. Zero means the default port.
	Port uint16 `yaml:"port"`

	// Password authenticates the session.
	Password string `yaml:"password"`

	// PresharedKey enables transport frame encryption.
	PresharedKey string `yaml:"psk"`
}

// File is a set of named node presets.
type File struct {
	// Default names the preset used when none is requested.
	Default string `yaml:"default"`

	// Nodes maps preset names to node settings.
	Nodes map[string]Node `yaml:"nodes"`
}

// Load reads and validates a preset file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes preset data.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if f.Default != "" {
		if _, ok := f.Nodes[f.Default]; !ok {
			return nil, fmt.Errorf("default preset %q is not defined", f.Default)
		}
	}
	for name, node := range f.Nodes {
		if node.Host == "" {
			return nil, fmt.Errorf("preset %q has no host", name)
		}
	}
	return &f, nil
}

// Resolve returns the named preset, or the default preset when name
// is empty. The returned node always has a concrete port.
func (f *File) Resolve(name string) (Node, error) {
	if name == "" {
		name = f.Default
	}
	if name == "" {
		return Node{}, fmt.Errorf("no preset requested and no default set")
	}
	node, ok := f.Nodes[name]
	if !ok {
		return Node{}, fmt.Errorf("unknown preset %q", name)
	}
	if node.Port == 0 {
		node.Port = wire.DefaultPort
	}
	return node, nil
}
