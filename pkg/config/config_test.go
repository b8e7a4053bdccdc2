package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nodelink-protocol/nodelink-go/pkg/wire"
)

const sampleConfig = `
default: bedroom
nodes:
  bedroom:
    host: bedroom.local
    password: secret
  garage:
    host: 192.168.1.40
    port: 16053
    psk: deadbeef
`

func TestParseAndResolve(t *testing.T) {
	f, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	node, err := f.Resolve("garage")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if node.Host != "192.168.1.40" || node.Port != 16053 {
		t.Errorf("got %s:%d, want 192.168.1.40:16053", node.Host, node.Port)
	}
	if node.PresharedKey != "deadbeef" {
		t.Errorf("psk = %q", node.PresharedKey)
	}

	// Default port is filled in when the preset has none.
	node, err = f.Resolve("bedroom")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if node.Port != wire.DefaultPort {
		t.Errorf("port = %d, want %d", node.Port, wire.DefaultPort)
	}
	if node.Password != "secret" {
		t.Errorf("password = %q", node.Password)
	}
}

func TestResolveDefault(t *testing.T) {
	f, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	node, err := f.Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if node.Host != "bedroom.local" {
		t.Errorf("default resolved to %q, want bedroom.local", node.Host)
	}
}

func TestResolveUnknown(t *testing.T) {
	f, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := f.Resolve("attic"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "not yaml",
			data: "{{{",
		},
		{
			name: "missing default preset",
			data: "default: gone\nnodes:\n  a:\n    host: x\n",
		},
		{
			name: "preset without host",
			data: "nodes:\n  a:\n    password: x\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestNoDefaultNoName(t *testing.T) {
	f, err := Parse([]byte("nodes:\n  a:\n    host: x\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := f.Resolve(""); err == nil {
		t.Error("expected error without preset name and default")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(f.Nodes) != 2 {
		t.Errorf("got %d presets, want 2", len(f.Nodes))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
