package space

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kspace/internal/ir"
)

// tempFilePrefix names the scratch file used by atomic saves.
const tempFilePrefix = "kspace-tmp-"

// ReadDocument parses a JSON or YAML file into an ir value. The format is
// chosen by extension; .yaml and .yml are YAML, anything else is JSON.
func ReadDocument(path string) (ir.IRValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data, isYAML(path))
}

// ParseDocument parses JSON, or YAML when asYAML is set.
func ParseDocument(data []byte, asYAML bool) (ir.IRValue, error) {
	if !asYAML {
		v, err := ir.UnmarshalIRValue(data)
		if err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		return v, nil
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return v, nil
}

// Load reads a space file.
func Load(path string) (*Space, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("load space %s: %w", path, err)
	}
	s, err := FromValue(doc)
	if err != nil {
		return nil, fmt.Errorf("load space %s: %w", path, err)
	}
	return s, nil
}

// Save writes the space to path atomically, as YAML or indented JSON
// depending on the extension.
func Save(path string, s *Space) error {
	data, err := Encode(s, isYAML(path))
	if err != nil {
		return fmt.Errorf("save space %s: %w", path, err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("save space %s: %w", path, err)
	}
	return nil
}

// Encode renders the space document as JSON or YAML.
func Encode(s *Space, asYAML bool) ([]byte, error) {
	if asYAML {
		return yaml.Marshal(ir.ToGo(s.Value()))
	}
	data, err := ir.MarshalIndent(s.Value())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// writeFileAtomic writes to a temp file in the target directory and renames
// it over filename.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}
