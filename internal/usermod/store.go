package usermod

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// keyUsermods is the top-level key holding module objects in cfg.json.
const keyUsermods = "um"

// Store persists the module config tree as a JSON file shaped like
// {"um": {"<module name>": {...}}}. Other top-level keys are preserved.
type Store struct {
	path string
}

// NewStore creates a store for the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the module tree. A missing file yields an empty tree.
func (s *Store) Load() (map[string]json.RawMessage, error) {
	doc, err := s.readDoc()
	if err != nil {
		return nil, err
	}

	tree := make(map[string]json.RawMessage)
	raw, ok := doc[keyUsermods]
	if !ok || string(raw) == "null" {
		return tree, nil
	}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode %q in %s: %w", keyUsermods, s.path, err)
	}
	if tree == nil {
		tree = make(map[string]json.RawMessage)
	}

	// Save indents the file; hand modules their objects in compact form
	for name, obj := range tree {
		var buf bytes.Buffer
		if err := json.Compact(&buf, obj); err != nil {
			return nil, fmt.Errorf("compact %q in %s: %w", name, s.path, err)
		}
		tree[name] = buf.Bytes()
	}
	return tree, nil
}

// Save replaces the module tree, keeping any other top-level keys.
// The file is written to a temp file and renamed into place.
func (s *Store) Save(tree map[string]json.RawMessage) error {
	doc, err := s.readDoc()
	if err != nil {
		return err
	}

	um, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode module config: %w", err)
	}
	doc[keyUsermods] = um

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".cfg-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) readDoc() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]json.RawMessage), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if doc == nil {
		doc = make(map[string]json.RawMessage)
	}
	return doc, nil
}
