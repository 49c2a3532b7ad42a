package asset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// definitionFile is the on-disk layout of an asset definition file.
//
//	[[effect]]
//	id = "volume"
//	name = "Volume"
//	type = "audio"
//	[[effect.param]]
//	name = "level"
//	value = "0"
type definitionFile struct {
	Effects []Definition `toml:"effect" yaml:"effects"`
}

// ParseError reports a definition file that could not be decoded.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsDefinitionFile reports whether path has a supported extension.
func IsDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

// Parse decodes definitions from data. The format is picked from the
// extension of path.
func Parse(path string, data []byte) ([]Definition, error) {
	var file definitionFile
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &file)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("unsupported definition format: %s", path)
	}
	if err != nil {
		return nil, &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return file.Effects, nil
}

// LoadFile registers every definition in the file at path and returns how
// many were loaded. Nothing is registered if any definition is invalid.
func (r *Registry) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading asset file %s: %w", path, err)
	}
	defs, err := Parse(path, data)
	if err != nil {
		return 0, err
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return 0, fmt.Errorf("%s: asset %q: %w", path, d.ID, err)
		}
	}
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			return 0, err
		}
	}
	return len(defs), nil
}

// LoadDir loads every definition file directly inside dir.
// A missing directory is not an error.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading asset dir %s: %w", dir, err)
	}

	total := 0
	for _, e := range entries {
		if e.IsDir() || !IsDefinitionFile(e.Name()) {
			continue
		}
		n, err := r.LoadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// LoadFS loads every definition file matching pattern from fsys.
func (r *Registry) LoadFS(fsys fs.FS, pattern string) (int, error) {
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, name := range matches {
		if !IsDefinitionFile(name) {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return total, err
		}
		defs, err := Parse(name, data)
		if err != nil {
			return total, err
		}
		for _, d := range defs {
			if err := r.Register(d); err != nil {
				return total, fmt.Errorf("%s: %w", name, err)
			}
			total++
		}
	}
	return total, nil
}
