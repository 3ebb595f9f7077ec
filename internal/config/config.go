// Package config loads the arbor configuration file: global path settings
// plus the project table mapping project keys to repository pairings.
package config

import (
	"fmt"
	"os"
	"sort"

	yaml "gopkg.in/yaml.v3"
)

// Settings are the global path settings.
type Settings struct {
	// SourceRoot is the directory holding the long-lived repository clones.
	SourceRoot string `yaml:"source_root"`
	// WorkspaceDir is the directory name under SourceRoot where per-branch
	// workspaces are created. Defaults to "workspaces".
	WorkspaceDir string `yaml:"workspace_dir"`
}

// Project identifies a repository pairing. Immutable once loaded.
type Project struct {
	Key        string `yaml:"-"`
	Name       string `yaml:"name"`
	Repo       string `yaml:"repo"`
	SampleRepo string `yaml:"sample_repo,omitempty"`
	EnvFile    string `yaml:"env_file,omitempty"`
	PostSetup  string `yaml:"post_setup,omitempty"`
}

// File is one parsed configuration file.
type File struct {
	Settings Settings            `yaml:"settings"`
	Projects map[string]*Project `yaml:"projects"`
}

// ParseError is malformed configuration content. Never cached.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes and validates configuration bytes. path is used for error
// context only.
func Parse(data []byte, path string) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if f.Settings.SourceRoot == "" {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("settings.source_root is required")}
	}
	if f.Settings.WorkspaceDir == "" {
		f.Settings.WorkspaceDir = "workspaces"
	}
	for key, p := range f.Projects {
		if p == nil {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("project %q is empty", key)}
		}
		if p.Repo == "" {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("project %q: repo is required", key)}
		}
		p.Key = key
		if p.Name == "" {
			p.Name = key
		}
	}
	return &f, nil
}

// ReadFile reads and parses a configuration file without caching.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, path)
}

// Project returns the project for key, or an error naming the known keys.
func (f *File) Project(key string) (*Project, error) {
	if p, ok := f.Projects[key]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("unknown project %q (known: %v)", key, f.Keys())
}

// Keys returns the project keys in sorted order.
func (f *File) Keys() []string {
	keys := make([]string, 0, len(f.Projects))
	for k := range f.Projects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
