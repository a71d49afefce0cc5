// Package project persists an editing session as a YAML document. The
// session core owns no storage; this package is the collaborator the CLI
// composes around it.
package project

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/cutroom/internal/editor"
)

// Version tags the current document layout.
const Version = "1"

// File is the on-disk form of a project.
type File struct {
	Version    string              `yaml:"version"`
	Settings   Settings            `yaml:"settings"`
	Resources  Resources           `yaml:"resources"`
	Elements   []*editor.Element   `yaml:"elements,omitempty"`
	Animations []*editor.Animation `yaml:"animations,omitempty"`
}

// Settings carries the session-level knobs.
type Settings struct {
	MaxTimeMs  int    `yaml:"maxTime"`
	Background string `yaml:"background,omitempty"`
	Format     string `yaml:"format,omitempty"`
}

// Resources holds the per-kind media pools.
type Resources struct {
	Videos []editor.Resource `yaml:"videos,omitempty"`
	Images []editor.Resource `yaml:"images,omitempty"`
	Audios []editor.Resource `yaml:"audios,omitempty"`
}

// Save writes a project to a YAML file.
func Save(f *File, path string) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a project from a YAML file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load project %s: %w", path, err)
	}
	return &f, nil
}

// FromStore snapshots a live session into a document.
func FromStore(s *editor.Store) *File {
	return &File{
		Version: Version,
		Settings: Settings{
			MaxTimeMs:  s.MaxTimeMs(),
			Background: s.BackgroundColor(),
			Format:     s.VideoFormat(),
		},
		Resources: Resources{
			Videos: s.VideoResources(),
			Images: s.ImageResources(),
			Audios: s.AudioResources(),
		},
		Elements:   s.Elements(),
		Animations: s.Animations(),
	}
}

// Apply loads a document into a session, replacing its state. Settings land
// first so element time frames clamp against the project length.
func Apply(f *File, s *editor.Store) error {
	if f.Settings.MaxTimeMs > 0 {
		s.SetMaxTimeMs(f.Settings.MaxTimeMs)
	}
	if f.Settings.Background != "" {
		if err := s.SetBackgroundColor(f.Settings.Background); err != nil {
			return fmt.Errorf("apply project: %w", err)
		}
	}
	if f.Settings.Format != "" {
		if err := s.SetVideoFormat(f.Settings.Format); err != nil {
			return fmt.Errorf("apply project: %w", err)
		}
	}
	s.SetResourcePools(f.Resources.Videos, f.Resources.Images, f.Resources.Audios)
	s.SetElements(f.Elements)
	s.SetAnimations(f.Animations)
	return nil
}
