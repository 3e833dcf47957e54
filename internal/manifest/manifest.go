// Package manifest reads the YAML file that lists the frames of an image
// sequence.
//
// A manifest either lists frames explicitly:
//
//	frames:
//	  - intro/0001.webp
//	  - intro/0002.webp
//
// or generates them from a printf pattern:
//
//	base: https://cdn.example.com/intro/
//	pattern: "%04d.webp"
//	start: 1
//	count: 120
package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

var (
	// ErrEmpty is returned when a manifest yields no frames.
	ErrEmpty = errors.New("manifest has no frames")
	// ErrAmbiguous is returned when both frames and pattern are set.
	ErrAmbiguous = errors.New("manifest sets both frames and pattern")
)

// Manifest is the decoded manifest file.
type Manifest struct {
	Base    string   `yaml:"base"`
	Frames  []string `yaml:"frames"`
	Pattern string   `yaml:"pattern"`
	Start   int      `yaml:"start"`
	Count   int      `yaml:"count"`
}

// Load reads and decodes the manifest at path.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// Parse decodes a manifest. Unknown keys are rejected.
func Parse(b []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalStrict(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Locators returns the frame locators in playback order, each prefixed
// with Base.
func (m *Manifest) Locators() ([]string, error) {
	if len(m.Frames) > 0 && m.Pattern != "" {
		return nil, ErrAmbiguous
	}

	var names []string
	switch {
	case len(m.Frames) > 0:
		names = m.Frames
	case m.Pattern != "":
		if m.Count <= 0 {
			return nil, fmt.Errorf("manifest count %d: must be positive", m.Count)
		}
		if !strings.Contains(m.Pattern, "%") {
			return nil, fmt.Errorf("manifest pattern %q: missing verb", m.Pattern)
		}
		names = make([]string, m.Count)
		for i := range names {
			names[i] = fmt.Sprintf(m.Pattern, m.Start+i)
		}
	default:
		return nil, ErrEmpty
	}

	out := make([]string, len(names))
	for i, n := range names {
		if n == "" {
			return nil, fmt.Errorf("manifest frame %d: empty locator", i)
		}
		out[i] = m.Base + n
	}
	return out, nil
}
