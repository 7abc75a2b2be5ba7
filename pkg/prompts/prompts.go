// Package prompts holds the fixed list of suggested questions offered while a
// conversation is empty.
package prompts

import (
	_ "embed"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultYAML []byte

const defaultTitle = "Try asking one of these"

// Set is an ordered list of suggested prompts with a heading.
type Set struct {
	Title   string   `yaml:"title"`
	Prompts []string `yaml:"prompts"`
}

// Default returns the embedded prompt set.
func Default() Set {
	s, err := Parse(defaultYAML)
	if err != nil {
		// the embedded file is part of the binary
		panic(errors.Wrap(err, "embedded prompts.yaml is invalid"))
	}
	return s
}

// LoadFile reads a prompt set from a YAML file.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, errors.Wrapf(err, "failed to read prompts file %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return Set{}, errors.Wrapf(err, "failed to parse prompts file %s", path)
	}
	return s, nil
}

// Parse decodes a prompt set. Blank and duplicate prompts are dropped, keeping
// the first occurrence, and an empty result is an error.
func Parse(data []byte) (Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Set{}, errors.Wrap(err, "invalid prompts yaml")
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(s.Prompts))
	for _, p := range s.Prompts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	if len(out) == 0 {
		return Set{}, errors.New("prompts yaml has no prompts")
	}
	s.Prompts = out
	if strings.TrimSpace(s.Title) == "" {
		s.Title = defaultTitle
	}
	return s, nil
}

// List returns a copy of the prompts.
func (s Set) List() []string {
	out := make([]string, len(s.Prompts))
	copy(out, s.Prompts)
	return out
}

func (s Set) Len() int { return len(s.Prompts) }

// At returns the i-th prompt (0-based).
func (s Set) At(i int) (string, bool) {
	if i < 0 || i >= len(s.Prompts) {
		return "", false
	}
	return s.Prompts[i], true
}
