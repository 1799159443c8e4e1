package replay

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/consensus-gate/internal/config"
)

// #region fixture-types

// Mode selects which engine a fixture drives.
type Mode string

const (
	ModeNegotiate Mode = "negotiate"
	ModeEvolve    Mode = "evolve"
)

// Fixture is a recorded scenario: a session document plus the outcome it must
// reproduce.
type Fixture struct {
	Description string      `yaml:"description"`
	Mode        Mode        `yaml:"mode"`
	Rounds      int         `yaml:"rounds"` // evolve only; 0 keeps the session's value
	Session     yaml.Node   `yaml:"session"`
	Expect      Expectation `yaml:"expect"`

	path string
}

// Expectation lists the checks of a fixture. Empty fields are not checked.
type Expectation struct {
	Verdict            string              `yaml:"verdict"`
	Rounds             *int                `yaml:"rounds"`
	Sealed             []string            `yaml:"sealed"`
	Active             []string            `yaml:"active"`
	History            map[string][]string `yaml:"history"`
	LastReasonContains string              `yaml:"last_reason_contains"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a YAML fixture file. Unknown fields are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	f, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	f.path = path
	return f, nil
}

// ParseFixture decodes a fixture document.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	switch f.Mode {
	case ModeNegotiate, ModeEvolve:
	default:
		return nil, fmt.Errorf("mode must be %q or %q, got %q", ModeNegotiate, ModeEvolve, f.Mode)
	}
	if f.Session.Kind == 0 {
		return nil, fmt.Errorf("session is required")
	}
	return &f, nil
}

// Name is the fixture's file path, or its description when parsed from memory.
func (f *Fixture) Name() string {
	if f.path != "" {
		return f.path
	}
	return f.Description
}

// LoadSession validates the embedded session document.
func (f *Fixture) LoadSession() (*config.Session, error) {
	data, err := yaml.Marshal(&f.Session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return config.Parse(data, config.FormatYAML, f.Name()+"#session")
}

// #endregion fixture-loader
