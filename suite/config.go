package suite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/corpus"
	"github.com/lattice-substrate/primcheck/primerr"
	"github.com/lattice-substrate/primcheck/procedure"
)

// Profile selects what a suite run covers and how it judges comparisons.
type Profile struct {
	Name string `yaml:"name"`
	// CompareMode is "lenient" (sign class only) or "strict" (exact value).
	CompareMode string   `yaml:"compare_mode"`
	Categories  []string `yaml:"categories"`
	// WorkDir holds fixtures. Empty means a fresh temporary directory per run.
	WorkDir       string `yaml:"work_dir"`
	HeapLimit     int    `yaml:"heap_limit"`
	IncludeStdout bool   `yaml:"include_stdout"`
	Interactive   bool   `yaml:"interactive"`
}

// DefaultProfile runs every category leniently without touching stdio.
func DefaultProfile() *Profile {
	return &Profile{
		Name:        "default",
		CompareMode: string(check.Lenient),
		Categories:  append([]string(nil), procedure.Categories...),
		HeapLimit:   corpus.DefaultHeapLimit,
	}
}

// LoadProfile reads, decodes, and validates a profile document. Fields left
// out keep their default values.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, primerr.Wrap(primerr.ConfigInvalid, "", "read profile", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates a profile document.
func ParseProfile(data []byte) (*Profile, error) {
	p := DefaultProfile()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, primerr.Wrap(primerr.ConfigInvalid, "", "decode profile yaml", err)
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		if err == nil {
			return nil, primerr.New(primerr.ConfigInvalid, "", "unexpected trailing yaml document")
		}
		return nil, primerr.Wrap(primerr.ConfigInvalid, "", "decode trailing yaml document", err)
	}
	if err := ValidateProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ValidateProfile checks p and puts its categories into execution order.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return primerr.New(primerr.ConfigInvalid, "", "profile is nil")
	}
	if p.Name == "" {
		return primerr.New(primerr.ConfigInvalid, "", "profile name is required")
	}
	mode, err := check.ParseCompareMode(p.CompareMode)
	if err != nil {
		return err
	}
	p.CompareMode = string(mode)
	if p.HeapLimit < 0 {
		return primerr.New(primerr.ConfigInvalid, "", fmt.Sprintf("heap_limit must be >= 0, got %d", p.HeapLimit))
	}
	if len(p.Categories) == 0 {
		return primerr.New(primerr.ConfigInvalid, "", "at least one category is required")
	}

	want := make(map[string]bool, len(p.Categories))
	for _, c := range p.Categories {
		if !isCategory(c) {
			return primerr.New(primerr.ConfigInvalid, "", fmt.Sprintf("unknown category %q", c))
		}
		if want[c] {
			return primerr.New(primerr.ConfigInvalid, "", fmt.Sprintf("duplicate category %q", c))
		}
		want[c] = true
	}
	if want[procedure.CategoryRead] && !want[procedure.CategoryWrite] {
		return primerr.New(primerr.ConfigInvalid, "", "category read needs write: its round-trip cases read back what write produced")
	}

	ordered := make([]string, 0, len(want))
	for _, c := range procedure.Categories {
		if want[c] {
			ordered = append(ordered, c)
		}
	}
	p.Categories = ordered
	return nil
}

func isCategory(name string) bool {
	for _, c := range procedure.Categories {
		if c == name {
			return true
		}
	}
	return false
}
