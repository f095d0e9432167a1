package suite

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/primerr"
	"github.com/lattice-substrate/primcheck/procedure"
)

func TestLoadDefaultProfile(t *testing.T) {
	p, err := LoadProfile(filepath.Join("..", "profiles", "default.yaml"))
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if p.CompareMode != string(check.Lenient) {
		t.Fatalf("unexpected compare mode %q", p.CompareMode)
	}
	if strings.Join(p.Categories, ",") != strings.Join(procedure.Categories, ",") {
		t.Fatalf("unexpected categories %v", p.Categories)
	}
	if p.IncludeStdout || p.Interactive {
		t.Fatal("default profile must not touch stdio")
	}
}

func TestLoadStrictProfile(t *testing.T) {
	p, err := LoadProfile(filepath.Join("..", "profiles", "strict.yaml"))
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if p.CompareMode != string(check.Strict) {
		t.Fatalf("unexpected compare mode %q", p.CompareMode)
	}
}

func TestLoadProfileMissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	if primerr.ClassOf(err) != primerr.ConfigInvalid {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestParseProfileKeepsDefaultsForOmittedFields(t *testing.T) {
	p, err := ParseProfile([]byte("name: quick\ncategories: [compare]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.CompareMode != string(check.Lenient) || p.HeapLimit != DefaultProfile().HeapLimit {
		t.Fatalf("defaults lost: %+v", p)
	}
}

func TestParseProfileOrdersCategories(t *testing.T) {
	p, err := ParseProfile([]byte("name: x\ncategories: [duplicate, read, length, write]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got := strings.Join(p.Categories, ",")
	if got != "length,write,read,duplicate" {
		t.Fatalf("got=%q want=%q", got, "length,write,read,duplicate")
	}
}

func TestParseProfileEmptyDocumentIsDefault(t *testing.T) {
	p, err := ParseProfile(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.Name != "default" {
		t.Fatalf("unexpected name %q", p.Name)
	}
}

func TestParseProfileRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "unknown field", doc: "name: x\nverbose: true\n", want: "decode profile yaml"},
		{name: "bad mode", doc: "name: x\ncompare_mode: fuzzy\n", want: "fuzzy"},
		{name: "unknown category", doc: "name: x\ncategories: [length, memset]\n", want: "memset"},
		{name: "duplicate category", doc: "name: x\ncategories: [copy, copy]\n", want: "duplicate"},
		{name: "no categories", doc: "name: x\ncategories: []\n", want: "at least one"},
		{name: "read without write", doc: "name: x\ncategories: [read]\n", want: "read needs write"},
		{name: "negative heap", doc: "name: x\nheap_limit: -1\n", want: "heap_limit"},
		{name: "empty name", doc: "name: \"\"\n", want: "name is required"},
		{name: "trailing document", doc: "name: x\n---\nname: y\n", want: "trailing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProfile([]byte(tc.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if primerr.ClassOf(err) != primerr.ConfigInvalid {
				t.Fatalf("class got=%s want=%s", primerr.ClassOf(err), primerr.ConfigInvalid)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
