package suite

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	jcs "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"

	"github.com/lattice-substrate/primcheck/primerr"
)

const EvidenceSchemaVersion = "primcheck-evidence.v1"

// Evidence is the machine-readable record of a run. It holds nothing
// time- or host-dependent, so two runs with the same verdicts produce the same
// canonical bytes.
type Evidence struct {
	SchemaVersion string         `json:"schema_version"`
	Profile       string         `json:"profile"`
	CompareMode   string         `json:"compare_mode"`
	Reference     string         `json:"reference"`
	Candidate     string         `json:"candidate"`
	Categories    []string       `json:"categories"`
	Total         int            `json:"total"`
	Passed        int            `json:"passed"`
	Failed        int            `json:"failed"`
	Leaked        int            `json:"leaked_allocations"`
	Cases         []CaseEvidence `json:"cases"`
}

// CaseEvidence is one verdict.
type CaseEvidence struct {
	Category string           `json:"category"`
	Label    string           `json:"label"`
	Class    string           `json:"class,omitempty"`
	Passed   bool             `json:"passed"`
	Error    string           `json:"error,omitempty"`
	Aspects  []AspectEvidence `json:"aspects"`
}

// AspectEvidence is one checked aspect.
type AspectEvidence struct {
	Aspect      string `json:"aspect"`
	Reference   string `json:"reference"`
	Candidate   string `json:"candidate"`
	Pass        bool   `json:"pass"`
	Informative bool   `json:"informative,omitempty"`
}

// Evidence converts r.
func (r *Report) Evidence() *Evidence {
	e := &Evidence{
		SchemaVersion: EvidenceSchemaVersion,
		Profile:       r.Profile,
		CompareMode:   string(r.CompareMode),
		Reference:     r.Reference,
		Candidate:     r.Candidate,
		Categories:    append([]string{}, r.Categories...),
		Total:         r.Total,
		Passed:        r.Passed,
		Failed:        r.Failed,
		Leaked:        r.LeakedAllocations,
		Cases:         make([]CaseEvidence, 0, len(r.Verdicts)),
	}
	for _, v := range r.Verdicts {
		c := CaseEvidence{
			Category: v.Category,
			Label:    v.Label,
			Class:    string(v.Class),
			Passed:   v.Passed(),
			Aspects:  make([]AspectEvidence, 0, len(v.Results)),
		}
		if v.Err != nil {
			c.Error = v.Err.Error()
		}
		for _, res := range v.Results {
			c.Aspects = append(c.Aspects, AspectEvidence{
				Aspect:      string(res.Aspect),
				Reference:   res.Reference,
				Candidate:   res.Candidate,
				Pass:        res.Pass,
				Informative: res.Informative,
			})
		}
		e.Cases = append(e.Cases, c)
	}
	return e
}

// Canonical returns the RFC 8785 canonical JSON form of e.
func (e *Evidence) Canonical() ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, primerr.Wrap(primerr.InternalError, "", "marshal evidence", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, primerr.Wrap(primerr.InternalError, "", "canonicalize evidence", err)
	}
	return canonical, nil
}

// Digest returns the hex SHA-256 of the canonical form.
func (e *Evidence) Digest() (string, error) {
	canonical, err := e.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// WriteEvidence writes the canonical form of e plus a trailing LF to path.
func WriteEvidence(path string, e *Evidence) error {
	if e == nil {
		return primerr.New(primerr.InternalError, "", "evidence is nil")
	}
	data, err := e.Canonical()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return primerr.Wrap(primerr.InternalIO, "", fmt.Sprintf("write evidence %s", path), err)
	}
	return nil
}

// LoadEvidence reads an evidence file back.
func LoadEvidence(path string) (*Evidence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, primerr.Wrap(primerr.InternalIO, "", "read evidence", err)
	}
	var e Evidence
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, primerr.Wrap(primerr.InternalError, "", "decode evidence", err)
	}
	return &e, nil
}
