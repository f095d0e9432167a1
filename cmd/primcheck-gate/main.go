// Command primcheck-gate runs the repository's required verification gates in order.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lattice-substrate/primcheck/executil"
	"github.com/lattice-substrate/primcheck/suite"
)

type gateStep struct {
	label string
	argv  []string
	env   map[string]string
}

type gateOptions struct {
	help   bool
	noRace bool
}

// gateSteps lists the gates in order. The two suite runs write their
// evidence under dir so the final gate can compare digests.
func gateSteps(opts gateOptions, dir string) []gateStep {
	steps := []gateStep{
		{label: "go vet", argv: []string{"go", "vet", "./..."}},
		{label: "unit tests", argv: []string{"go", "test", "./...", "-count=1", "-timeout=10m"}},
	}
	if !opts.noRace {
		steps = append(steps, gateStep{
			label: "race tests",
			argv:  []string{"go", "test", "./...", "-race", "-count=1", "-timeout=15m"},
			env:   map[string]string{"CGO_ENABLED": "1"},
		})
	}
	steps = append(steps, gateStep{label: "conformance", argv: []string{"go", "test", "./conformance", "-count=1", "-v"}})
	for i := 1; i <= 2; i++ {
		steps = append(steps, gateStep{
			label: fmt.Sprintf("suite run %d", i),
			argv:  []string{"go", "run", "./cmd/primcheck", "--quiet", "--repeat", "2", "--evidence", evidencePath(dir, i)},
		})
	}
	return steps
}

func evidencePath(dir string, run int) string {
	return filepath.Join(dir, fmt.Sprintf("evidence-%d.json", run))
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, executil.OSRunner{}))
}

func run(args []string, stdout, stderr io.Writer, runner executil.CommandRunner) int {
	opts, err := parseArgs(args)
	if err != nil {
		if writeErr := writef(stderr, "error: %v\n", err); writeErr != nil {
			return 1
		}
		if err := writeUsage(stderr); err != nil {
			return 1
		}
		return 2
	}
	if opts.help {
		if err := writeUsage(stdout); err != nil {
			return 1
		}
		return 0
	}

	dir, err := os.MkdirTemp("", "primcheck-gate-*")
	if err != nil {
		if writeErr := writef(stderr, "gate failed: evidence directory: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	steps := gateSteps(opts, dir)
	total := len(steps) + 1
	for i, step := range steps {
		if err := writef(stdout, "[%d/%d] %s\n", i+1, total, step.label); err != nil {
			return 1
		}
		if err := runner.Run(ctx, executil.Command{Argv: step.argv, Env: step.env}, stdout, stderr); err != nil {
			if writeErr := writef(stderr, "gate failed: %s: %v\n", step.label, err); writeErr != nil {
				return 1
			}
			return 1
		}
	}

	if err := writef(stdout, "[%d/%d] evidence digests\n", total, total); err != nil {
		return 1
	}
	digest, err := compareEvidence(evidencePath(dir, 1), evidencePath(dir, 2))
	if err != nil {
		if writeErr := writef(stderr, "gate failed: evidence digests: %v\n", err); writeErr != nil {
			return 1
		}
		return 1
	}
	if err := writef(stdout, "evidence sha256=%s\n", digest); err != nil {
		return 1
	}

	if err := writeLine(stdout, "all gates passed"); err != nil {
		return 1
	}
	return 0
}

func parseArgs(args []string) (gateOptions, error) {
	var opts gateOptions
	for _, arg := range args {
		switch arg {
		case "--help", "-h":
			opts.help = true
		case "--no-race":
			opts.noRace = true
		default:
			return opts, fmt.Errorf("unknown argument %q", arg)
		}
	}
	return opts, nil
}

// compareEvidence requires two separately produced evidence files to share
// one digest and returns it.
func compareEvidence(first, second string) (string, error) {
	a, err := suite.LoadEvidence(first)
	if err != nil {
		return "", err
	}
	b, err := suite.LoadEvidence(second)
	if err != nil {
		return "", err
	}
	da, err := a.Digest()
	if err != nil {
		return "", err
	}
	db, err := b.Digest()
	if err != nil {
		return "", err
	}
	if da != db {
		return "", fmt.Errorf("%s digest %s differs from %s digest %s", filepath.Base(second), db, filepath.Base(first), da)
	}
	return da, nil
}

func writeUsage(w io.Writer) error {
	if err := writeLine(w, "usage: go run ./cmd/primcheck-gate [--help] [--no-race]"); err != nil {
		return err
	}
	if err := writeLine(w, "runs: vet, tests, race, conformance, two suite runs, evidence digests"); err != nil {
		return err
	}
	return writeLine(w, "race tests need cgo and a C toolchain; pass --no-race where they are unavailable")
}

func writeLine(w io.Writer, msg string) error {
	return writef(w, "%s\n", msg)
}

func writef(w io.Writer, format string, args ...any) error {
	if _, err := fmt.Fprintf(w, format, args...); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
