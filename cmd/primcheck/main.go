// Command primcheck runs the differential suite: ftlib against the oracle.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/lattice-substrate/primcheck/check"
	"github.com/lattice-substrate/primcheck/ftlib"
	"github.com/lattice-substrate/primcheck/oracle"
	"github.com/lattice-substrate/primcheck/prim"
	"github.com/lattice-substrate/primcheck/primerr"
	"github.com/lattice-substrate/primcheck/report"
	"github.com/lattice-substrate/primcheck/suite"
)

const (
	exitSuccess  = 0
	exitFailed   = 1
	exitInvalid  = 2
	exitInternal = 10
)

const usage = "usage: primcheck [--profile file] [--compare strict|lenient] [--evidence file] [--repeat n] [--quiet] [--stdout] [--interactive]"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type flags struct {
	profile     string
	compare     string
	evidence    string
	repeat      int
	quiet       bool
	stdout      bool
	interactive bool
	help        bool
}

func parseFlags(args []string) (flags, error) {
	f := flags{repeat: 1}
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "-") {
			return flags{}, fmt.Errorf("unexpected argument: %s", args[i])
		}
		if !hasValue && takesValue(name) {
			if i+1 >= len(args) {
				return flags{}, fmt.Errorf("option %s requires a value", name)
			}
			i++
			value = args[i]
		} else if hasValue && !takesValue(name) {
			return flags{}, fmt.Errorf("option %s takes no value", name)
		}

		switch name {
		case "--profile":
			f.profile = value
		case "--compare":
			f.compare = value
		case "--evidence":
			f.evidence = value
		case "--repeat":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return flags{}, fmt.Errorf("--repeat wants a count >= 1, got %q", value)
			}
			f.repeat = n
		case "--quiet", "-q":
			f.quiet = true
		case "--stdout":
			f.stdout = true
		case "--interactive":
			f.interactive = true
		case "--help", "-h":
			f.help = true
		default:
			return flags{}, fmt.Errorf("unknown option: %s", name)
		}
	}
	return f, nil
}

func takesValue(name string) bool {
	switch name {
	case "--profile", "--compare", "--evidence", "--repeat":
		return true
	}
	return false
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	fl, err := parseFlags(args)
	if err != nil {
		if werr := writef(stderr, "error: %v\n", err); werr != nil {
			return exitInternal
		}
		return writeErrorAndReturn(stderr, exitInvalid, "%s\n", usage)
	}
	if fl.help {
		if err := writeHelp(stdout); err != nil {
			return exitInternal
		}
		return exitSuccess
	}

	profile, err := loadProfile(fl)
	if err != nil {
		return writeErrorAndReturn(stderr, primerr.ClassOf(err).ExitCode(), "error: %v\n", err)
	}
	if profile.Interactive {
		if err := writeLine(stderr, "interactive: the read/stdin case reads standard input once per library; enter the same line twice"); err != nil {
			return exitInternal
		}
	}

	s, err := suite.New(profile,
		func(h *prim.Heap) prim.Library { return oracle.New(h) },
		func(h *prim.Heap) prim.Library { return ftlib.New(h) },
		suite.WithProgress(stderr))
	if err != nil {
		return writeErrorAndReturn(stderr, primerr.ClassOf(err).ExitCode(), "error: %v\n", err)
	}

	rep, runErr := s.RunRepeated(context.Background(), fl.repeat)
	if rep == nil {
		return writeErrorAndReturn(stderr, primerr.ClassOf(runErr).ExitCode(), "error: %v\n", runErr)
	}
	if err := report.Write(stdout, rep, report.Options{Quiet: fl.quiet}); err != nil {
		return writeErrorAndReturn(stderr, exitInternal, "error: %v\n", err)
	}
	if fl.evidence != "" {
		if err := suite.WriteEvidence(fl.evidence, rep.Evidence()); err != nil {
			return writeErrorAndReturn(stderr, primerr.ClassOf(err).ExitCode(), "error: %v\n", err)
		}
	}
	if runErr != nil {
		return writeErrorAndReturn(stderr, primerr.ClassOf(runErr).ExitCode(), "error: %v\n", runErr)
	}
	if !rep.OK() {
		return exitFailed
	}
	return exitSuccess
}

// loadProfile applies command-line overrides on top of the profile file or
// the defaults.
func loadProfile(fl flags) (*suite.Profile, error) {
	profile := suite.DefaultProfile()
	if fl.profile != "" {
		loaded, err := suite.LoadProfile(fl.profile)
		if err != nil {
			return nil, err
		}
		profile = loaded
	}
	if fl.compare != "" {
		mode, err := check.ParseCompareMode(fl.compare)
		if err != nil {
			return nil, err
		}
		profile.CompareMode = string(mode)
	}
	if fl.stdout {
		profile.IncludeStdout = true
	}
	if fl.interactive {
		profile.Interactive = true
	}
	if err := suite.ValidateProfile(profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func writeErrorAndReturn(stderr io.Writer, code int, format string, args ...any) int {
	if err := writef(stderr, format, args...); err != nil {
		return exitInternal
	}
	return code
}

func writeHelp(w io.Writer) error {
	lines := []string{
		usage,
		"  Compare ftlib against the oracle for strlen, strcpy, strcmp, write, read and strdup.",
		"  --profile file     YAML suite profile (defaults apply when omitted)",
		"  --compare mode     strict: exact compare values; lenient: sign only (default)",
		"  --evidence file    write canonical JSON evidence of the first run",
		"  --repeat n         run n times and require identical evidence digests",
		"  --quiet            print only failing cases and the summary",
		"  --stdout           include the write-to-standard-output case",
		"  --interactive      include the read-from-standard-input case (blocks)",
		"exit: 0 all passed, 1 a case failed or drifted, 2 usage or profile error, 10 internal error",
	}
	for _, line := range lines {
		if err := writeLine(w, line); err != nil {
			return err
		}
	}
	return nil
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
