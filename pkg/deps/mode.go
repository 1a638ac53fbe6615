package deps

import (
	"strings"

	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
)

// Mode selects how validation problems are reported.
type Mode struct {
	strict bool
	warn   func(msg string, args ...any)
}

// Strict returns a Mode that fails construction on any problem.
func Strict() Mode { return Mode{strict: true} }

// Permissive returns a Mode that reports each problem through warn and lets
// construction proceed. A nil warn discards the reports.
func Permissive(warn func(msg string, args ...any)) Mode {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return Mode{warn: warn}
}

// IsZero reports whether m was never selected.
func (m Mode) IsZero() bool { return !m.strict && m.warn == nil }

// IsStrict reports whether m is the strict mode.
func (m Mode) IsStrict() bool { return m.strict }

func (m Mode) String() string {
	switch {
	case m.strict:
		return "strict"
	case m.warn != nil:
		return "permissive"
	default:
		return "unset"
	}
}

func (m Mode) report(name string, problems []string) error {
	if m.IsZero() {
		return fsmerrors.New(fsmerrors.ErrCodeInvalidInput, "validation mode not selected")
	}
	if len(problems) == 0 {
		return nil
	}
	if m.strict {
		return fsmerrors.New(fsmerrors.ErrCodeInvalidPackage, "package %q: %s", name, strings.Join(problems, "; "))
	}
	for _, p := range problems {
		m.warn("invalid package", "package", name, "problem", p)
	}
	return nil
}
