package version

import (
	"fmt"

	mm "github.com/Masterminds/semver/v3"
)

// Constraint is a semantic version range such as ">=1.2.0 <2.0.0", "^1.0.0"
// or "~1.4".
type Constraint struct {
	c   *mm.Constraints
	raw string
}

// ParseConstraint parses a version constraint expression.
func ParseConstraint(raw string) (Constraint, error) {
	c, err := mm.NewConstraint(raw)
	if err != nil {
		return Constraint{}, fmt.Errorf("version: parse constraint %q: %w", raw, err)
	}
	return Constraint{c: c, raw: raw}, nil
}

// MustParseConstraint is like ParseConstraint but panics on error.
func MustParseConstraint(raw string) Constraint {
	c, err := ParseConstraint(raw)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the expression the constraint was parsed from.
func (c Constraint) String() string { return c.raw }

// Satisfies reports whether v falls within c. Absent and versionless values
// satisfy no constraint.
func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// MaxSatisfying returns the highest version in candidates that satisfies c.
// If multiple versions are equal, the first encountered wins.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, c) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}
