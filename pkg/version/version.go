// Package version provides the semantic version value carried by packages.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3 that adds
// two states a plain semver value cannot express:
//
//   - absent: the zero Version, meaning no version was supplied at all
//     (an explicit null in package metadata)
//   - versionless: the [Versionless] sentinel, the default for packages that
//     do not declare a version
//
// Ordering is total: absent < versionless < every real version, and real
// versions follow semver precedence (major, then minor, then patch, then
// prerelease).
package version

import (
	"fmt"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version, the versionless sentinel, or absent.
type Version struct {
	v    *mm.Version
	none bool
}

// Versionless marks a package that declares no version.
var Versionless = Version{none: true}

// Parse parses a semantic version string. A leading "v" is accepted.
func Parse(raw string) (Version, error) {
	v, err := mm.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("version: parse %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// New builds a version from its components. Empty prerelease and build
// strings are omitted.
func New(major, minor, patch uint64, prerelease, build string) (Version, error) {
	raw := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if prerelease != "" {
		raw += "-" + prerelease
	}
	if build != "" {
		raw += "+" + build
	}
	v, err := mm.StrictNewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("version: build %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// IsAbsent reports whether v is the zero Version.
func (v Version) IsAbsent() bool { return v.v == nil && !v.none }

// IsVersionless reports whether v is the Versionless sentinel.
func (v Version) IsVersionless() bool { return v.none }

// Major returns the major component, or 0 for absent and versionless values.
func (v Version) Major() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Major()
}

// Minor returns the minor component, or 0 for absent and versionless values.
func (v Version) Minor() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Minor()
}

// Patch returns the patch component, or 0 for absent and versionless values.
func (v Version) Patch() uint64 {
	if v.v == nil {
		return 0
	}
	return v.v.Patch()
}

// Prerelease returns the prerelease suffix, if any.
func (v Version) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// String returns the version in major.minor.patch[-prerelease][+build] form,
// "versionless" for the sentinel and "" when absent.
func (v Version) String() string {
	switch {
	case v.none:
		return "versionless"
	case v.v == nil:
		return ""
	default:
		return v.v.String()
	}
}

// Equal reports whether a and b are the same version. Build metadata is
// ignored, as semver precedence requires.
func Equal(a, b Version) bool { return Compare(a, b) == 0 }

// Compare returns -1, 0 or 1 when a sorts before, equal to, or after b.
func Compare(a, b Version) int {
	if ra, rb := a.rank(), b.rank(); ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if a.v == nil {
		return 0
	}
	return a.v.Compare(b.v)
}

func (v Version) rank() int {
	switch {
	case v.v != nil:
		return 2
	case v.none:
		return 1
	default:
		return 0
	}
}

// MarshalText renders the version for JSON, YAML and TOML encoders.
func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// UnmarshalText accepts the forms produced by MarshalText.
func (v *Version) UnmarshalText(text []byte) error {
	switch s := string(text); s {
	case "":
		*v = Version{}
	case "versionless":
		*v = Versionless
	default:
		parsed, err := Parse(s)
		if err != nil {
			return err
		}
		*v = parsed
	}
	return nil
}
