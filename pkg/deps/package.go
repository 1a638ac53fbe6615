package deps

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"

	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/version"
)

// Package is an installable unit and its direct dependencies.
type Package struct {
	Name         string          // Package name, the identity used for resolution
	Version      version.Version // Zero value means absent
	URL          *url.URL        // nil means absent; empty means resolve later
	Dependencies []*Package      // Direct dependencies, in declaration order
	Kind         Kind            // Packaging format

	mode Mode
}

// Field is an optional constructor argument with three states: unset (take
// the default), null (absent) or a value.
type Field[T any] struct {
	value T
	set   bool
	null  bool
}

// Of returns a Field holding v.
func Of[T any](v T) Field[T] { return Field[T]{value: v, set: true} }

// Null returns a Field that marks the value absent.
func Null[T any]() Field[T] { return Field[T]{null: true} }

// IsSet reports whether f carries a value or an explicit null.
func (f Field[T]) IsSet() bool { return f.set || f.null }

func (f Field[T]) resolve(def, absent T) T {
	switch {
	case f.null:
		return absent
	case f.set:
		return f.value
	default:
		return def
	}
}

// Fields are the constructor arguments for New.
type Fields struct {
	Name         string
	Version      Field[version.Version]
	URL          Field[*url.URL]
	Dependencies []*Package
	Kind         Kind
}

// New builds a Package and validates it under mode. In strict mode any
// problem returns an INVALID_PACKAGE error and no package. In permissive
// mode problems are reported through the mode's warn function and the
// package is returned. A zero mode is an INVALID_INPUT error.
func New(f Fields, mode Mode) (*Package, error) {
	if mode.IsZero() {
		return nil, fsmerrors.New(fsmerrors.ErrCodeInvalidInput, "validation mode not selected for package %q", f.Name)
	}
	p := &Package{
		Name:         f.Name,
		Version:      f.Version.resolve(version.Versionless, version.Version{}),
		URL:          f.URL.resolve(&url.URL{}, nil),
		Dependencies: slices.Clone(f.Dependencies),
		Kind:         f.Kind.Normalize(),
		mode:         mode,
	}
	if err := p.Conforms(); err != nil {
		return nil, err
	}
	return p, nil
}

// MustNew is like New in strict mode but panics on error.
func MustNew(f Fields) *Package {
	p, err := New(f, Strict())
	if err != nil {
		panic(err)
	}
	return p
}

// Conforms validates p under the mode it was constructed with. Packages
// built as literals have no mode and are checked with ValidateWith instead.
func (p *Package) Conforms() error {
	return p.mode.report(p.Name, p.Problems())
}

// ValidateWith validates p under mode.
func (p *Package) ValidateWith(mode Mode) error {
	return mode.report(p.Name, p.Problems())
}

// Problems returns every validation problem with p without reporting them.
func (p *Package) Problems() []string {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "name is empty")
	}
	for i, d := range p.Dependencies {
		if d == nil {
			problems = append(problems, fmt.Sprintf("dependency %d is nil", i))
		}
	}
	if p.Version.IsAbsent() {
		problems = append(problems, "version is absent")
	}
	if p.URL == nil {
		problems = append(problems, "url is absent")
	}
	if !p.Kind.Valid() {
		problems = append(problems, fmt.Sprintf("unknown kind %q", string(p.Kind)))
	}
	return problems
}

// DependencyNames returns the names of p's direct dependencies in order.
// Nil entries are skipped.
func (p *Package) DependencyNames() []string {
	names := make([]string, 0, len(p.Dependencies))
	for _, d := range p.Dependencies {
		if d != nil {
			names = append(names, d.Name)
		}
	}
	return names
}

// Equal reports whether p and other have the same name, version, url, kind
// and dependency names.
func (p *Package) Equal(other *Package) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Name == other.Name &&
		version.Equal(p.Version, other.Version) &&
		urlString(p.URL) == urlString(other.URL) &&
		(p.URL == nil) == (other.URL == nil) &&
		p.Kind.Normalize() == other.Kind.Normalize() &&
		slices.Equal(p.DependencyNames(), other.DependencyNames())
}

// String returns "name@version", or the bare name for versionless packages.
func (p *Package) String() string {
	if p == nil {
		return ""
	}
	if p.Version.IsAbsent() || p.Version.IsVersionless() {
		return p.Name
	}
	return p.Name + "@" + p.Version.String()
}

// Compare orders packages by name, then by version.
func Compare(a, b *Package) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return version.Compare(a.Version, b.Version)
}

// Key returns the identity of p for graph traversal and repository lookup.
func Key(p *Package) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
