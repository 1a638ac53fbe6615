// Package repo provides the set of packages available for installation.
//
// A [Repository] indexes packages by name. Membership is by name only: a
// repository that holds "emacs" at any version contains every package
// named "emacs". Version checks are the resolver's concern.
package repo

import (
	"iter"
	"maps"
	"slices"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
)

// Repository is an immutable name index over packages. It is safe for
// concurrent reads.
type Repository struct {
	byName map[string]*deps.Package
}

// New indexes pkgs. Entries that are Equal to an already indexed package
// collapse; a different package under the same name is a
// DUPLICATE_PACKAGE error. Nil entries are skipped.
func New(pkgs []*deps.Package) (*Repository, error) {
	r := &Repository{byName: make(map[string]*deps.Package, len(pkgs))}
	for _, p := range pkgs {
		if err := r.add(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(pkgs ...*deps.Package) *Repository {
	r, err := New(pkgs)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Repository) add(p *deps.Package) error {
	if p == nil {
		return nil
	}
	if have, ok := r.byName[p.Name]; ok {
		if have.Equal(p) {
			return nil
		}
		return fsmerrors.New(fsmerrors.ErrCodeDuplicatePackage,
			"package %q listed twice with different contents (%s, %s)", p.Name, have, p)
	}
	r.byName[p.Name] = p
	return nil
}

// Merge returns the union of r and others under the same duplicate rule
// as New.
func (r *Repository) Merge(others ...*Repository) (*Repository, error) {
	out := &Repository{byName: maps.Clone(r.byName)}
	if out.byName == nil {
		out.byName = make(map[string]*deps.Package)
	}
	for _, o := range others {
		if o == nil {
			continue
		}
		for _, name := range o.Names() {
			if err := out.add(o.byName[name]); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Contains reports whether a package with p's name is available.
func (r *Repository) Contains(p *deps.Package) bool {
	if r == nil || p == nil {
		return false
	}
	_, ok := r.byName[p.Name]
	return ok
}

// Get returns the package with the given name.
func (r *Repository) Get(name string) (*deps.Package, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byName[name]
	return p, ok
}

// Len returns the number of distinct package names.
func (r *Repository) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byName)
}

// Names returns every package name in sorted order.
func (r *Repository) Names() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.byName))
}

// Packages returns every package sorted by name.
func (r *Repository) Packages() []*deps.Package {
	out := make([]*deps.Package, 0, r.Len())
	for _, p := range r.All() {
		out = append(out, p)
	}
	return out
}

// All iterates over packages in name order.
func (r *Repository) All() iter.Seq2[string, *deps.Package] {
	return func(yield func(string, *deps.Package) bool) {
		for _, name := range r.Names() {
			if !yield(name, r.byName[name]) {
				return
			}
		}
	}
}
