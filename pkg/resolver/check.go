package resolver

import (
	"context"

	"github.com/matzehuels/fsm/pkg/deps"
	"github.com/matzehuels/fsm/pkg/graph"
	"github.com/matzehuels/fsm/pkg/observability"
	"github.com/matzehuels/fsm/pkg/repo"
	"github.com/matzehuels/fsm/pkg/version"
)

// Shortfall reasons.
const (
	ReasonMissing = "missing" // no package of that name in the repository
	ReasonVersion = "version" // present, but the version does not match
)

// Shortfall describes a required package the repository cannot satisfy.
type Shortfall struct {
	Name   string          `json:"name"`
	Want   version.Version `json:"want"`
	Have   version.Version `json:"have,omitzero"` // zero when missing
	Reason string          `json:"reason"`
}

// MatchFunc reports whether the repository's version have satisfies the
// required version want.
type MatchFunc func(want, have version.Version) bool

// ExactMatch requires equal versions. A versionless or absent requirement
// matches any version.
func ExactMatch(want, have version.Version) bool {
	if unconstrained(want) {
		return true
	}
	return version.Equal(want, have)
}

// CompatibleMatch accepts any version with the same major (caret
// semantics: ^want). A versionless or absent requirement matches any
// version.
func CompatibleMatch(want, have version.Version) bool {
	if unconstrained(want) {
		return true
	}
	c, err := version.ParseConstraint("^" + want.String())
	if err != nil {
		return version.Equal(want, have)
	}
	return version.Satisfies(have, c)
}

func unconstrained(v version.Version) bool {
	return v.IsAbsent() || v.IsVersionless()
}

// Shortfalls resolves root and checks every package in the order against
// available. It never stops at the first shortfall; results follow the
// resolution order.
func (r *Resolver) Shortfalls(ctx context.Context, root *graph.Node[*deps.Package], available *repo.Repository) ([]Shortfall, error) {
	order, err := r.Resolve(ctx, root)
	if err != nil {
		return nil, err
	}
	return r.Check(ctx, order, available), nil
}

// Check reports the shortfalls of an already resolved order.
func (r *Resolver) Check(ctx context.Context, order []*deps.Package, available *repo.Repository) []Shortfall {
	hooks := observability.Resolve()
	var out []Shortfall
	for _, p := range order {
		s, ok := r.check(p, available)
		if !ok {
			continue
		}
		hooks.OnShortfall(ctx, s.Name, s.Reason)
		r.opts.Logger.Debug("shortfall", "package", s.Name, "reason", s.Reason)
		out = append(out, s)
	}
	return out
}

// check reports whether p falls short. A nil payload names no package, so
// it is always missing under the empty name.
func (r *Resolver) check(p *deps.Package, available *repo.Repository) (Shortfall, bool) {
	if p == nil {
		return Shortfall{Reason: ReasonMissing}, true
	}
	have, ok := available.Get(p.Name)
	if !ok {
		return Shortfall{Name: p.Name, Want: p.Version, Reason: ReasonMissing}, true
	}
	if r.opts.CheckVersions && !r.opts.Match(p.Version, have.Version) {
		return Shortfall{Name: p.Name, Want: p.Version, Have: have.Version, Reason: ReasonVersion}, true
	}
	return Shortfall{}, false
}

// Available returns the names of every package reachable from root that
// available cannot satisfy, in resolution order. An empty result means
// everything is available.
func (r *Resolver) Available(ctx context.Context, root *graph.Node[*deps.Package], available *repo.Repository) ([]string, error) {
	shortfalls, err := r.Shortfalls(ctx, root, available)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(shortfalls))
	for i, s := range shortfalls {
		names[i] = s.Name
	}
	return names, nil
}
