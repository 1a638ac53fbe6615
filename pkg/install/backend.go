package install

import (
	"context"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
)

// Backend installs and removes packages of one kind.
type Backend interface {
	Install(ctx context.Context, p *deps.Package) error
	Remove(ctx context.Context, p *deps.Package) error
}

// Backends maps each kind to the backend that handles it.
type Backends map[deps.Kind]Backend

// For returns the backend for k, or an INSTALL_FAILED error if none is
// registered.
func (b Backends) For(k deps.Kind) (Backend, error) {
	if be, ok := b[k.Normalize()]; ok && be != nil {
		return be, nil
	}
	return nil, fsmerrors.New(fsmerrors.ErrCodeInstallFailed, "no install backend for kind %q", k.String())
}

// DefaultBackends returns command backends for the package managers fsm
// knows how to drive, all running through r.
//
//	generic        no-op
//	rpm            dnf
//	apt            apt-get
//	pip, wheel     pip
func DefaultBackends(r Runner) Backends {
	pip := CommandBackend{
		Runner:      r,
		Command:     "pip",
		InstallArgs: func(p *deps.Package) []string { return []string{"install", target(p, "==")} },
		RemoveArgs:  func(p *deps.Package) []string { return []string{"uninstall", "-y", p.Name} },
	}
	return Backends{
		deps.KindGeneric: NopBackend{},
		deps.KindRPM: CommandBackend{
			Runner:      r,
			Command:     "dnf",
			InstallArgs: func(p *deps.Package) []string { return []string{"install", "-y", target(p, "-")} },
			RemoveArgs:  func(p *deps.Package) []string { return []string{"remove", "-y", p.Name} },
		},
		deps.KindApt: CommandBackend{
			Runner:      r,
			Command:     "apt-get",
			InstallArgs: func(p *deps.Package) []string { return []string{"install", "-y", target(p, "=")} },
			RemoveArgs:  func(p *deps.Package) []string { return []string{"remove", "-y", p.Name} },
		},
		deps.KindPip:   pip,
		deps.KindWheel: pip,
	}
}

// CommandBackend drives a package-manager command. InstallArgs and
// RemoveArgs build the argument list for a package.
type CommandBackend struct {
	Runner      Runner
	Command     string
	InstallArgs func(p *deps.Package) []string
	RemoveArgs  func(p *deps.Package) []string
}

// Install runs the install command for p.
func (b CommandBackend) Install(ctx context.Context, p *deps.Package) error {
	return b.Runner.Run(ctx, b.Command, b.InstallArgs(p)...)
}

// Remove runs the remove command for p.
func (b CommandBackend) Remove(ctx context.Context, p *deps.Package) error {
	return b.Runner.Run(ctx, b.Command, b.RemoveArgs(p)...)
}

// NopBackend accepts every package and does nothing.
type NopBackend struct{}

func (NopBackend) Install(context.Context, *deps.Package) error { return nil }
func (NopBackend) Remove(context.Context, *deps.Package) error  { return nil }

// target names what to hand the package manager: the download URL when one
// is set, otherwise the name pinned to its version with sep.
func target(p *deps.Package, sep string) string {
	if p.URL != nil && p.URL.String() != "" {
		return p.URL.String()
	}
	if v := p.Version; !v.IsAbsent() && !v.IsVersionless() {
		return p.Name + sep + v.String()
	}
	return p.Name
}
