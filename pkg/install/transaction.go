package install

import (
	"context"
	"errors"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/observability"
)

// Options configures a Transaction.
type Options struct {
	// Backends handles each kind. Nil selects DefaultBackends with a
	// DryRunRunner, so nothing touches the host unless asked to.
	Backends Backends
	// Journal records the transaction. Nil selects NopJournal.
	Journal Journal
	// Logger receives progress output. Nil discards it.
	Logger *log.Logger
}

// WithDefaults returns a copy of Options with nil fields replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Backends == nil {
		opts.Backends = DefaultBackends(DryRunRunner{Logger: opts.Logger})
	}
	if opts.Journal == nil {
		opts.Journal = NopJournal{}
	}
	return opts
}

// Result summarizes an applied transaction. After a rollback Installed
// holds only the packages that could not be removed again.
type Result struct {
	ID         string
	Installed  []string // installed by this transaction and still present, in order
	Skipped    []string // already installed beforehand
	RolledBack []string // installed, then removed by rollback, in removal order
}

// Transaction installs a resolution order as one unit.
type Transaction struct {
	ID   string
	opts Options
}

// NewTransaction returns a transaction with a fresh ID.
func NewTransaction(opts Options) *Transaction {
	return &Transaction{ID: uuid.NewString(), opts: opts.WithDefaults()}
}

// Apply installs order front to back. Packages the journal already holds
// are skipped. On the first failure every package installed so far is
// removed in reverse order, and the returned error joins the INSTALL_FAILED
// cause with any rollback errors.
func (t *Transaction) Apply(ctx context.Context, order []*deps.Package) (*Result, error) {
	logger := t.opts.Logger.With("txn", t.ID)
	res := &Result{ID: t.ID}

	if err := t.opts.Journal.Begin(ctx, t.ID); err != nil {
		return nil, fsmerrors.Wrap(fsmerrors.ErrCodeInstallFailed, err, "begin transaction")
	}

	var applied []*deps.Package
	for _, p := range order {
		if p == nil {
			continue
		}
		err := t.step(ctx, p, res, &applied)
		if err == nil {
			continue
		}

		logger.Warn("install failed, rolling back", "package", p.Name, "steps", len(applied), "err", err)
		removed, rbErr := t.rollback(context.WithoutCancel(ctx), applied)
		res.RolledBack = removed
		res.Installed = slices.DeleteFunc(res.Installed, func(name string) bool {
			return slices.Contains(removed, name)
		})
		observability.Install().OnRollback(ctx, t.ID, len(applied), rbErr)
		finErr := t.opts.Journal.Finish(context.WithoutCancel(ctx), t.ID, StatusRolledBack)
		return res, errors.Join(fsmerrors.Wrap(fsmerrors.ErrCodeInstallFailed, err, "install %s", p.Name), rbErr, finErr)
	}

	if err := t.opts.Journal.Finish(ctx, t.ID, StatusCommitted); err != nil {
		return res, fsmerrors.Wrap(fsmerrors.ErrCodeInstallFailed, err, "commit transaction")
	}
	logger.Info("transaction committed", "installed", len(res.Installed), "skipped", len(res.Skipped))
	return res, nil
}

func (t *Transaction) step(ctx context.Context, p *deps.Package, res *Result, applied *[]*deps.Package) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done, err := t.opts.Journal.IsInstalled(ctx, p.Name)
	if err != nil {
		return err
	}
	if done {
		t.opts.Logger.Debug("already installed", "package", p.Name)
		res.Skipped = append(res.Skipped, p.Name)
		return nil
	}

	backend, err := t.opts.Backends.For(p.Kind)
	if err != nil {
		return err
	}

	start := time.Now()
	err = backend.Install(ctx, p)
	observability.Install().OnInstallStep(ctx, p.Kind.String(), p.Name, time.Since(start), err)
	if err != nil {
		return err
	}
	*applied = append(*applied, p)
	res.Installed = append(res.Installed, p.Name)

	if err := t.opts.Journal.Record(ctx, t.ID, p); err != nil {
		return err
	}
	t.opts.Logger.Info("installed", "package", p.String(), "kind", p.Kind.String())
	return nil
}

// rollback removes applied packages last to first and keeps going past
// failures so that as much as possible is undone. It returns the names it
// removed.
func (t *Transaction) rollback(ctx context.Context, applied []*deps.Package) ([]string, error) {
	var (
		removed []string
		errs    []error
	)
	for i := len(applied) - 1; i >= 0; i-- {
		p := applied[i]
		backend, err := t.opts.Backends.For(p.Kind)
		if err == nil {
			err = backend.Remove(ctx, p)
		}
		if err == nil {
			err = t.opts.Journal.Forget(ctx, p.Name)
		}
		if err != nil {
			errs = append(errs, fsmerrors.Wrap(fsmerrors.ErrCodeInstallFailed, err, "roll back %s", p.Name))
			continue
		}
		removed = append(removed, p.Name)
		t.opts.Logger.Info("rolled back", "package", p.Name)
	}
	return removed, errors.Join(errs...)
}

// Remove uninstalls pkgs in reverse resolution order, so dependents go
// before their dependencies. Failures are collected and the rest proceed.
func (t *Transaction) Remove(ctx context.Context, order []*deps.Package) error {
	if err := t.opts.Journal.Begin(ctx, t.ID); err != nil {
		return fsmerrors.Wrap(fsmerrors.ErrCodeInstallFailed, err, "begin transaction")
	}
	var live []*deps.Package
	for _, p := range order {
		if p != nil {
			live = append(live, p)
		}
	}
	_, err := t.rollback(ctx, live)
	status := StatusCommitted
	if err != nil {
		status = StatusRolledBack
	}
	return errors.Join(err, t.opts.Journal.Finish(context.WithoutCancel(ctx), t.ID, status))
}
