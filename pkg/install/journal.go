package install

import (
	"context"

	"github.com/matzehuels/fsm/pkg/deps"
)

// Status is the outcome of a transaction.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// Journal records transactions and the packages they install.
type Journal interface {
	Begin(ctx context.Context, txnID string) error
	Record(ctx context.Context, txnID string, p *deps.Package) error
	Forget(ctx context.Context, name string) error
	Finish(ctx context.Context, txnID string, status Status) error
	IsInstalled(ctx context.Context, name string) (bool, error)
}

// NopJournal records nothing and reports every package as not installed.
type NopJournal struct{}

func (NopJournal) Begin(context.Context, string) error                 { return nil }
func (NopJournal) Record(context.Context, string, *deps.Package) error { return nil }
func (NopJournal) Forget(context.Context, string) error                { return nil }
func (NopJournal) Finish(context.Context, string, Status) error        { return nil }
func (NopJournal) IsInstalled(context.Context, string) (bool, error)   { return false, nil }
