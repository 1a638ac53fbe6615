// Package install applies a resolution order to the host.
//
// A [Transaction] walks the order from [resolver.Resolver.Resolve] and hands
// each package to the [Backend] registered for its [deps.Kind]. When a step
// fails every step applied so far is removed again in reverse order, so a
// failed install leaves the host as it found it:
//
//	txn := install.NewTransaction(install.Options{
//	    Backends: install.DefaultBackends(install.ExecRunner{}),
//	    Journal:  st,
//	})
//	res, err := txn.Apply(ctx, order)
//
// Backends run package-manager commands through a [Runner]. [DryRunRunner]
// logs the commands instead of running them.
//
// A [Journal] records what was installed by which transaction; packages it
// already knows about are skipped. The SQLite journal lives in pkg/store.
//
// [resolver.Resolver.Resolve]: github.com/matzehuels/fsm/pkg/resolver.Resolver.Resolve
package install
