package install

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/version"
)

// recorder is a Runner that remembers command lines and fails on demand.
type recorder struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error // keyed by full command line
}

func (r *recorder) Run(_ context.Context, name string, args ...string) error {
	line := strings.Join(append([]string{name}, args...), " ")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, line)
	return r.fail[line]
}

// memJournal is an in-memory Journal.
type memJournal struct {
	installed map[string]string // name -> txn
	status    map[string]Status
	forgetErr error
}

func newMemJournal(preinstalled ...string) *memJournal {
	j := &memJournal{installed: map[string]string{}, status: map[string]Status{}}
	for _, n := range preinstalled {
		j.installed[n] = "earlier"
	}
	return j
}

func (j *memJournal) Begin(_ context.Context, id string) error {
	j.status[id] = StatusPending
	return nil
}

func (j *memJournal) Record(_ context.Context, id string, p *deps.Package) error {
	j.installed[p.Name] = id
	return nil
}

func (j *memJournal) Forget(_ context.Context, name string) error {
	if j.forgetErr != nil {
		return j.forgetErr
	}
	delete(j.installed, name)
	return nil
}

func (j *memJournal) Finish(_ context.Context, id string, s Status) error {
	j.status[id] = s
	return nil
}

func (j *memJournal) IsInstalled(_ context.Context, name string) (bool, error) {
	_, ok := j.installed[name]
	return ok, nil
}

func rpm(name, v string) *deps.Package {
	return deps.MustNew(deps.Fields{Name: name, Version: deps.Of(version.MustParse(v)), Kind: deps.KindRPM})
}

func TestApply(t *testing.T) {
	r := &recorder{}
	j := newMemJournal()
	txn := NewTransaction(Options{Backends: DefaultBackends(r), Journal: j})

	order := []*deps.Package{
		rpm("emacs-core", "29.1.0"),
		rpm("emacs-lisp", "29.1.0"),
		deps.MustNew(deps.Fields{Name: "emacs"}),
	}
	res, err := txn.Apply(context.Background(), order)
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	wantCalls := []string{
		"dnf install -y emacs-core-29.1.0",
		"dnf install -y emacs-lisp-29.1.0",
	}
	if !slices.Equal(r.calls, wantCalls) {
		t.Errorf("calls = %v, want %v", r.calls, wantCalls)
	}
	if want := []string{"emacs-core", "emacs-lisp", "emacs"}; !slices.Equal(res.Installed, want) {
		t.Errorf("Installed = %v, want %v", res.Installed, want)
	}
	if res.ID != txn.ID || txn.ID == "" {
		t.Errorf("result ID = %q, transaction ID = %q", res.ID, txn.ID)
	}
	if j.status[txn.ID] != StatusCommitted {
		t.Errorf("status = %q, want committed", j.status[txn.ID])
	}
	if j.installed["emacs"] != txn.ID {
		t.Error("journal should record emacs under the transaction")
	}
}

func TestApplySkipsInstalled(t *testing.T) {
	r := &recorder{}
	j := newMemJournal("emacs-core")
	txn := NewTransaction(Options{Backends: DefaultBackends(r), Journal: j})

	res, err := txn.Apply(context.Background(), []*deps.Package{rpm("emacs-core", "29.1.0"), rpm("emacs", "29.1.0")})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if !slices.Equal(res.Skipped, []string{"emacs-core"}) {
		t.Errorf("Skipped = %v", res.Skipped)
	}
	if !slices.Equal(r.calls, []string{"dnf install -y emacs-29.1.0"}) {
		t.Errorf("calls = %v", r.calls)
	}
}

func TestApplyRollback(t *testing.T) {
	boom := errors.New("exit status 1")
	r := &recorder{fail: map[string]error{"dnf install -y emacs-29.1.0": boom}}
	j := newMemJournal("glibc")
	txn := NewTransaction(Options{Backends: DefaultBackends(r), Journal: j})

	order := []*deps.Package{
		rpm("glibc", "2.38.0"),
		rpm("emacs-core", "29.1.0"),
		rpm("emacs-lisp", "29.1.0"),
		rpm("emacs", "29.1.0"),
	}
	res, err := txn.Apply(context.Background(), order)
	if err == nil {
		t.Fatal("Apply should fail")
	}
	if len(res.Installed) != 0 {
		t.Errorf("Installed = %v, want none after rollback", res.Installed)
	}
	if want := []string{"emacs-lisp", "emacs-core"}; !slices.Equal(res.RolledBack, want) {
		t.Errorf("RolledBack = %v, want %v", res.RolledBack, want)
	}
	if !slices.Equal(res.Skipped, []string{"glibc"}) {
		t.Errorf("Skipped = %v, want [glibc]", res.Skipped)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error %v should wrap the backend failure", err)
	}
	if !fsmerrors.Is(err, fsmerrors.ErrCodeInstallFailed) {
		t.Errorf("code = %q, want INSTALL_FAILED", fsmerrors.GetCode(err))
	}

	wantCalls := []string{
		"dnf install -y emacs-core-29.1.0",
		"dnf install -y emacs-lisp-29.1.0",
		"dnf install -y emacs-29.1.0",
		"dnf remove -y emacs-lisp",
		"dnf remove -y emacs-core",
	}
	if !slices.Equal(r.calls, wantCalls) {
		t.Errorf("calls =\n%v\nwant\n%v", r.calls, wantCalls)
	}
	if j.status[txn.ID] != StatusRolledBack {
		t.Errorf("status = %q, want rolled_back", j.status[txn.ID])
	}
	if _, ok := j.installed["emacs-core"]; ok {
		t.Error("rolled back package should be forgotten")
	}
	if _, ok := j.installed["glibc"]; !ok {
		t.Error("preinstalled package must survive rollback")
	}
}

func TestApplyRollbackErrors(t *testing.T) {
	r := &recorder{fail: map[string]error{"dnf install -y b-1.0.0": errors.New("install b")}}
	j := newMemJournal()
	j.forgetErr = errors.New("journal locked")
	txn := NewTransaction(Options{Backends: DefaultBackends(r), Journal: j})

	res, err := txn.Apply(context.Background(), []*deps.Package{rpm("a", "1.0.0"), rpm("b", "1.0.0")})
	if err == nil {
		t.Fatal("Apply should fail")
	}
	// a could not be forgotten, so it still counts as installed.
	if !slices.Equal(res.Installed, []string{"a"}) || len(res.RolledBack) != 0 {
		t.Errorf("Installed = %v, RolledBack = %v", res.Installed, res.RolledBack)
	}
	for _, want := range []string{"install b", "roll back a", "journal locked"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestApplyUnknownBackend(t *testing.T) {
	txn := NewTransaction(Options{Backends: Backends{}, Journal: newMemJournal()})
	_, err := txn.Apply(context.Background(), []*deps.Package{deps.MustNew(deps.Fields{Name: "x", Kind: deps.KindCrate})})
	if !fsmerrors.Is(err, fsmerrors.ErrCodeInstallFailed) {
		t.Errorf("error = %v, want INSTALL_FAILED", err)
	}
}

func TestApplyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &recorder{}
	txn := NewTransaction(Options{Backends: DefaultBackends(r), Journal: newMemJournal()})
	_, err := txn.Apply(ctx, []*deps.Package{rpm("a", "1.0.0")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("calls = %v, want none", r.calls)
	}
}

func TestRemove(t *testing.T) {
	r := &recorder{}
	j := newMemJournal("a", "b")
	txn := NewTransaction(Options{Backends: DefaultBackends(r), Journal: j})
	if err := txn.Remove(context.Background(), []*deps.Package{rpm("a", "1.0.0"), rpm("b", "1.0.0")}); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if want := []string{"dnf remove -y b", "dnf remove -y a"}; !slices.Equal(r.calls, want) {
		t.Errorf("calls = %v, want %v", r.calls, want)
	}
	if len(j.installed) != 0 {
		t.Errorf("journal still holds %v", j.installed)
	}
}

func TestDefaultBackends(t *testing.T) {
	u, _ := url.Parse("https://files.example.com/requests-2.31.0-py3-none-any.whl")
	tests := []struct {
		pkg         *deps.Package
		wantInstall string
		wantRemove  string
	}{
		{rpm("emacs", "29.1.0"), "dnf install -y emacs-29.1.0", "dnf remove -y emacs"},
		{deps.MustNew(deps.Fields{Name: "curl", Kind: deps.KindApt}), "apt-get install -y curl", "apt-get remove -y curl"},
		{deps.MustNew(deps.Fields{Name: "curl", Version: deps.Of(version.MustParse("8.5.0")), Kind: deps.KindApt}),
			"apt-get install -y curl=8.5.0", "apt-get remove -y curl"},
		{deps.MustNew(deps.Fields{Name: "flask", Version: deps.Of(version.MustParse("3.0.0")), Kind: deps.KindPip}),
			"pip install flask==3.0.0", "pip uninstall -y flask"},
		{deps.MustNew(deps.Fields{Name: "requests", URL: deps.Of(u), Kind: deps.KindWheel}),
			"pip install " + u.String(), "pip uninstall -y requests"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.pkg.Kind, tt.pkg.Name), func(t *testing.T) {
			r := &recorder{}
			b, err := DefaultBackends(r).For(tt.pkg.Kind)
			if err != nil {
				t.Fatalf("For error: %v", err)
			}
			if err := b.Install(context.Background(), tt.pkg); err != nil {
				t.Fatal(err)
			}
			if err := b.Remove(context.Background(), tt.pkg); err != nil {
				t.Fatal(err)
			}
			if want := []string{tt.wantInstall, tt.wantRemove}; !slices.Equal(r.calls, want) {
				t.Errorf("calls = %v, want %v", r.calls, want)
			}
		})
	}
}

func TestBackendsFor(t *testing.T) {
	b := DefaultBackends(&recorder{})
	if _, err := b.For(""); err != nil {
		t.Errorf("zero kind should map to generic: %v", err)
	}
	if _, err := b.For(deps.KindCrate); !fsmerrors.Is(err, fsmerrors.ErrCodeInstallFailed) {
		t.Errorf("For(crate) error = %v, want INSTALL_FAILED", err)
	}
}

func TestDryRunRunner(t *testing.T) {
	if err := (DryRunRunner{}).Run(context.Background(), "dnf", "install", "-y", "emacs"); err != nil {
		t.Errorf("Run error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (DryRunRunner{}).Run(ctx, "dnf"); !errors.Is(err, context.Canceled) {
		t.Errorf("Run on canceled context = %v", err)
	}
}

func TestExecRunner(t *testing.T) {
	if err := (ExecRunner{}).Run(context.Background(), "true"); err != nil {
		t.Skipf("true not available: %v", err)
	}
	err := (ExecRunner{}).Run(context.Background(), "sh", "-c", "echo nope >&2; exit 3")
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("error = %v, want command output", err)
	}
}
