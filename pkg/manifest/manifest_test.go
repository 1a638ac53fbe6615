package manifest

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/version"
)

const emacsJSON = `{
  "packages": [
    {"name": "emacs", "version": "29.1.0", "kind": "rpm",
     "url": "https://mirror.example.com/emacs-29.1.0.rpm",
     "dependencies": ["emacs-lisp", "emacs-core", "emacs-gtk"]},
    {"name": "emacs-lisp", "version": {"major": 29, "minor": 1, "patch": 0},
     "dependencies": ["emacs-core"]},
    {"name": "emacs-core"},
    {"name": "emacs-gtk", "version": "3.24.0"}
  ]
}`

const emacsTOML = `
[[packages]]
name = "emacs"
version = "29.1.0"
kind = "rpm"
url = "https://mirror.example.com/emacs-29.1.0.rpm"
dependencies = ["emacs-lisp", "emacs-core", "emacs-gtk"]

[[packages]]
name = "emacs-lisp"
version = { major = 29, minor = 1, patch = 0 }
dependencies = ["emacs-core"]

[[packages]]
name = "emacs-core"

[[packages]]
name = "emacs-gtk"
version = "3.24.0"
`

const emacsYAML = `
- name: emacs
  version: 29.1.0
  kind: rpm
  url: https://mirror.example.com/emacs-29.1.0.rpm
  dependencies: [emacs-lisp, emacs-core, emacs-gtk]
- name: emacs-lisp
  version: {major: 29, minor: 1, patch: 0}
  dependencies: [emacs-core]
- name: emacs-core
- name: emacs-gtk
  version: "3.24.0"
`

func decode(t *testing.T, src string, format Format) []*deps.Package {
	t.Helper()
	pkgs, err := Decode(strings.NewReader(src), format, deps.Strict())
	if err != nil {
		t.Fatalf("Decode(%s) error: %v", format, err)
	}
	return pkgs
}

func names(pkgs []*deps.Package) []string {
	out := make([]string, len(pkgs))
	for i, p := range pkgs {
		out[i] = p.Name
	}
	return out
}

func TestDecodeFormatsAgree(t *testing.T) {
	want := decode(t, emacsJSON, FormatJSON)
	if got := names(want); !slices.Equal(got, []string{"emacs", "emacs-lisp", "emacs-core", "emacs-gtk"}) {
		t.Fatalf("names = %v", got)
	}

	for _, tt := range []struct {
		format Format
		src    string
	}{
		{FormatTOML, emacsTOML},
		{FormatYAML, emacsYAML},
	} {
		t.Run(string(tt.format), func(t *testing.T) {
			got := decode(t, tt.src, tt.format)
			if len(got) != len(want) {
				t.Fatalf("decoded %d packages, want %d", len(got), len(want))
			}
			for i := range want {
				if !got[i].Equal(want[i]) {
					t.Errorf("package %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestDecodeFields(t *testing.T) {
	pkgs := decode(t, emacsJSON, FormatJSON)
	emacs, lisp, core := pkgs[0], pkgs[1], pkgs[2]

	if emacs.Kind != deps.KindRPM {
		t.Errorf("emacs kind = %q", emacs.Kind)
	}
	if emacs.URL.Host != "mirror.example.com" {
		t.Errorf("emacs url = %v", emacs.URL)
	}
	if !version.Equal(lisp.Version, version.MustParse("29.1.0")) {
		t.Errorf("emacs-lisp version = %v", lisp.Version)
	}
	if !core.Version.IsVersionless() || core.URL == nil || core.URL.String() != "" {
		t.Errorf("emacs-core defaults = %v, %v", core.Version, core.URL)
	}

	// Dependencies link to the same package pointers.
	if emacs.Dependencies[1] != core || lisp.Dependencies[0] != core {
		t.Error("dependencies should link to the decoded records")
	}
}

func TestDecodeNested(t *testing.T) {
	src := `[{"name": "app", "dependencies": [
		{"name": "lib", "dependencies": ["log"]},
		"log"
	]}]`
	pkgs := decode(t, src, FormatJSON)

	if got := names(pkgs); !slices.Equal(got, []string{"app", "lib", "log"}) {
		t.Fatalf("names = %v, want [app lib log]", got)
	}
	app, lib, logPkg := pkgs[0], pkgs[1], pkgs[2]
	if app.Dependencies[0] != lib || app.Dependencies[1] != logPkg || lib.Dependencies[0] != logPkg {
		t.Error("nested and unknown dependencies should be shared")
	}
}

func TestDecodeCycle(t *testing.T) {
	src := `[{"name": "a", "dependencies": ["b"]}, {"name": "b", "dependencies": ["a"]}]`
	pkgs := decode(t, src, FormatJSON)
	a, b := pkgs[0], pkgs[1]
	if a.Dependencies[0] != b || b.Dependencies[0] != a {
		t.Error("cyclic records should link to each other")
	}
}

func TestDecodeAbsent(t *testing.T) {
	src := `[{"name": "broken", "version": null, "url": null}]`

	_, err := Decode(strings.NewReader(src), FormatJSON, deps.Strict())
	if !fsmerrors.Is(err, fsmerrors.ErrCodeInvalidPackage) {
		t.Fatalf("strict error = %v, want INVALID_PACKAGE", err)
	}

	var warned []string
	pkgs, err := Decode(strings.NewReader(src), FormatJSON, deps.Permissive(func(msg string, args ...any) {
		warned = append(warned, msg)
	}))
	if err != nil {
		t.Fatalf("permissive error: %v", err)
	}
	if len(warned) != 2 {
		t.Errorf("warnings = %v, want 2", warned)
	}
	if !pkgs[0].Version.IsAbsent() || pkgs[0].URL != nil {
		t.Errorf("absent fields = %v, %v", pkgs[0].Version, pkgs[0].URL)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		format Format
	}{
		{"syntax", `[{"name":`, FormatJSON},
		{"scalar root", `42`, FormatJSON},
		{"packages not list", `{"packages": 1}`, FormatJSON},
		{"record not object", `["emacs"]`, FormatJSON},
		{"unknown key", `[{"name": "a", "license": "MIT"}]`, FormatJSON},
		{"bad version", `[{"name": "a", "version": "one"}]`, FormatJSON},
		{"bad version table", `[{"name": "a", "version": {"major": -1}}]`, FormatJSON},
		{"bad kind", `[{"name": "a", "kind": "snap"}]`, FormatJSON},
		{"duplicate", `[{"name": "a"}, {"name": "a"}]`, FormatJSON},
		{"unquoted yaml version", "- name: a\n  version: 1.10\n", FormatYAML},
		{"unquoted toml version", "[[packages]]\nname = \"a\"\nversion = 2.5\n", FormatTOML},
		{"fractional json version", `[{"name": "a", "version": 1.5}]`, FormatJSON},
		{"toml syntax", `[[packages]`, FormatTOML},
		{"yaml syntax", "- name: [", FormatYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src), tt.format, deps.Strict())
			if !fsmerrors.Is(err, fsmerrors.ErrCodeInvalidManifest) {
				t.Errorf("Decode error = %v, want INVALID_MANIFEST", err)
			}
		})
	}
}

func TestDecodeWholeNumberVersion(t *testing.T) {
	pkgs := decode(t, "- name: a\n  version: 2\n", FormatYAML)
	if got := pkgs[0].Version.String(); got != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", got)
	}
}

func TestDecodeListing(t *testing.T) {
	src := `[
  {"name": "emacs", "dependencies": ["emacs-core", {"name": "emacs-gtk"}]}
]`
	all := decode(t, src, FormatJSON)
	if want := []string{"emacs", "emacs-gtk", "emacs-core"}; !slices.Equal(names(all), want) {
		t.Errorf("Decode names = %v, want %v", names(all), want)
	}

	listed, err := DecodeListing(strings.NewReader(src), FormatJSON, deps.Strict())
	if err != nil {
		t.Fatalf("DecodeListing error: %v", err)
	}
	if want := []string{"emacs", "emacs-gtk"}; !slices.Equal(names(listed), want) {
		t.Errorf("DecodeListing names = %v, want %v", names(listed), want)
	}
	// The mentioned dependency is still linked.
	if ds := listed[0].Dependencies; len(ds) != 2 || ds[0].Name != "emacs-core" {
		t.Errorf("emacs dependencies = %v", ds)
	}

	if _, err := DecodeListing(strings.NewReader(`[{"name": "a", "x": 1}]`), FormatJSON, deps.Strict()); !fsmerrors.Is(err, fsmerrors.ErrCodeInvalidManifest) {
		t.Errorf("DecodeListing error = %v, want INVALID_MANIFEST", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	for _, format := range Formats {
		pkgs, err := Decode(strings.NewReader(""), format, deps.Strict())
		if format == FormatJSON {
			if err == nil {
				t.Error("empty JSON should fail")
			}
			continue
		}
		if err != nil || len(pkgs) != 0 {
			t.Errorf("Decode(empty %s) = %v, %v", format, pkgs, err)
		}
	}
}

func TestDecodeRequiresMode(t *testing.T) {
	_, err := Decode(strings.NewReader("[]"), FormatJSON, deps.Mode{})
	if !fsmerrors.Is(err, fsmerrors.ErrCodeInvalidInput) {
		t.Errorf("Decode with zero mode error = %v, want INVALID_INPUT", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	want := decode(t, emacsJSON, FormatJSON)

	for _, format := range Formats {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, want, format); err != nil {
				t.Fatalf("Encode error: %v", err)
			}
			got := decode(t, buf.String(), format)
			if len(got) != len(want) {
				t.Fatalf("round trip gave %d packages, want %d:\n%s", len(got), len(want), buf.String())
			}
			for i := range want {
				if !got[i].Equal(want[i]) {
					t.Errorf("package %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestEncodeAbsentAsNull(t *testing.T) {
	p, _ := deps.New(deps.Fields{
		Name:    "broken",
		Version: deps.Null[version.Version](),
		URL:     deps.Null[*url.URL](),
	}, deps.Permissive(nil))

	var buf bytes.Buffer
	if err := Encode(&buf, []*deps.Package{p}, FormatJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"version": null`) || !strings.Contains(buf.String(), `"url": null`) {
		t.Errorf("JSON should carry explicit nulls:\n%s", buf.String())
	}

	buf.Reset()
	if err := Encode(&buf, []*deps.Package{p}, FormatTOML); err != nil {
		t.Fatalf("TOML Encode error: %v", err)
	}
	if strings.Contains(buf.String(), "version") {
		t.Errorf("TOML should drop absent values:\n%s", buf.String())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	for name, src := range map[string]string{
		"repo.json": emacsJSON,
		"repo.toml": emacsTOML,
		"repo.yml":  emacsYAML,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
		pkgs, err := Load(path, deps.Strict())
		if err != nil {
			t.Errorf("Load(%s) error: %v", name, err)
			continue
		}
		if len(pkgs) != 4 {
			t.Errorf("Load(%s) = %d packages, want 4", name, len(pkgs))
		}
	}

	if _, err := Load(filepath.Join(dir, "missing.json"), deps.Strict()); !fsmerrors.Is(err, fsmerrors.ErrCodeNotFound) {
		t.Errorf("Load(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"repo.json", FormatJSON, false},
		{"dir/repo.TOML", FormatTOML, false},
		{"repo.yaml", FormatYAML, false},
		{"repo.yml", FormatYAML, false},
		{"repo.xml", "", true},
		{"repo", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := DetectFormat(tt.path)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("DetectFormat(%q) = %q, %v", tt.path, got, err)
			}
			if err != nil && !fsmerrors.Is(err, fsmerrors.ErrCodeInvalidFormat) {
				t.Errorf("error code = %q, want INVALID_FORMAT", fsmerrors.GetCode(err))
			}
		})
	}
}
