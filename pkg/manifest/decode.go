// Package manifest reads and writes package listings.
//
// A listing is either a list of package records or an object with a
// "packages" list. TOML documents always use the object form:
//
//	[[packages]]
//	name = "emacs"
//	version = "29.1.0"
//	kind = "rpm"
//	dependencies = ["emacs-lisp", "emacs-core"]
//
// A record's version is a semver string, a {major, minor, patch,
// prerelease, build} table, or null for absent; a missing key means
// versionless. A record's url is a string or null; a missing key means
// "resolve later". Dependencies are names or nested records. Names link to
// the record of that name anywhere in the document; names with no record
// become name-only packages appended after the document's own records.
// [DecodeListing] leaves those out.
//
// TOML has no null, so absent values cannot be written in TOML listings.
package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"math"
	"net/url"
	"os"
	"slices"
	"strconv"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
	"github.com/matzehuels/fsm/pkg/version"
)

// Load reads the listing at path, detecting the format from its extension.
func Load(path string, mode deps.Mode) ([]*deps.Package, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fsmerrors.Wrap(fsmerrors.ErrCodeNotFound, err, "open manifest")
	}
	defer f.Close()
	return Decode(f, format, mode)
}

// Decode reads a listing from r. Packages are built under mode; in strict
// mode the first invalid record fails the decode with INVALID_PACKAGE.
// Structural problems are INVALID_MANIFEST errors.
func Decode(r io.Reader, format Format, mode deps.Mode) ([]*deps.Package, error) {
	pkgs, _, err := decode(r, format, mode)
	return pkgs, err
}

// DecodeListing is Decode for repository listings: it returns only the
// packages the document declares as records. Dependency names without a
// record are still linked, but are not part of the result, so a listing
// never offers a package it merely mentions.
func DecodeListing(r io.Reader, format Format, mode deps.Mode) ([]*deps.Package, error) {
	pkgs, declared, err := decode(r, format, mode)
	if err != nil {
		return nil, err
	}
	return pkgs[:declared], nil
}

func decode(r io.Reader, format Format, mode deps.Mode) ([]*deps.Package, int, error) {
	if mode.IsZero() {
		return nil, 0, fsmerrors.New(fsmerrors.ErrCodeInvalidInput, "validation mode not selected")
	}
	tree, err := parseTree(r, format)
	if err != nil {
		return nil, 0, fsmerrors.Wrap(fsmerrors.ErrCodeInvalidManifest, err, "decode %s manifest", format)
	}
	items, err := packageList(tree)
	if err != nil {
		return nil, 0, fsmerrors.Wrap(fsmerrors.ErrCodeInvalidManifest, err, "decode %s manifest", format)
	}

	b := &builder{index: make(map[string]*record)}
	for i, item := range items {
		if _, err := b.record(item, fmt.Sprintf("packages[%d]", i)); err != nil {
			return nil, 0, fsmerrors.Wrap(fsmerrors.ErrCodeInvalidManifest, err, "decode %s manifest", format)
		}
	}
	pkgs, err := b.build(mode)
	if err != nil {
		return nil, 0, err
	}
	return pkgs, len(b.records), nil
}

func parseTree(r io.Reader, format Format) (any, error) {
	var tree any
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&tree); err != nil {
			return nil, err
		}
	case FormatTOML:
		var doc map[string]any
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, err
		}
		tree = doc
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&tree); err != nil && err != io.EOF {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return tree, nil
}

func packageList(tree any) ([]any, error) {
	if tree == nil {
		return nil, nil
	}
	if list, ok := asList(tree); ok {
		return list, nil
	}
	if obj, ok := tree.(map[string]any); ok {
		raw, found := obj["packages"]
		if !found {
			return nil, nil
		}
		if list, ok := asList(raw); ok {
			return list, nil
		}
		return nil, fmt.Errorf("packages: expected a list, got %T", raw)
	}
	return nil, fmt.Errorf("expected a list of packages or an object with \"packages\", got %T", tree)
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	}
	return nil, false
}

// record is a decoded package before linking.
type record struct {
	fields deps.Fields
	refs   []ref
}

// ref is a dependency: a name to link, or a nested record.
type ref struct {
	name   string
	nested *record
}

var recordKeys = []string{"name", "version", "url", "kind", "dependencies"}

type builder struct {
	records []*record
	index   map[string]*record
}

func (b *builder) record(item any, path string) (*record, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: expected an object, got %T", path, item)
	}
	for _, key := range slices.Sorted(maps.Keys(obj)) {
		if !slices.Contains(recordKeys, key) {
			return nil, fmt.Errorf("%s: unknown key %q", path, key)
		}
	}

	rec := &record{}
	var err error
	if raw, ok := obj["name"]; ok {
		if rec.fields.Name, err = asString(raw); err != nil {
			return nil, fmt.Errorf("%s.name: %w", path, err)
		}
	}
	if raw, ok := obj["version"]; ok {
		if rec.fields.Version, err = versionField(raw); err != nil {
			return nil, fmt.Errorf("%s.version: %w", path, err)
		}
	}
	if raw, ok := obj["url"]; ok {
		if rec.fields.URL, err = urlField(raw); err != nil {
			return nil, fmt.Errorf("%s.url: %w", path, err)
		}
	}
	if raw, ok := obj["kind"]; ok {
		s, err := asString(raw)
		if err == nil {
			rec.fields.Kind, err = deps.ParseKind(s)
		}
		if err != nil {
			return nil, fmt.Errorf("%s.kind: %w", path, err)
		}
	}

	if name := rec.fields.Name; name != "" {
		if _, dup := b.index[name]; dup {
			return nil, fmt.Errorf("%s: duplicate package %q", path, name)
		}
		b.index[name] = rec
	}
	b.records = append(b.records, rec)

	if raw, ok := obj["dependencies"]; ok {
		if err := b.dependencies(rec, raw, path+".dependencies"); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (b *builder) dependencies(rec *record, raw any, path string) error {
	if raw == nil {
		return nil
	}
	list, ok := asList(raw)
	if !ok {
		return fmt.Errorf("%s: expected a list, got %T", path, raw)
	}
	for i, item := range list {
		if name, ok := item.(string); ok {
			rec.refs = append(rec.refs, ref{name: name})
			continue
		}
		nested, err := b.record(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return err
		}
		rec.refs = append(rec.refs, ref{nested: nested})
	}
	return nil
}

// build constructs every package, then links dependencies so that cycles
// between records resolve to the same pointers.
func (b *builder) build(mode deps.Mode) ([]*deps.Package, error) {
	built := make(map[*record]*deps.Package, len(b.records))
	byName := make(map[string]*deps.Package, len(b.records))
	out := make([]*deps.Package, 0, len(b.records))
	for _, rec := range b.records {
		p, err := deps.New(rec.fields, mode)
		if err != nil {
			return nil, err
		}
		built[rec] = p
		if p.Name != "" {
			byName[p.Name] = p
		}
		out = append(out, p)
	}

	for _, rec := range b.records {
		p := built[rec]
		for _, r := range rec.refs {
			if r.nested != nil {
				p.Dependencies = append(p.Dependencies, built[r.nested])
				continue
			}
			dep, ok := byName[r.name]
			if !ok {
				var err error
				if dep, err = deps.New(deps.Fields{Name: r.name}, mode); err != nil {
					return nil, err
				}
				byName[r.name] = dep
				out = append(out, dep)
			}
			p.Dependencies = append(p.Dependencies, dep)
		}
	}
	return out, nil
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

func versionField(raw any) (deps.Field[version.Version], error) {
	switch v := raw.(type) {
	case nil:
		return deps.Null[version.Version](), nil
	case map[string]any:
		parsed, err := versionTable(v)
		if err != nil {
			return deps.Field[version.Version]{}, err
		}
		return deps.Of(parsed), nil
	default:
		s, err := scalarString(v)
		if err != nil {
			return deps.Field[version.Version]{}, err
		}
		if s == "versionless" {
			return deps.Of(version.Versionless), nil
		}
		parsed, err := version.Parse(s)
		if err != nil {
			return deps.Field[version.Version]{}, err
		}
		return deps.Of(parsed), nil
	}
}

func versionTable(m map[string]any) (version.Version, error) {
	var parts [3]uint64
	for i, key := range []string{"major", "minor", "patch"} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		n, err := asUint(raw)
		if err != nil {
			return version.Version{}, fmt.Errorf("%s: %w", key, err)
		}
		parts[i] = n
	}
	var pre, build string
	if raw, ok := m["prerelease"]; ok {
		s, err := asString(raw)
		if err != nil {
			return version.Version{}, fmt.Errorf("prerelease: %w", err)
		}
		pre = s
	}
	if raw, ok := m["build"]; ok {
		s, err := asString(raw)
		if err != nil {
			return version.Version{}, fmt.Errorf("build: %w", err)
		}
		build = s
	}
	return version.New(parts[0], parts[1], parts[2], pre, build)
}

// scalarString accepts strings and the whole numbers YAML, TOML and JSON
// produce for unquoted versions like 2. A fractional number is rejected:
// 1.10 has already been read as 1.1 and cannot be recovered.
func scalarString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case float64:
		if s != math.Trunc(s) {
			return "", fmt.Errorf("unquoted version %v is read as a number; quote it", s)
		}
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("expected a string, table or null, got %T", v)
}

func asUint(v any) (uint64, error) {
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	case uint64:
		return n, nil
	case float64:
		if n >= 0 && n == math.Trunc(n) && n <= math.MaxUint32 {
			return uint64(n), nil
		}
	default:
		return 0, fmt.Errorf("expected a non-negative integer, got %T", v)
	}
	return 0, fmt.Errorf("expected a non-negative integer, got %v", v)
}

func urlField(raw any) (deps.Field[*url.URL], error) {
	if raw == nil {
		return deps.Null[*url.URL](), nil
	}
	s, err := asString(raw)
	if err != nil {
		return deps.Field[*url.URL]{}, err
	}
	u, err := url.Parse(s)
	if err != nil {
		return deps.Field[*url.URL]{}, err
	}
	return deps.Of(u), nil
}
