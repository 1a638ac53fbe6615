package manifest

import (
	"encoding/json"
	"io"
	"maps"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/fsm/pkg/deps"
	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
)

// Encode writes pkgs as a listing in the object form. Dependencies are
// written by name. Default values are omitted; absent values are written
// as null except in TOML, which cannot express them.
func Encode(w io.Writer, pkgs []*deps.Package, format Format) error {
	records := make([]map[string]any, 0, len(pkgs))
	for _, p := range pkgs {
		records = append(records, encodeRecord(p, format != FormatTOML))
	}
	doc := map[string]any{"packages": records}

	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	default:
		return fsmerrors.New(fsmerrors.ErrCodeInvalidFormat, "unsupported format %q", format)
	}
	if err != nil {
		return fsmerrors.Wrap(fsmerrors.ErrCodeInternal, err, "encode %s manifest", format)
	}
	return nil
}

func encodeRecord(p *deps.Package, nulls bool) map[string]any {
	rec := map[string]any{"name": p.Name}
	switch v := p.Version; {
	case v.IsAbsent():
		rec["version"] = nil
	case !v.IsVersionless():
		rec["version"] = v.String()
	}
	switch {
	case p.URL == nil:
		rec["url"] = nil
	case p.URL.String() != "":
		rec["url"] = p.URL.String()
	}
	if k := p.Kind.Normalize(); k != deps.KindGeneric {
		rec["kind"] = string(k)
	}
	if names := p.DependencyNames(); len(names) > 0 {
		rec["dependencies"] = names
	}
	if !nulls {
		maps.DeleteFunc(rec, func(_ string, v any) bool { return v == nil })
	}
	return rec
}
