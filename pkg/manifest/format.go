package manifest

import (
	"path/filepath"
	"strings"

	fsmerrors "github.com/matzehuels/fsm/pkg/errors"
)

// Format is a manifest serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSON, FormatTOML, FormatYAML}

// ParseFormat converts a format name ("json", "toml", "yaml" or "yml").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fsmerrors.New(fsmerrors.ErrCodeInvalidFormat, "unknown manifest format %q (valid: json, toml, yaml)", s)
}

// DetectFormat picks the format from a file extension.
func DetectFormat(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fsmerrors.New(fsmerrors.ErrCodeInvalidFormat, "cannot detect manifest format of %q: no extension", path)
	}
	return ParseFormat(ext)
}
