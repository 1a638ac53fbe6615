package deps

import (
	"fmt"
	"slices"
)

// Kind tags the packaging format of a Package. The set is closed; per-kind
// install behavior is supplied by install backends keyed on Kind.
type Kind string

const (
	KindGeneric Kind = "generic"
	KindRPM     Kind = "rpm"
	KindRPMSrc  Kind = "rpm-src"
	KindApt     Kind = "apt"
	KindAptSrc  Kind = "apt-src"
	KindPip     Kind = "pip"
	KindWheel   Kind = "wheel"
	KindZip     Kind = "zip"
	KindCrate   Kind = "crate"
	KindJS      Kind = "js"
	KindMJS     Kind = "mjs"
)

var kinds = []Kind{
	KindGeneric, KindRPM, KindRPMSrc, KindApt, KindAptSrc,
	KindPip, KindWheel, KindZip, KindCrate, KindJS, KindMJS,
}

// bundle file extensions, without the leading dot
var extensions = map[Kind]string{
	KindGeneric: "",
	KindRPM:     "rpm",
	KindRPMSrc:  "src.rpm",
	KindApt:     "deb",
	KindAptSrc:  "dsc",
	KindPip:     "tar.gz",
	KindWheel:   "whl",
	KindZip:     "zip",
	KindCrate:   "crate",
	KindJS:      "js",
	KindMJS:     "mjs",
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind { return slices.Clone(kinds) }

// ParseKind converts a string to a Kind. The empty string is KindGeneric.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindGeneric, nil
	}
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown package kind %q (valid: %v)", s, kinds)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds. The zero Kind is valid
// and treated as KindGeneric.
func (k Kind) Valid() bool {
	return k == "" || slices.Contains(kinds, k)
}

// Normalize maps the zero Kind to KindGeneric.
func (k Kind) Normalize() Kind {
	if k == "" {
		return KindGeneric
	}
	return k
}

// Extension returns the bundle file extension for k, without the leading dot.
// Generic and unknown kinds have none.
func (k Kind) Extension() string {
	return extensions[k.Normalize()]
}

// Filename returns the bundle file name for a package of this kind,
// e.g. "emacs-29.1.0.rpm".
func (k Kind) Filename(p *Package) string {
	base := p.Name
	if v := p.Version; !v.IsAbsent() && !v.IsVersionless() {
		base += "-" + v.String()
	}
	if ext := k.Extension(); ext != "" {
		return base + "." + ext
	}
	return base
}

func (k Kind) String() string { return string(k.Normalize()) }
