// Package deps defines the package model that dependency resolution
// operates on.
//
// # Packages
//
// A [Package] is a named unit of installation with a version, a source URL,
// an ordered list of direct dependencies and a [Kind] tag:
//
//	core, _ := deps.New(deps.Fields{Name: "emacs-core"}, deps.Strict())
//	emacs, _ := deps.New(deps.Fields{
//	    Name:         "emacs",
//	    Version:      deps.Of(version.MustParse("29.1.0")),
//	    Dependencies: []*deps.Package{core},
//	    Kind:         deps.KindRPM,
//	}, deps.Strict())
//
// # Absent versus default
//
// Version and URL distinguish between "not supplied" and "explicitly null".
// An unset [Field] takes the default ([version.Versionless] and an empty URL
// meaning "resolve later"). [Null] marks the field absent, which is a
// validation problem. [Of] supplies a value.
//
// # Validation
//
// Every construction names its validation [Mode]. [Strict] turns problems
// into an INVALID_PACKAGE error and aborts construction. [Permissive]
// reports each problem through a warn callback and keeps the package. The
// zero Mode is rejected so a caller never gets one behavior while expecting
// the other.
//
// # Identity
//
// Resolution identifies packages by name: [Key] is the key function passed
// to graph traversal, and repositories index by the same name.
package deps
