// Copyright 2023 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package resolve performs dependency resolution for precompiled binary and
source-controlled frameworks.

The core model is a SemanticVersion (this file), a VersionSpecifier
(specifier.go) constraint algebra over it, and a Resolver (resolver.go) that
searches a combinatorial assignment space with the help of a caller-supplied
Retriever (retriever.go). CompatibilityInfo (compat.go) builds post-resolution
diagnostics, and the crawler subpackage offers a read-only explorer of the
same dependency universe.
*/
package resolve

import (
	"fmt"
	"strconv"
	"strings"
)

// SemanticVersion is a parsed MAJOR.MINOR.PATCH[-prerelease][+build]
// version, following semver.org 2.0.0 with one relaxation: an optional
// leading 'v' is accepted and discarded.
//
// Pre-release and build metadata are stored as their dot-separated
// identifier lists rather than as raw strings, so precedence comparisons
// never need to re-split them.
type SemanticVersion struct {
	Major, Minor, Patch uint64

	// Prerelease holds the dot-separated pre-release identifiers, in
	// order, or nil if there is none.
	Prerelease []string

	// Build holds the dot-separated build metadata identifiers, in
	// order, or nil if there is none. Build metadata is retained for
	// equality and display but never affects ordering.
	Build []string
}

// ParseSemanticVersion parses s as a SemanticVersion. It accepts an
// optional leading 'v', requires exactly three dot-separated numeric
// components, and validates pre-release and build identifiers per
// semver.org §9 and §10: numeric pre-release identifiers carry no
// leading zeros, and every identifier is restricted to ASCII
// alphanumerics and hyphens. Fullwidth digits and any other non-ASCII
// input are rejected, since the scanner advances one byte at a time
// instead of decoding runes.
func ParseSemanticVersion(s string) (SemanticVersion, error) {
	p := &semverParser{s: s}
	v, err := p.parse()
	if err != nil {
		return SemanticVersion{}, fmt.Errorf("parse semantic version %q: %w", s, err)
	}
	return v, nil
}

type semverParser struct {
	s   string
	pos int
}

func (p *semverParser) parse() (SemanticVersion, error) {
	var v SemanticVersion

	if p.peek() == 'v' {
		p.pos++
	}

	var err error
	if v.Major, err = p.number("major"); err != nil {
		return SemanticVersion{}, err
	}
	if err := p.expect('.'); err != nil {
		return SemanticVersion{}, err
	}
	if v.Minor, err = p.number("minor"); err != nil {
		return SemanticVersion{}, err
	}
	if err := p.expect('.'); err != nil {
		return SemanticVersion{}, err
	}
	if v.Patch, err = p.number("patch"); err != nil {
		return SemanticVersion{}, err
	}

	if p.peek() == '-' {
		p.pos++
		ids, err := p.identifiers(true)
		if err != nil {
			return SemanticVersion{}, err
		}
		v.Prerelease = ids
	}
	if p.peek() == '+' {
		p.pos++
		ids, err := p.identifiers(false)
		if err != nil {
			return SemanticVersion{}, err
		}
		v.Build = ids
	}

	if p.pos != len(p.s) {
		return SemanticVersion{}, fmt.Errorf("unexpected trailing input %q", p.s[p.pos:])
	}
	return v, nil
}

// peek returns the byte at the current position, or 0 at end of input.
// It intentionally works on bytes, not runes: any byte belonging to a
// multi-byte UTF-8 sequence (including fullwidth digits) has its high
// bit set and is therefore never mistaken for an ASCII digit or
// separator below.
func (p *semverParser) peek() byte {
	if p.pos >= len(p.s) {
		return 0
	}
	return p.s[p.pos]
}

func (p *semverParser) expect(b byte) error {
	if p.peek() != b {
		return fmt.Errorf("expected %q at position %d", b, p.pos)
	}
	p.pos++
	return nil
}

// number scans an unsigned decimal integer with no leading zero (unless
// the value is exactly "0").
func (p *semverParser) number(label string) (uint64, error) {
	start := p.pos
	for isASCIIDigit(p.peek()) {
		p.pos++
	}
	digits := p.s[start:p.pos]
	if digits == "" {
		return 0, fmt.Errorf("missing %s version number", label)
	}
	if len(digits) > 1 && digits[0] == '0' {
		return 0, fmt.Errorf("%s version number %q has a leading zero", label, digits)
	}
	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s version number %q: %w", label, digits, err)
	}
	return n, nil
}

// identifiers scans a dot-separated list of alphanumeric-or-hyphen
// identifiers. When numeric is true (pre-release identifiers), a
// purely-numeric identifier may not have a leading zero unless it is
// exactly "0"; build identifiers have no such restriction.
func (p *semverParser) identifiers(numeric bool) ([]string, error) {
	var ids []string
	for {
		start := p.pos
		for isASCIIAlphanumericOrHyphen(p.peek()) {
			p.pos++
		}
		id := p.s[start:p.pos]
		if id == "" {
			return nil, fmt.Errorf("empty identifier at position %d", start)
		}
		if numeric && isAllDigits(id) && len(id) > 1 && id[0] == '0' {
			return nil, fmt.Errorf("numeric pre-release identifier %q has a leading zero", id)
		}
		ids = append(ids, id)
		if p.peek() != '.' {
			break
		}
		p.pos++
	}
	return ids, nil
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }

func isASCIIAlphanumericOrHyphen(b byte) bool {
	return isASCIIDigit(b) || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '-'
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isASCIIDigit(s[i]) {
			return false
		}
	}
	return true
}

// String renders the version in canonical form (no leading 'v').
func (v SemanticVersion) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if len(v.Prerelease) > 0 {
		b.WriteByte('-')
		b.WriteString(strings.Join(v.Prerelease, "."))
	}
	if len(v.Build) > 0 {
		b.WriteByte('+')
		b.WriteString(strings.Join(v.Build, "."))
	}
	return b.String()
}

// IsPreRelease reports whether v carries pre-release identifiers.
func (v SemanticVersion) IsPreRelease() bool { return len(v.Prerelease) > 0 }

// DiscardingBuildMetadata returns v with its Build identifiers cleared.
func (v SemanticVersion) DiscardingBuildMetadata() SemanticVersion {
	v.Build = nil
	return v
}

// HasSameNumericComponents reports whether v and w share the same
// Major, Minor and Patch, ignoring pre-release and build metadata.
func (v SemanticVersion) HasSameNumericComponents(w SemanticVersion) bool {
	return v.Major == w.Major && v.Minor == w.Minor && v.Patch == w.Patch
}

// Equal reports structural equality over all five components,
// including build metadata.
func (v SemanticVersion) Equal(w SemanticVersion) bool {
	return v.Major == w.Major && v.Minor == w.Minor && v.Patch == w.Patch &&
		equalIdentifiers(v.Prerelease, w.Prerelease) &&
		equalIdentifiers(v.Build, w.Build)
}

func equalIdentifiers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or 1 as v is less than, equal to, or greater
// than w, per semver.org §11: numeric triple first, then a version
// with pre-release identifiers sorts before the same numeric triple
// without them, then pre-release identifiers compare pairwise (numeric
// identifiers numerically, compared as lower precedence than
// alphanumeric ones; a longer identifier list wins when the shorter is
// a prefix of it). Build metadata never participates.
func (v SemanticVersion) Compare(w SemanticVersion) int {
	if c := compareUint64(v.Major, w.Major); c != 0 {
		return c
	}
	if c := compareUint64(v.Minor, w.Minor); c != 0 {
		return c
	}
	if c := compareUint64(v.Patch, w.Patch); c != 0 {
		return c
	}

	vPre, wPre := v.IsPreRelease(), w.IsPreRelease()
	if vPre != wPre {
		if vPre {
			return -1
		}
		return 1
	}
	if !vPre {
		return 0
	}

	n := len(v.Prerelease)
	if len(w.Prerelease) < n {
		n = len(w.Prerelease)
	}
	for i := 0; i < n; i++ {
		if c := comparePrereleaseIdentifier(v.Prerelease[i], w.Prerelease[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(v.Prerelease), len(w.Prerelease))
}

// Less reports whether v sorts strictly before w.
func (v SemanticVersion) Less(w SemanticVersion) bool { return v.Compare(w) < 0 }

func comparePrereleaseIdentifier(a, b string) int {
	aIsNum := a != "" && isAllDigits(a)
	bIsNum := b != "" && isAllDigits(b)
	switch {
	case aIsNum && bIsNum:
		an, _ := strconv.ParseUint(a, 10, 64)
		bn, _ := strconv.ParseUint(b, 10, 64)
		return compareUint64(an, bn)
	case aIsNum && !bIsNum:
		return -1 // numeric identifiers have lower precedence
	case !aIsNum && bIsNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func compareUint64(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
