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

package resolve

import "fmt"

// SpecifierKind discriminates the VersionSpecifier sum type.
type SpecifierKind uint8

const (
	// KindAny matches everything except a pre-release semantic version.
	KindAny SpecifierKind = iota
	// KindEmpty matches nothing; the zero element of intersection.
	KindEmpty
	// KindExactly matches one specific semantic version, build metadata included.
	KindExactly
	// KindAtLeast matches any semantic version greater than or equal to Version.
	KindAtLeast
	// KindCompatibleWith matches AtLeast plus SemVer "caret"/"~>" major (or, for 0.x, minor) pinning.
	KindCompatibleWith
	// KindGitReference matches only the exact commit-ish named by Ref.
	KindGitReference
)

// VersionSpecifier is a predicate selecting a subset of PinnedVersions
//. It is a closed sum type; construct one with Any,
// Empty, Exactly, AtLeast, CompatibleWith or GitReference.
type VersionSpecifier struct {
	Kind    SpecifierKind
	Version SemanticVersion // meaningful for Exactly, AtLeast, CompatibleWith
	Ref     string          // meaningful for GitReference
}

// Any returns the specifier that matches any non-pre-release version
// (and any branch-like pin).
func Any() VersionSpecifier { return VersionSpecifier{Kind: KindAny} }

// Empty returns the specifier that matches nothing.
func Empty() VersionSpecifier { return VersionSpecifier{Kind: KindEmpty} }

// Exactly returns the specifier that matches only v, build metadata included.
func Exactly(v SemanticVersion) VersionSpecifier {
	return VersionSpecifier{Kind: KindExactly, Version: v}
}

// AtLeast returns the specifier that matches any version >= v.
func AtLeast(v SemanticVersion) VersionSpecifier {
	return VersionSpecifier{Kind: KindAtLeast, Version: v}
}

// CompatibleWith returns the "~>" specifier: AtLeast(v) further
// constrained to not cross the next major version boundary (or, when
// v.Major == 0, the next minor version boundary).
func CompatibleWith(v SemanticVersion) VersionSpecifier {
	return VersionSpecifier{Kind: KindCompatibleWith, Version: v}
}

// GitReference returns the specifier that matches only the exact
// commit-ish ref, byte for byte.
func GitReference(ref string) VersionSpecifier {
	return VersionSpecifier{Kind: KindGitReference, Ref: ref}
}

func (s VersionSpecifier) String() string {
	switch s.Kind {
	case KindAny:
		return ""
	case KindEmpty:
		return "[]"
	case KindExactly:
		return "== " + s.Version.String()
	case KindAtLeast:
		return ">= " + s.Version.String()
	case KindCompatibleWith:
		return "~> " + s.Version.String()
	case KindGitReference:
		return fmt.Sprintf("%q", s.Ref)
	default:
		return "?"
	}
}

// IsSatisfiedBy reports whether p is a member of the set s describes
//.
func (s VersionSpecifier) IsSatisfiedBy(p *PinnedVersion) bool {
	switch s.Kind {
	case KindEmpty:
		return false
	case KindGitReference:
		return p.Commitish == s.Ref
	case KindAny:
		sv, ok := p.SemanticVersion()
		if !ok {
			return true // branch-like pins satisfy Any.
		}
		return !sv.IsPreRelease()
	case KindExactly:
		sv, ok := p.SemanticVersion()
		if !ok {
			return false
		}
		return sv.Equal(s.Version)
	case KindAtLeast:
		sv, ok := p.SemanticVersion()
		if !ok {
			return true // branch pin trumps.
		}
		return atLeastSatisfies(sv, s.Version)
	case KindCompatibleWith:
		sv, ok := p.SemanticVersion()
		if !ok {
			return true // branch pin trumps.
		}
		return compatibleSatisfies(sv, s.Version)
	default:
		return false
	}
}

// atLeastSatisfies reports whether v qualifies as ">= req", with a
// pre-release exception: a pre-release v only qualifies against a req
// that is itself a pre-release of the same numeric triple.
func atLeastSatisfies(v, req SemanticVersion) bool {
	if v.IsPreRelease() {
		if !req.IsPreRelease() || !v.HasSameNumericComponents(req) {
			return false
		}
	}
	return v.Compare(req) >= 0
}

// compatibleSatisfies reports whether v qualifies as "~> req": atLeast,
// plus the major (or, for a 0.x req, major and minor) must match.
func compatibleSatisfies(v, req SemanticVersion) bool {
	if !atLeastSatisfies(v, req) {
		return false
	}
	if req.Major > 0 {
		return v.Major == req.Major
	}
	return v.Major == req.Major && v.Minor == req.Minor
}

// Intersect computes s ∩ o, a total binary operation over every pair of
// specifier kinds. Intersection is commutative and associative modulo
// Empty short-circuit, with Any as the identity and Empty as the
// absorbing element.
func (s VersionSpecifier) Intersect(o VersionSpecifier) VersionSpecifier {
	switch {
	case s.Kind == KindEmpty || o.Kind == KindEmpty:
		return Empty()

	case s.Kind == KindGitReference && o.Kind == KindGitReference:
		if s.Ref == o.Ref {
			return s
		}
		return Empty()
	case s.Kind == KindGitReference:
		return s
	case o.Kind == KindGitReference:
		return o

	case s.Kind == KindAny && o.Kind == KindAny:
		return Any()
	case s.Kind == KindAny:
		return discardBuildForIntersection(o)
	case o.Kind == KindAny:
		return discardBuildForIntersection(s)

	case s.Kind == KindExactly && o.Kind == KindExactly:
		if s.Version.Equal(o.Version) {
			return s
		}
		return Empty()
	case s.Kind == KindExactly && o.Kind == KindAtLeast:
		return intersectExactlyAtLeast(s, o)
	case s.Kind == KindAtLeast && o.Kind == KindExactly:
		return intersectExactlyAtLeast(o, s)
	case s.Kind == KindExactly && o.Kind == KindCompatibleWith:
		return intersectExactlyCompatible(s, o)
	case s.Kind == KindCompatibleWith && o.Kind == KindExactly:
		return intersectExactlyCompatible(o, s)

	case s.Kind == KindAtLeast && o.Kind == KindAtLeast:
		l := s.Version.DiscardingBuildMetadata()
		r := o.Version.DiscardingBuildMetadata()
		return AtLeast(maxSemanticVersion(l, r))

	case s.Kind == KindAtLeast && o.Kind == KindCompatibleWith:
		return intersectAtLeastCompatible(s, o)
	case s.Kind == KindCompatibleWith && o.Kind == KindAtLeast:
		return intersectAtLeastCompatible(o, s)

	case s.Kind == KindCompatibleWith && o.Kind == KindCompatibleWith:
		return intersectCompatibleCompatible(s, o)
	}
	return Empty()
}

// discardBuildForIntersection implements the Any row of the
// intersection table: AtLeast and CompatibleWith have their build
// metadata discarded; Exactly and GitReference pass through unchanged.
func discardBuildForIntersection(s VersionSpecifier) VersionSpecifier {
	switch s.Kind {
	case KindAtLeast:
		return AtLeast(s.Version.DiscardingBuildMetadata())
	case KindCompatibleWith:
		return CompatibleWith(s.Version.DiscardingBuildMetadata())
	default:
		return s
	}
}

// intersectExactlyAtLeast implements "Exactly(l) ∩ AtLeast(r)": r ≤ l →
// Exactly(l); else Empty.
func intersectExactlyAtLeast(ex, al VersionSpecifier) VersionSpecifier {
	if al.Version.Compare(ex.Version) <= 0 {
		return Exactly(ex.Version)
	}
	return Empty()
}

// intersectExactlyCompatible implements "Exactly(l) ∩ CompatibleWith(r)":
// major match and l ≥ r → Exactly(l); else Empty.
func intersectExactlyCompatible(ex, cw VersionSpecifier) VersionSpecifier {
	if compatibleSatisfies(ex.Version, cw.Version) {
		return Exactly(ex.Version)
	}
	return Empty()
}

// intersectAtLeastCompatible implements "AtLeast(l) ∩ CompatibleWith(r)".
func intersectAtLeastCompatible(al, cw VersionSpecifier) VersionSpecifier {
	l, r := al.Version, cw.Version
	switch {
	case l.Major > r.Major:
		return Empty()
	case l.Major < r.Major:
		return CompatibleWith(r)
	default:
		return CompatibleWith(maxSemanticVersion(l, r))
	}
}

// intersectCompatibleCompatible implements "CompatibleWith(l) ∩ CompatibleWith(r)".
func intersectCompatibleCompatible(a, b VersionSpecifier) VersionSpecifier {
	l, r := a.Version, b.Version
	if l.Major != r.Major {
		return Empty()
	}
	if l.Major == 0 && l.Minor != r.Minor {
		return Empty()
	}
	return CompatibleWith(maxSemanticVersion(l, r))
}

func maxSemanticVersion(a, b SemanticVersion) SemanticVersion {
	if b.Compare(a) > 0 {
		return b
	}
	return a
}

// IntersectAll reduces specifiers with Intersect, using Any as the
// identity for an empty input.
func IntersectAll(specifiers ...VersionSpecifier) VersionSpecifier {
	result := Any()
	for _, s := range specifiers {
		result = result.Intersect(s)
	}
	return result
}
