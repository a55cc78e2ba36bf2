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

import "sort"

// ConcreteVersion is a PinnedVersion considered as a candidate in a
// ConcreteVersionSet. Ordering descends: newer semantic versions sort
// first, followed by branch-like pins in a stable, deterministic order
// (grounded on match.go's SortVersions descending convention).
type ConcreteVersion struct {
	*PinnedVersion
}

// Less reports whether c should sort before o within a ConcreteVersionSet.
func (c ConcreteVersion) Less(o ConcreteVersion) bool {
	cv, cok := c.SemanticVersion()
	ov, ook := o.SemanticVersion()
	if cok && ook {
		return cv.Compare(ov) > 0 // descending: newer first.
	}
	if cok != ook {
		return cok // semantic versions sort before branch-like pins.
	}
	return c.Commitish < o.Commitish
}

// ConcreteVersionSet is an ordered set (newest first) of concrete
// versions for one dependency, as fetched and progressively narrowed by
// ResolverContext.findAllVersions.
type ConcreteVersionSet struct {
	versions []ConcreteVersion
	isPinned bool
}

// NewConcreteVersionSet builds a set from the given versions, sorted and
// deduplicated by commit-ish.
func NewConcreteVersionSet(versions ...ConcreteVersion) *ConcreteVersionSet {
	s := &ConcreteVersionSet{}
	for _, v := range versions {
		s.Insert(v)
	}
	return s
}

// NewPinnedVersionSet builds a single-element set flagged as pinned: the
// result of resolving a non-updatable dependency to its prior pin.
func NewPinnedVersionSet(v ConcreteVersion) *ConcreteVersionSet {
	return &ConcreteVersionSet{versions: []ConcreteVersion{v}, isPinned: true}
}

// IsPinned reports whether the set was forcibly constrained to a single
// pinned version.
func (s *ConcreteVersionSet) IsPinned() bool { return s.isPinned }

// Len returns the number of candidates currently in the set.
func (s *ConcreteVersionSet) Len() int { return len(s.versions) }

// IsEmpty reports whether the set has no candidates.
func (s *ConcreteVersionSet) IsEmpty() bool { return len(s.versions) == 0 }

// Versions returns the candidates in descending (newest-first) order.
// The caller must not mutate the returned slice.
func (s *ConcreteVersionSet) Versions() []ConcreteVersion { return s.versions }

// Insert adds v to the set, maintaining descending order. Inserting a
// commit-ish that is already present is a no-op.
func (s *ConcreteVersionSet) Insert(v ConcreteVersion) {
	for _, e := range s.versions {
		if e.Commitish == v.Commitish {
			return
		}
	}
	s.versions = append(s.versions, v)
	sort.Slice(s.versions, func(i, j int) bool { return s.versions[i].Less(s.versions[j]) })
}

// RetainCompatible removes every candidate that does not satisfy spec.
// If the set IsPinned and its single candidate does not satisfy spec,
// the set becomes empty -- the hard-conflict signal: the caller sees an
// empty ConcreteVersionSet exactly as it would for any other exhausted
// candidate list, and the usual "no versions" conflict path takes over.
func (s *ConcreteVersionSet) RetainCompatible(spec VersionSpecifier) {
	kept := make([]ConcreteVersion, 0, len(s.versions))
	for _, v := range s.versions {
		if spec.IsSatisfiedBy(v.PinnedVersion) {
			kept = append(kept, v)
		}
	}
	s.versions = kept
}

// Copy returns a duplicate of s whose Versions slice can be mutated
// independently; the underlying ConcreteVersion values (and the
// PinnedVersion they point to) are shared, since PinnedVersion is
// immutable once constructed.
func (s *ConcreteVersionSet) Copy() *ConcreteVersionSet {
	cp := &ConcreteVersionSet{
		versions: make([]ConcreteVersion, len(s.versions)),
		isPinned: s.isPinned,
	}
	copy(cp.versions, s.versions)
	return cp
}
