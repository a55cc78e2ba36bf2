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

import "sync"

// PinnedVersion is an immutable reference to one point in a dependency's
// history: a commit SHA, a tag, or any other commit-ish string a
// Retriever is willing to hand back. Equality is by Commitish alone.
//
// Its semantic form is derived lazily and cached, following
// rgst-io-stencil's resolver.Version: most pins are only ever compared
// for equality or used as a GitReference target and never need parsing.
type PinnedVersion struct {
	Commitish string

	parseOnce sync.Once
	semantic  SemanticVersion
	isSemver  bool
}

// NewPinnedVersion constructs a PinnedVersion for the given commit-ish.
func NewPinnedVersion(commitish string) *PinnedVersion {
	return &PinnedVersion{Commitish: commitish}
}

// Equal reports whether p and o refer to the same commit-ish.
func (p *PinnedVersion) Equal(o *PinnedVersion) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Commitish == o.Commitish
}

// SemanticVersion parses Commitish as a SemanticVersion (accepting an
// optional leading 'v'), caching the result. The second return value is
// false when Commitish does not parse as a semantic version -- a
// "branch-like" pin.
func (p *PinnedVersion) SemanticVersion() (SemanticVersion, bool) {
	p.parseOnce.Do(func() {
		if v, err := ParseSemanticVersion(p.Commitish); err == nil {
			p.semantic = v
			p.isSemver = true
		}
	})
	return p.semantic, p.isSemver
}

// IsBranchLike reports whether Commitish fails to parse as a semantic
// version.
func (p *PinnedVersion) IsBranchLike() bool {
	_, ok := p.SemanticVersion()
	return !ok
}

func (p *PinnedVersion) String() string { return p.Commitish }
