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

import (
	"context"
	"sort"

	"go.uber.org/multierr"
)

// Requirement is one entry of the requirements multi-map: Definer
// required the keyed dependency at Specifier. DefinerIsRoot is set (and
// Definer left as the zero Dependency) when the requirement came from
// the root cartfile.
type Requirement struct {
	Definer       Dependency
	DefinerIsRoot bool
	Specifier     VersionSpecifier
}

// CompatibilityInfo diagnoses a single resolved dependency against the
// full set of requirements that named it: which
// requirements the chosen pin satisfies, and which it does not.
type CompatibilityInfo struct {
	Dependency   Dependency
	Pin          *PinnedVersion
	Compatible   []Requirement
	Incompatible []Requirement
}

// BuildCompatibilityInfo inverts requirements (the observed requirement
// multi-map keyed by the dependency that introduced each edge) against
// the final assignment, and returns one CompatibilityInfo per resolved
// dependency whose pin fails at least one of the requirements that
// named it.
//
// requirements maps a required Dependency to every Requirement that
// named it; BuildCompatibilityInfo does not itself build this map (see
// InvertRequirements) so that callers who already have it from the
// search (via node.contributions) can pass it through directly.
func BuildCompatibilityInfo(ctx context.Context, retriever Retriever, assignment map[Dependency]*PinnedVersion, requirements map[Dependency][]Requirement) ([]CompatibilityInfo, error) {
	var infos []CompatibilityInfo

	deps := make([]Dependency, 0, len(assignment))
	for d := range assignment {
		deps = append(deps, d)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Compare(deps[j]) < 0 })

	for _, d := range deps {
		pin := assignment[d]
		reqs := requirements[d]
		if len(reqs) == 0 {
			continue
		}
		sv, ok := pin.SemanticVersion()
		if !ok {
			continue
		}

		info := CompatibilityInfo{Dependency: d, Pin: pin}
		for _, req := range reqs {
			effective, err := effectiveSpecifier(ctx, retriever, d, req.Specifier)
			if err != nil {
				return nil, err
			}
			if effective.IsSatisfiedBy(pin) {
				info.Compatible = append(info.Compatible, req)
			} else {
				info.Incompatible = append(info.Incompatible, req)
			}
		}
		_ = sv
		if len(info.Incompatible) > 0 {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// effectiveSpecifier replaces a non-commit GitReference with the commit
// it currently resolves to. Every other specifier kind passes through unchanged.
func effectiveSpecifier(ctx context.Context, retriever Retriever, dep Dependency, s VersionSpecifier) (VersionSpecifier, error) {
	if s.Kind != KindGitReference {
		return s, nil
	}
	commit, err := retriever.ResolvedCommitHash(ctx, s.Ref, dep)
	if err != nil {
		return VersionSpecifier{}, err
	}
	return GitReference(commit), nil
}

// InvertRequirements builds the inverted requirements multi-map
// from the raw (definer, required,
// specifier) edges observed during a search. A duplicate (definer,
// required) edge is reported as a DuplicateDependenciesError rather
// than silently merged, since the core treats it as an invariant
// violation, not a resolvable conflict. Every duplicate found is
// reported, not just the first, by combining one error per location
// with multierr.
func InvertRequirements(edges []struct {
	Definer       Dependency
	DefinerIsRoot bool
	Required      Dependency
	Specifier     VersionSpecifier
}) (map[Dependency][]Requirement, error) {
	inv := make(map[Dependency][]Requirement)
	seen := make(map[DuplicateLocation]bool)
	var errs error

	for _, e := range edges {
		loc := DuplicateLocation{Defining: e.Definer, DefiningIsRoot: e.DefinerIsRoot, Required: e.Required}
		if seen[loc] {
			errs = multierr.Append(errs, &DuplicateDependenciesError{Locations: []DuplicateLocation{loc}})
			continue
		}
		seen[loc] = true
		inv[e.Required] = append(inv[e.Required], Requirement{
			Definer:       e.Definer,
			DefinerIsRoot: e.DefinerIsRoot,
			Specifier:     e.Specifier,
		})
	}

	if errs != nil {
		return nil, errs
	}
	return inv, nil
}
