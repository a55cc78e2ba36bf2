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
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/cartfile-dev/resolve/internal/lru"
)

// sortedListCacheSize bounds the problematic-dependency sorted-list
// cache: a pathological run with many distinct
// fan-out sets should not grow this cache without limit.
const sortedListCacheSize = 256

// depKey and versionKey give map-safe string identities for Dependency
// and PinnedVersion, since SemanticVersion (and therefore
// VersionSpecifier) embeds slices and cannot be a map key directly.
func depKey(d Dependency) string { return d.Description() }

func versionKey(v *PinnedVersion) string {
	if v == nil {
		return ""
	}
	return v.Commitish
}

type versionsCacheKey struct {
	dep       string
	specifier string
	updatable bool
}

type dependencyCacheKey struct {
	dep     string
	version string
}

// conflictEntry records why (dep, version) was rejected, and the set of
// other concrete dependencies it was found to conflict with. A
// nil/empty conflictsWith together with conflictsWithRoot=true means
// the candidate conflicts with the root requirements themselves.
type conflictEntry struct {
	err               error
	conflictsWith     map[dependencyCacheKey]ConflictStep
	conflictsWithRoot bool
}

// ResolverContext memoises Retriever queries within a single Resolve
// call and accumulates the conflict cache and problematic-dependency
// histogram that drive the backtracking search's pruning heuristics
//. A ResolverContext is not safe for concurrent use and
// must not outlive the Resolve call that owns it.
type ResolverContext struct {
	retriever Retriever
	logger    hclog.Logger

	pinned map[string]*PinnedVersion

	versions     map[versionsCacheKey]*ConcreteVersionSet
	dependencies map[dependencyCacheKey][]RequirementEdge
	conflicts    map[dependencyCacheKey]*conflictEntry

	problemCount map[string]int
	histVersion  int
	sortedCache  *lru.Cache[string, []RequirementEdge]
}

// NewResolverContext constructs an empty ResolverContext over retriever.
// A nil logger disables debug tracing.
func NewResolverContext(retriever Retriever, logger hclog.Logger) *ResolverContext {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ResolverContext{
		retriever:    retriever,
		logger:       logger,
		pinned:       make(map[string]*PinnedVersion),
		versions:     make(map[versionsCacheKey]*ConcreteVersionSet),
		dependencies: make(map[dependencyCacheKey][]RequirementEdge),
		conflicts:    make(map[dependencyCacheKey]*conflictEntry),
		problemCount: make(map[string]int),
		sortedCache:  lru.New[string, []RequirementEdge](sortedListCacheSize),
	}
}

// SetPinnedVersions installs the prior resolution's pins, keyed by
// Dependency identity, consulted by FindAllVersions for dependencies
// that are not updatable.
func (c *ResolverContext) SetPinnedVersions(pins map[Dependency]*PinnedVersion) {
	for d, v := range pins {
		c.pinned[depKey(d)] = v
	}
}

// FindAllVersions returns the cached or freshly computed
// ConcreteVersionSet for (dep, spec, isUpdatable).
func (c *ResolverContext) FindAllVersions(ctx context.Context, dep Dependency, spec VersionSpecifier, isUpdatable bool) (*ConcreteVersionSet, error) {
	key := versionsCacheKey{dep: depKey(dep), specifier: spec.String(), updatable: isUpdatable}
	if cached, ok := c.versions[key]; ok {
		c.logger.Trace("versions cache hit", "dependency", dep, "specifier", spec)
		return cached.Copy(), nil
	}

	if !isUpdatable {
		if pin, ok := c.pinned[depKey(dep)]; ok {
			set := NewPinnedVersionSet(ConcreteVersion{pin})
			c.versions[key] = set
			return set.Copy(), nil
		}
	}

	set, err := c.fetchVersions(ctx, dep, spec)
	if err != nil {
		return nil, err
	}
	c.versions[key] = set
	return set.Copy(), nil
}

// fetchVersions performs the uncached Retriever query: a GitReference
// specifier is resolved through
// ResolvedGitReference, anything else is resolved through Versions;
// either way the result is filtered by the effective specifier (branch
// and tag references replaced by the commit they resolved to).
func (c *ResolverContext) fetchVersions(ctx context.Context, dep Dependency, spec VersionSpecifier) (*ConcreteVersionSet, error) {
	if spec.Kind == KindGitReference {
		resolved, err := c.retriever.ResolvedGitReference(ctx, dep, spec.Ref)
		if err != nil {
			return nil, err
		}
		set := NewConcreteVersionSet()
		for _, v := range resolved {
			set.Insert(ConcreteVersion{v})
		}
		effective := spec
		if len(resolved) == 1 {
			effective = GitReference(resolved[0].Commitish)
		}
		set.RetainCompatible(effective)
		return set, nil
	}

	all, err := c.retriever.Versions(ctx, dep)
	if err != nil {
		return nil, err
	}
	set := NewConcreteVersionSet()
	for _, v := range all {
		set.Insert(ConcreteVersion{v})
	}
	set.RetainCompatible(spec)
	return set, nil
}

// FindDependencies returns the cached or freshly fetched direct
// dependencies of dep pinned at v.
func (c *ResolverContext) FindDependencies(ctx context.Context, dep Dependency, v *PinnedVersion) ([]RequirementEdge, error) {
	key := dependencyCacheKey{dep: depKey(dep), version: versionKey(v)}
	if cached, ok := c.dependencies[key]; ok {
		return cached, nil
	}
	edges, err := c.retriever.Dependencies(ctx, dep, v)
	if err != nil {
		return nil, err
	}
	c.dependencies[key] = edges
	return edges, nil
}

// RecordConflict records that (dep, v) is incompatible with (other,
// otherVersion) -- or, if root is true, with the root requirements
// directly. Recording is symmetric: (dep,v) ⟂ (other,otherVersion) also
// records the reverse entry.
func (c *ResolverContext) RecordConflict(dep Dependency, v *PinnedVersion, other Dependency, otherVersion *PinnedVersion, root bool, cause error) {
	c.recordOneSide(dep, v, other, otherVersion, root, cause)
	if !root {
		c.recordOneSide(other, otherVersion, dep, v, false, cause)
	}
	c.bumpProblemCount(dep)
	if !root {
		c.bumpProblemCount(other)
	}
}

func (c *ResolverContext) recordOneSide(dep Dependency, v *PinnedVersion, other Dependency, otherVersion *PinnedVersion, root bool, cause error) {
	key := dependencyCacheKey{dep: depKey(dep), version: versionKey(v)}
	e, ok := c.conflicts[key]
	if !ok {
		e = &conflictEntry{conflictsWith: make(map[dependencyCacheKey]ConflictStep)}
		c.conflicts[key] = e
	}
	e.err = cause
	if root {
		e.conflictsWithRoot = true
		return
	}
	otherKey := dependencyCacheKey{dep: depKey(other), version: versionKey(otherVersion)}
	e.conflictsWith[otherKey] = ConflictStep{
		Defining:    dep,
		Required:    other,
		ObservedPin: otherVersion,
	}
}

// ConflictsWith reports whether (dep, v) has a recorded conflict with
// (other, otherVersion) specifically. Conflicts against the root
// requirements are not reported here; see ConflictsWithRoot.
func (c *ResolverContext) ConflictsWith(dep Dependency, v *PinnedVersion, other Dependency, otherVersion *PinnedVersion) bool {
	e, ok := c.conflicts[dependencyCacheKey{dep: depKey(dep), version: versionKey(v)}]
	if !ok {
		return false
	}
	otherKey := dependencyCacheKey{dep: depKey(other), version: versionKey(otherVersion)}
	_, found := e.conflictsWith[otherKey]
	return found
}

// ConflictsWithRoot reports whether (dep, v) has a recorded conflict
// against the root requirements.
func (c *ResolverContext) ConflictsWithRoot(dep Dependency, v *PinnedVersion) bool {
	e, ok := c.conflicts[dependencyCacheKey{dep: depKey(dep), version: versionKey(v)}]
	return ok && e.conflictsWithRoot
}

func (c *ResolverContext) bumpProblemCount(dep Dependency) {
	c.problemCount[depKey(dep)]++
	// The sorted-list cache is keyed by histVersion below, so bumping it
	// here makes every previously cached ordering unreachable.
	c.histVersion++
}

// ProblemCount returns the number of conflicts dep has participated in
// so far.
func (c *ResolverContext) ProblemCount(dep Dependency) int {
	return c.problemCount[depKey(dep)]
}

// SortByProblemCount returns edges ordered with problematic dependencies
// first, so the search surfaces likely failures as early as possible
// and prunes more of the space. Ties break by Dependency.Compare for
// determinism. On a cache miss edges itself is sorted in place and
// returned; on a hit the slice cached for the same set of (dependency,
// specifier) pairs is returned and edges is left as it was.
func (c *ResolverContext) SortByProblemCount(edges []RequirementEdge) []RequirementEdge {
	key := c.sortedCacheKey(edges)
	if cached, ok := c.sortedCache.Get(key); ok {
		return cached
	}

	sort.SliceStable(edges, func(i, j int) bool {
		pi, pj := c.ProblemCount(edges[i].Requires), c.ProblemCount(edges[j].Requires)
		if pi != pj {
			return pi > pj
		}
		return edges[i].Requires.Compare(edges[j].Requires) < 0
	})
	c.sortedCache.Add(key, edges)
	return edges
}

func (c *ResolverContext) sortedCacheKey(edges []RequirementEdge) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|", c.histVersion)
	names := make([]string, len(edges))
	for i, e := range edges {
		names[i] = depKey(e.Requires) + " " + e.Specifier.String()
	}
	sort.Strings(names)
	b.WriteString(strings.Join(names, ","))
	return b.String()
}

func (c *ResolverContext) debugf(format string, args ...interface{}) {
	c.logger.Debug(fmt.Sprintf(format, args...))
}
