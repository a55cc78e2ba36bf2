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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverContextFindAllVersionsCachesResult(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	r.AddVersion(a, pin(t, "1.0.0"), noDeps())
	r.AddVersion(a, pin(t, "1.1.0"), noDeps())

	c := NewResolverContext(r, nil)
	first, err := c.FindAllVersions(context.Background(), a, Any(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Len())

	// Mutating the returned set must not corrupt the cache: FindAllVersions
	// always hands back an independent Copy.
	first.versions = first.versions[:1]

	second, err := c.FindAllVersions(context.Background(), a, Any(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Len())
}

func TestResolverContextFindAllVersionsUsesPinnedWhenNotUpdatable(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	r.AddVersion(a, pin(t, "1.0.0"), noDeps())
	r.AddVersion(a, pin(t, "2.0.0"), noDeps())

	c := NewResolverContext(r, nil)
	c.SetPinnedVersions(map[Dependency]*PinnedVersion{a: pin(t, "1.0.0")})

	set, err := c.FindAllVersions(context.Background(), a, Any(), false)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "1.0.0", set.versions[0].Commitish)
}

func TestResolverContextFindAllVersionsIgnoresPinnedWhenUpdatable(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	r.AddVersion(a, pin(t, "1.0.0"), noDeps())
	r.AddVersion(a, pin(t, "2.0.0"), noDeps())

	c := NewResolverContext(r, nil)
	c.SetPinnedVersions(map[Dependency]*PinnedVersion{a: pin(t, "1.0.0")})

	set, err := c.FindAllVersions(context.Background(), a, Any(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestResolverContextFindDependenciesCaches(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	b := NewGitHubDependency("", "org", "b")
	r := NewMemoryRetriever()
	r.AddVersion(a, pin(t, "1.0.0"), []RequirementEdge{{Requires: b, Specifier: Any()}})

	c := NewResolverContext(r, nil)
	edges, err := c.FindDependencies(context.Background(), a, pin(t, "1.0.0"))
	require.NoError(t, err)
	require.Len(t, edges, 1)

	cached, ok := c.dependencies[dependencyCacheKey{dep: depKey(a), version: "1.0.0"}]
	require.True(t, ok)
	assert.Equal(t, edges, cached)
}

func TestResolverContextRecordConflictIsSymmetric(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	b := NewGitHubDependency("", "org", "b")
	c := NewResolverContext(NewMemoryRetriever(), nil)

	pa, pb := pin(t, "1.0.0"), pin(t, "2.0.0")
	c.RecordConflict(a, pa, b, pb, false, nil)

	assert.True(t, c.ConflictsWith(a, pa, b, pb))
	assert.True(t, c.ConflictsWith(b, pb, a, pa))
	assert.Equal(t, 1, c.ProblemCount(a))
	assert.Equal(t, 1, c.ProblemCount(b))
}

func TestResolverContextRecordConflictAgainstRootDoesNotTouchOtherSide(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	c := NewResolverContext(NewMemoryRetriever(), nil)
	pa := pin(t, "1.0.0")

	c.RecordConflict(a, pa, Dependency{}, nil, true, nil)
	assert.True(t, c.ConflictsWithRoot(a, pa))
	assert.Equal(t, 1, c.ProblemCount(a))
	assert.Equal(t, 0, c.ProblemCount(Dependency{}), "a root conflict must not bump the other side's problem count")
}

func TestResolverContextSortByProblemCountOrdersDescending(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	b := NewGitHubDependency("", "org", "b")
	d := NewGitHubDependency("", "org", "d")
	c := NewResolverContext(NewMemoryRetriever(), nil)

	c.RecordConflict(b, pin(t, "1.0.0"), Dependency{}, nil, true, nil)
	c.RecordConflict(b, pin(t, "1.0.0"), Dependency{}, nil, true, nil)

	edges := []RequirementEdge{
		{Requires: a, Specifier: Any()},
		{Requires: b, Specifier: Any()},
		{Requires: d, Specifier: Any()},
	}
	sorted := c.SortByProblemCount(edges)
	require.Len(t, sorted, 3)
	assert.Equal(t, b, sorted[0].Requires, "b has the higher problem count and must sort first")
}

func TestResolverContextSortByProblemCountCacheInvalidatesOnUpdate(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	b := NewGitHubDependency("", "org", "b")
	c := NewResolverContext(NewMemoryRetriever(), nil)

	edges := []RequirementEdge{
		{Requires: a, Specifier: Any()},
		{Requires: b, Specifier: Any()},
	}
	first := c.SortByProblemCount(append([]RequirementEdge(nil), edges...))
	assert.Equal(t, a, first[0].Requires)

	c.RecordConflict(b, pin(t, "1.0.0"), Dependency{}, nil, true, nil)

	second := c.SortByProblemCount(append([]RequirementEdge(nil), edges...))
	assert.Equal(t, b, second[0].Requires, "new histogram entry must invalidate the stale cached order")
}
