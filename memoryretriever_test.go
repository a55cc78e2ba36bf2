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

func TestMemoryRetrieverVersionsNotFound(t *testing.T) {
	r := NewMemoryRetriever()
	a := NewGitHubDependency("", "org", "a")
	_, err := r.Versions(context.Background(), a)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestMemoryRetrieverAddVersionDeduplicates(t *testing.T) {
	r := NewMemoryRetriever()
	a := NewGitHubDependency("", "org", "a")
	r.AddVersion(a, pin(t, "1.0.0"), noDeps())
	r.AddVersion(a, pin(t, "1.0.0"), noDeps())
	r.AddVersion(a, pin(t, "1.1.0"), noDeps())

	vs, err := r.Versions(context.Background(), a)
	require.NoError(t, err)
	assert.Len(t, vs, 2)
}

func TestMemoryRetrieverDependenciesRoundTrip(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	b := NewGitHubDependency("", "org", "b")
	r := NewMemoryRetriever()
	edges := []RequirementEdge{{Requires: b, Specifier: Any()}}
	r.AddVersion(a, pin(t, "1.0.0"), edges)

	got, err := r.Dependencies(context.Background(), a, pin(t, "1.0.0"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b, got[0].Requires)
}

func TestMemoryRetrieverDependenciesNotFoundForUnknownVersion(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	r.AddVersion(a, pin(t, "1.0.0"), noDeps())
	_, err := r.Dependencies(context.Background(), a, pin(t, "9.9.9"))
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestMemoryRetrieverResolvedGitReference(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	commit := pin(t, "deadbeef")
	r.SetGitReference(a, "main", commit)

	got, err := r.ResolvedGitReference(context.Background(), a, "main")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "deadbeef", got[0].Commitish)

	_, err = r.ResolvedGitReference(context.Background(), a, "develop")
	require.Error(t, err)
}

func TestMemoryRetrieverResolvedCommitHashPrefersExplicitHash(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	r.SetGitReference(a, "main", pin(t, "branch-tip-commit"))
	r.SetResolvedCommitHash(a, "main", "explicit-hash")

	hash, err := r.ResolvedCommitHash(context.Background(), "main", a)
	require.NoError(t, err)
	assert.Equal(t, "explicit-hash", hash)
}

func TestMemoryRetrieverResolvedCommitHashFallsBackToGitReference(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	r.SetGitReference(a, "main", pin(t, "branch-tip-commit"))

	hash, err := r.ResolvedCommitHash(context.Background(), "main", a)
	require.NoError(t, err)
	assert.Equal(t, "branch-tip-commit", hash)
}

func TestMemoryRetrieverResolvedCommitHashNotFound(t *testing.T) {
	a := NewGitHubDependency("", "org", "a")
	r := NewMemoryRetriever()
	_, err := r.ResolvedCommitHash(context.Background(), "main", a)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}
