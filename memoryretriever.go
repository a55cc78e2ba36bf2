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
)

// MemoryRetriever is an in-memory Retriever backed entirely by maps
// populated ahead of time. It is the fixture used throughout this
// package's own tests and is useful to callers writing tests against
// their own Resolver usage.
type MemoryRetriever struct {
	versions  map[string][]*PinnedVersion
	deps      map[string][]RequirementEdge
	refs      map[string]*PinnedVersion
	hashes    map[string]string
	byKeyDeps map[string]Dependency
}

// NewMemoryRetriever creates a new, empty MemoryRetriever.
func NewMemoryRetriever() *MemoryRetriever {
	return &MemoryRetriever{
		versions:  make(map[string][]*PinnedVersion),
		deps:      make(map[string][]RequirementEdge),
		refs:      make(map[string]*PinnedVersion),
		hashes:    make(map[string]string),
		byKeyDeps: make(map[string]Dependency),
	}
}

// AddVersion records that dep has version v, with the given direct
// dependencies. Calling it more than once for the same (dep, v)
// replaces the prior dependency list.
func (m *MemoryRetriever) AddVersion(dep Dependency, v *PinnedVersion, requires []RequirementEdge) {
	key := depKey(dep)
	m.byKeyDeps[key] = dep

	found := false
	for _, existing := range m.versions[key] {
		if existing.Commitish == v.Commitish {
			found = true
			break
		}
	}
	if !found {
		m.versions[key] = append(m.versions[key], v)
	}
	m.deps[dependencyCacheKey{dep: key, version: v.Commitish}.String()] = requires
}

// SetGitReference records that ref on dep resolves to commit.
func (m *MemoryRetriever) SetGitReference(dep Dependency, ref string, commit *PinnedVersion) {
	m.refs[depKey(dep)+"\x00"+ref] = commit
}

// SetResolvedCommitHash records the synchronous commit hash ref
// resolves to for dep.
func (m *MemoryRetriever) SetResolvedCommitHash(dep Dependency, ref, hash string) {
	m.hashes[depKey(dep)+"\x00"+ref] = hash
}

func (k dependencyCacheKey) String() string { return k.dep + "\x00" + k.version }

// Versions implements Retriever.
func (m *MemoryRetriever) Versions(ctx context.Context, dep Dependency) ([]*PinnedVersion, error) {
	vs, ok := m.versions[depKey(dep)]
	if !ok {
		return nil, &RetrieverError{Kind: RetrieverNotFound, Dependency: dep, Err: fmt.Errorf("no versions recorded for %v", dep)}
	}
	out := make([]*PinnedVersion, len(vs))
	copy(out, vs)
	return out, nil
}

// Dependencies implements Retriever.
func (m *MemoryRetriever) Dependencies(ctx context.Context, dep Dependency, pinned *PinnedVersion) ([]RequirementEdge, error) {
	key := dependencyCacheKey{dep: depKey(dep), version: pinned.Commitish}.String()
	edges, ok := m.deps[key]
	if !ok {
		return nil, &RetrieverError{Kind: RetrieverNotFound, Dependency: dep, Err: fmt.Errorf("no dependency manifest recorded for %v@%s", dep, pinned)}
	}
	out := make([]RequirementEdge, len(edges))
	copy(out, edges)
	return out, nil
}

// ResolvedGitReference implements Retriever.
func (m *MemoryRetriever) ResolvedGitReference(ctx context.Context, dep Dependency, ref string) ([]*PinnedVersion, error) {
	commit, ok := m.refs[depKey(dep)+"\x00"+ref]
	if !ok {
		return nil, &RetrieverError{Kind: RetrieverNotFound, Dependency: dep, Err: fmt.Errorf("no git reference %q recorded for %v", ref, dep)}
	}
	return []*PinnedVersion{commit}, nil
}

// ResolvedCommitHash implements Retriever.
func (m *MemoryRetriever) ResolvedCommitHash(ctx context.Context, ref string, dep Dependency) (string, error) {
	hash, ok := m.hashes[depKey(dep)+"\x00"+ref]
	if ok {
		return hash, nil
	}
	if commit, ok := m.refs[depKey(dep)+"\x00"+ref]; ok {
		return commit.Commitish, nil
	}
	return "", &RetrieverError{Kind: RetrieverNotFound, Dependency: dep, Err: fmt.Errorf("cannot resolve commit hash for ref %q on %v", ref, dep)}
}
