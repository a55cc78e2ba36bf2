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

package crawler

import (
	"encoding/json"
	"io"
	"sort"
	"sync"

	"github.com/cartfile-dev/resolve"
)

// Store persists what a Crawler discovers.
type Store interface {
	// SaveVersions records the filtered version set found for dep under
	// specifier.
	SaveVersions(dep resolve.Dependency, specifier resolve.VersionSpecifier, versions []resolve.ConcreteVersion) error
	// SaveDependencies records the direct dependencies of dep pinned at v.
	SaveDependencies(dep resolve.Dependency, v *resolve.PinnedVersion, edges []resolve.RequirementEdge) error
}

// MemoryStore is an in-memory Store, useful for tests and for
// programmatically inspecting a completed crawl.
type MemoryStore struct {
	mu sync.Mutex

	versions     map[string][]string // dependency description -> commitishes
	dependencies map[string][]resolve.RequirementEdge
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		versions:     make(map[string][]string),
		dependencies: make(map[string][]resolve.RequirementEdge),
	}
}

// SaveVersions implements Store.
func (m *MemoryStore) SaveVersions(dep resolve.Dependency, specifier resolve.VersionSpecifier, versions []resolve.ConcreteVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	commitishes := make([]string, len(versions))
	for i, v := range versions {
		commitishes[i] = v.Commitish
	}
	m.versions[dep.Description()] = commitishes
	return nil
}

// SaveDependencies implements Store.
func (m *MemoryStore) SaveDependencies(dep resolve.Dependency, v *resolve.PinnedVersion, edges []resolve.RequirementEdge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dependencies[dep.Description()+"@"+v.Commitish] = edges
	return nil
}

// Versions returns the commit-ishes recorded for dep, in the order they
// were saved.
func (m *MemoryStore) Versions(dep resolve.Dependency) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.versions[dep.Description()]...)
}

// Dependencies returns the requirement edges recorded for dep@v.
func (m *MemoryStore) Dependencies(dep resolve.Dependency, v *resolve.PinnedVersion) []resolve.RequirementEdge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]resolve.RequirementEdge(nil), m.dependencies[dep.Description()+"@"+v.Commitish]...)
}

// jsonVersionsRecord and jsonDependenciesRecord are the on-disk shapes
// written by JSONStore, one JSON object per line so a snapshot can be
// streamed without buffering the whole graph in memory.
type jsonVersionsRecord struct {
	Kind       string   `json:"kind"`
	Dependency string   `json:"dependency"`
	Specifier  string   `json:"specifier"`
	Versions   []string `json:"versions"`
}

type jsonDependenciesRecord struct {
	Kind       string              `json:"kind"`
	Dependency string              `json:"dependency"`
	Version    string              `json:"version"`
	Requires   []jsonRequiredEntry `json:"requires"`
}

type jsonRequiredEntry struct {
	Dependency string `json:"dependency"`
	Specifier  string `json:"specifier"`
}

// JSONStore is a Store that appends one JSON-lines record per call to an
// underlying io.Writer, suitable for writing a crawl snapshot to a file
// or any other sink.
type JSONStore struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONStore constructs a JSONStore writing records to w.
func NewJSONStore(w io.Writer) *JSONStore {
	return &JSONStore{enc: json.NewEncoder(w)}
}

// SaveVersions implements Store.
func (s *JSONStore) SaveVersions(dep resolve.Dependency, specifier resolve.VersionSpecifier, versions []resolve.ConcreteVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	commitishes := make([]string, len(versions))
	for i, v := range versions {
		commitishes[i] = v.Commitish
	}
	return s.enc.Encode(jsonVersionsRecord{
		Kind:       "versions",
		Dependency: dep.Description(),
		Specifier:  specifier.String(),
		Versions:   commitishes,
	})
}

// SaveDependencies implements Store.
func (s *JSONStore) SaveDependencies(dep resolve.Dependency, v *resolve.PinnedVersion, edges []resolve.RequirementEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	requires := make([]jsonRequiredEntry, len(edges))
	for i, e := range edges {
		requires[i] = jsonRequiredEntry{Dependency: e.Requires.Description(), Specifier: e.Specifier.String()}
	}
	sort.Slice(requires, func(i, j int) bool { return requires[i].Dependency < requires[j].Dependency })
	return s.enc.Encode(jsonDependenciesRecord{
		Kind:       "dependencies",
		Dependency: dep.Description(),
		Version:    v.Commitish,
		Requires:   requires,
	})
}
