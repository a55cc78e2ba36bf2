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

// ResolverEventKind discriminates the ResolverEvent sum type.
type ResolverEventKind uint8

const (
	// EventFoundVersions fires each time the search obtains a
	// dependency's filtered version list, whether fetched or served from
	// cache; a dependency revisited after backtracking fires it again.
	EventFoundVersions ResolverEventKind = iota
	// EventFoundTransitiveDependencies fires each time the search
	// obtains the direct dependencies of a (dependency, pinned version)
	// pair, whether fetched or served from cache.
	EventFoundTransitiveDependencies
	// EventFailedRetrievingVersions fires when Retriever.Versions
	// returned an error for a dependency the search still needed.
	EventFailedRetrievingVersions
	// EventFailedRetrievingTransitiveDependencies fires when
	// Retriever.Dependencies returned an error for a (dependency,
	// version) pair the search still needed.
	EventFailedRetrievingTransitiveDependencies
	// EventRejected fires every time the search discards a candidate
	// version because it failed to satisfy an already-assigned
	// requirement, whether or not that rejection ultimately leads to
	// backtracking.
	EventRejected
)

func (k ResolverEventKind) String() string {
	switch k {
	case EventFoundVersions:
		return "found-versions"
	case EventFoundTransitiveDependencies:
		return "found-transitive-dependencies"
	case EventFailedRetrievingVersions:
		return "failed-retrieving-versions"
	case EventFailedRetrievingTransitiveDependencies:
		return "failed-retrieving-transitive-dependencies"
	case EventRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ResolverEvent is emitted by Resolver.Resolve as the search proceeds
//. Emission is non-blocking: a caller that stops reading
// never stalls the search, and a search that finishes before a reader
// catches up never blocks waiting for it (see Resolver.Resolve).
type ResolverEvent struct {
	Kind ResolverEventKind

	// Dependency is set for every event kind.
	Dependency Dependency

	// Version is set for EventFoundTransitiveDependencies,
	// EventFailedRetrievingTransitiveDependencies and EventRejected.
	Version *PinnedVersion

	// Count is set for EventFoundVersions: the number of versions found.
	Count int

	// Err is set for the two Failed* kinds.
	Err error

	// Requirement is set for EventRejected: the specifier the candidate
	// failed to satisfy.
	Requirement VersionSpecifier

	// RequiredBy is set for EventRejected when the failing requirement
	// was not the root's own.
	RequiredBy     Dependency
	RequiredByRoot bool
}

// eventSink is the internal, non-blocking fan-out used by Resolver: a
// nil sink silently drops every event, for a caller that declined to
// observe progress.
type eventSink struct {
	ch chan<- ResolverEvent
}

func newEventSink(ch chan<- ResolverEvent) eventSink {
	return eventSink{ch: ch}
}

func (s eventSink) emit(e ResolverEvent) {
	if s.ch == nil {
		return
	}
	select {
	case s.ch <- e:
	default:
		// A slow or absent reader never stalls the search: the
		// event is dropped rather than blocking the backtracking loop.
	}
}

func (s eventSink) foundVersions(dep Dependency, count int) {
	s.emit(ResolverEvent{Kind: EventFoundVersions, Dependency: dep, Count: count})
}

func (s eventSink) foundTransitiveDependencies(dep Dependency, v *PinnedVersion) {
	s.emit(ResolverEvent{Kind: EventFoundTransitiveDependencies, Dependency: dep, Version: v})
}

func (s eventSink) failedRetrievingVersions(dep Dependency, err error) {
	s.emit(ResolverEvent{Kind: EventFailedRetrievingVersions, Dependency: dep, Err: err})
}

func (s eventSink) failedRetrievingTransitiveDependencies(dep Dependency, v *PinnedVersion, err error) {
	s.emit(ResolverEvent{Kind: EventFailedRetrievingTransitiveDependencies, Dependency: dep, Version: v, Err: err})
}

func (s eventSink) rejected(dep Dependency, v *PinnedVersion, req VersionSpecifier, requiredBy Dependency, requiredByRoot bool) {
	s.emit(ResolverEvent{
		Kind:           EventRejected,
		Dependency:     dep,
		Version:        v,
		Requirement:    req,
		RequiredBy:     requiredBy,
		RequiredByRoot: requiredByRoot,
	})
}
