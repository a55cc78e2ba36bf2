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

	"github.com/hashicorp/go-hclog"
)

// Resolver performs backtracking dependency resolution against a
// Retriever. The zero value is not usable; construct one
// with NewResolver.
type Resolver struct {
	retriever Retriever
	logger    hclog.Logger
}

// NewResolver constructs a Resolver backed by retriever.
func NewResolver(retriever Retriever) *Resolver {
	return &Resolver{retriever: retriever, logger: hclog.NewNullLogger()}
}

// SetLogger installs a structured logger used for search tracing. A nil
// logger silences tracing.
func (r *Resolver) SetLogger(logger hclog.Logger) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	r.logger = logger
}

// node is one dependency the search has discovered, with the
// accumulated constraint built by intersecting every requirement edge
// that has named it so far.
type node struct {
	dep           Dependency
	specifier     VersionSpecifier
	updatable     bool
	contributions []ConflictStep
}

// undoAction reverses one mutation applied to the search graph while
// fanning out a candidate's transitive dependencies, so a failed branch
// can be retried with a clean working specifier.
type undoAction struct {
	key      string
	newNode  bool
	prevSpec VersionSpecifier
}

// search is the mutable state of one Resolve call: the node graph, the
// processing order, and the partial assignment under construction.
type search struct {
	retriever Retriever
	rc        *ResolverContext
	sink      eventSink
	logger    hclog.Logger

	nodes      map[string]*node
	order      []string
	assignment map[string]*PinnedVersion

	lastConflict []ConflictStep
}

// Resolve computes a globally consistent assignment of one concrete
// version per dependency.
//
// dependencies are the top-level (user-supplied) requirements.
// lastResolved, if non-nil, is a prior solution; dependenciesToUpdate,
// if non-nil, restricts re-resolution to the named dependencies and
// everything they transitively require. events, if non-nil,
// receives progress notifications and is never blocked on.
func (r *Resolver) Resolve(
	ctx context.Context,
	dependencies map[Dependency]VersionSpecifier,
	lastResolved map[Dependency]*PinnedVersion,
	dependenciesToUpdate map[string]bool,
	events chan<- ResolverEvent,
) (map[Dependency]*PinnedVersion, error) {
	for dep := range dependencies {
		if dep.Kind == UnknownSource {
			return nil, &InvalidDependencyError{Dependency: dep, Reason: "unknown source kind"}
		}
	}

	rc := NewResolverContext(r.retriever, r.logger)
	if lastResolved != nil {
		rc.SetPinnedVersions(lastResolved)
	}

	closure, err := r.updatableClosure(ctx, rc, lastResolved, dependenciesToUpdate)
	if err != nil {
		return nil, err
	}

	s := &search{
		retriever:  r.retriever,
		rc:         rc,
		sink:       newEventSink(events),
		logger:     r.logger,
		nodes:      make(map[string]*node),
		assignment: make(map[string]*PinnedVersion),
	}

	keys := make([]Dependency, 0, len(dependencies))
	for dep := range dependencies {
		keys = append(keys, dep)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })

	for _, dep := range keys {
		key := depKey(dep)
		s.nodes[key] = &node{
			dep:       dep,
			specifier: dependencies[dep],
			updatable: isUpdatable(dep, lastResolved, dependenciesToUpdate, closure),
			contributions: []ConflictStep{{
				DefiningIsRoot: true,
				Required:       dep,
				Specifier:      dependencies[dep],
			}},
		}
		s.order = append(s.order, key)
	}

	if err := s.run(ctx); err != nil {
		return nil, err
	}

	result := make(map[Dependency]*PinnedVersion, len(s.nodes))
	for key, n := range s.nodes {
		v, ok := s.assignment[key]
		if !ok {
			return nil, &InternalInvariantViolationError{Message: fmt.Sprintf("dependency %v left unassigned after successful search", n.dep)}
		}
		result[n.dep] = v
	}
	return result, nil
}

// isUpdatable implements the update-scoping rule: a
// dependency is updatable unless both a prior solution and an update
// set were given and the dependency's name falls outside the update
// set's transitive closure.
func isUpdatable(dep Dependency, lastResolved map[Dependency]*PinnedVersion, toUpdate map[string]bool, closure map[string]bool) bool {
	if lastResolved == nil || toUpdate == nil {
		return true
	}
	return closure[dep.Name]
}

// updatableClosure computes the transitive closure of dependenciesToUpdate
// over the dependency graph of the prior resolution: a
// topological walk starting from the named dependencies, following
// their recorded direct dependencies forward, since a package newly
// eligible to change version may introduce dependencies of its own that
// must also be free to move.
func (r *Resolver) updatableClosure(ctx context.Context, rc *ResolverContext, lastResolved map[Dependency]*PinnedVersion, toUpdate map[string]bool) (map[string]bool, error) {
	if lastResolved == nil || toUpdate == nil {
		return nil, nil
	}

	byName := make(map[string]Dependency, len(lastResolved))
	for dep := range lastResolved {
		byName[dep.Name] = dep
	}

	closure := make(map[string]bool, len(toUpdate))
	var queue []string
	for name := range toUpdate {
		if !closure[name] {
			closure[name] = true
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return nil, &CancelledError{}
		}
		name := queue[0]
		queue = queue[1:]

		dep, ok := byName[name]
		if !ok {
			continue // named for update but not part of the prior solution.
		}
		edges, err := rc.FindDependencies(ctx, dep, lastResolved[dep])
		if err != nil {
			return nil, err
		}
		next := make([]string, 0, len(edges))
		for _, e := range edges {
			next = append(next, e.Requires.Name)
		}
		sort.Strings(next)
		for _, childName := range next {
			if !closure[childName] {
				closure[childName] = true
				queue = append(queue, childName)
			}
		}
	}
	return closure, nil
}

// run drives the depth-first backtracking search to completion. It
// returns nil once every node in s.nodes has an assignment.
func (s *search) run(ctx context.Context) error {
	key, ok := s.nextUnassigned()
	if !ok {
		return nil
	}
	return s.assignNode(ctx, key)
}

func (s *search) nextUnassigned() (string, bool) {
	for _, key := range s.order {
		if _, ok := s.assignment[key]; !ok {
			return key, true
		}
	}
	return "", false
}

// assignNode assigns a concrete version to a single dependency node,
// fanning its requirement edges out to new or existing nodes.
func (s *search) assignNode(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return &CancelledError{}
	}

	n := s.nodes[key]
	versions, err := s.rc.FindAllVersions(ctx, n.dep, n.specifier, n.updatable)
	if err != nil {
		s.sink.failedRetrievingVersions(n.dep, err)
		return s.recordTerminalConflict(n, fmt.Errorf("retrieving versions of %v: %w", n.dep, err))
	}
	s.sink.foundVersions(n.dep, versions.Len())

	if versions.IsEmpty() {
		return s.recordTerminalConflict(n, fmt.Errorf("no version of %v satisfies %s", n.dep, n.specifier))
	}

	for _, v := range versions.Versions() {
		if ctx.Err() != nil {
			return &CancelledError{}
		}
		if s.conflictsWithAssigned(n.dep, v.PinnedVersion) {
			s.sink.rejected(n.dep, v.PinnedVersion, n.specifier, n.dep, false)
			continue
		}

		s.logger.Trace("assigning", "dependency", n.dep, "version", v.PinnedVersion)
		s.assignment[key] = v.PinnedVersion

		ok, undo, branchErr := s.fanOut(ctx, n, v)
		if branchErr != nil {
			delete(s.assignment, key)
			return branchErr
		}
		if !ok {
			s.undoFanOut(undo)
			delete(s.assignment, key)
			continue
		}

		err := s.run(ctx)
		if err == nil {
			return nil
		}
		if _, cancelled := err.(*CancelledError); cancelled {
			s.undoFanOut(undo)
			delete(s.assignment, key)
			return err
		}
		s.undoFanOut(undo)
		delete(s.assignment, key)
	}

	return s.recordTerminalConflict(n, fmt.Errorf("no candidate version of %v could be assigned", n.dep))
}

// conflictsWithAssigned reports whether (dep, v) has a cached conflict
// against any dependency currently assigned.
func (s *search) conflictsWithAssigned(dep Dependency, v *PinnedVersion) bool {
	for key, assignedVersion := range s.assignment {
		n, ok := s.nodes[key]
		if !ok {
			continue
		}
		if s.rc.ConflictsWith(dep, v, n.dep, assignedVersion) {
			return true
		}
	}
	return s.rc.ConflictsWithRoot(dep, v)
}

// fanOut fetches the transitive dependencies of (n.dep, v) and folds
// them into the search graph. ok is false when
// one of the new edges contradicts an already-assigned dependency; the
// caller must then try the next candidate version.
func (s *search) fanOut(ctx context.Context, n *node, v ConcreteVersion) (ok bool, undo []undoAction, err error) {
	edges, err := s.rc.FindDependencies(ctx, n.dep, v.PinnedVersion)
	if err != nil {
		s.sink.failedRetrievingTransitiveDependencies(n.dep, v.PinnedVersion, err)
		s.rc.RecordConflict(n.dep, v.PinnedVersion, Dependency{}, nil, true, err)
		return false, nil, nil
	}
	s.sink.foundTransitiveDependencies(n.dep, v.PinnedVersion)
	edges = s.rc.SortByProblemCount(edges)

	for _, edge := range edges {
		rkey := depKey(edge.Requires)

		if existing, assigned := s.assignment[rkey]; assigned {
			if edge.Specifier.IsSatisfiedBy(existing) {
				continue
			}
			reqNode := s.nodes[rkey]
			step := ConflictStep{
				Defining:    n.dep,
				Required:    edge.Requires,
				Specifier:   edge.Specifier,
				ObservedPin: existing,
			}
			prior := reqNode.lastContribution()
			s.lastConflict = []ConflictStep{prior, step}
			s.sink.rejected(edge.Requires, existing, edge.Specifier, n.dep, false)
			s.rc.RecordConflict(n.dep, v.PinnedVersion, edge.Requires, existing, false, fmt.Errorf("%v requires %v %s but it is pinned to %s", n.dep, edge.Requires, edge.Specifier, existing))
			return false, undo, nil
		}

		rnode, exists := s.nodes[rkey]
		if !exists {
			rnode = &node{dep: edge.Requires, specifier: Any(), updatable: n.updatable}
			s.nodes[rkey] = rnode
			s.order = append(s.order, rkey)
			undo = append(undo, undoAction{key: rkey, newNode: true})
		} else {
			undo = append(undo, undoAction{key: rkey, prevSpec: rnode.specifier})
		}
		rnode.specifier = rnode.specifier.Intersect(edge.Specifier)
		rnode.contributions = append(rnode.contributions, ConflictStep{
			Defining:  n.dep,
			Required:  edge.Requires,
			Specifier: edge.Specifier,
		})
	}
	return true, undo, nil
}

func (s *search) undoFanOut(undo []undoAction) {
	for i := len(undo) - 1; i >= 0; i-- {
		a := undo[i]
		n := s.nodes[a.key]
		if n == nil {
			continue
		}
		if len(n.contributions) > 0 {
			n.contributions = n.contributions[:len(n.contributions)-1]
		}
		if a.newNode {
			delete(s.nodes, a.key)
			s.order = s.order[:len(s.order)-1]
			continue
		}
		n.specifier = a.prevSpec
	}
}

func (n *node) lastContribution() ConflictStep {
	if len(n.contributions) == 0 {
		return ConflictStep{DefiningIsRoot: true, Required: n.dep, Specifier: n.specifier}
	}
	return n.contributions[len(n.contributions)-1]
}

// recordTerminalConflict records that n could not be assigned at all,
// against the dependency that most recently contributed to its
// specifier, and returns the IncompatibleRequirementsError the caller
// ultimately surfaces.
func (s *search) recordTerminalConflict(n *node, cause error) error {
	last := n.lastContribution()
	if last.DefiningIsRoot {
		s.rc.RecordConflict(n.dep, nil, Dependency{}, nil, true, cause)
	} else {
		s.rc.RecordConflict(n.dep, nil, last.Defining, nil, false, cause)
	}
	s.sink.rejected(n.dep, nil, n.specifier, last.Defining, last.DefiningIsRoot)

	chain := s.lastConflict
	if len(chain) == 0 {
		chain = n.contributions
	}
	return &IncompatibleRequirementsError{Chain: chain}
}
