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
	"fmt"
	"strings"
)

// InvalidDependencyError reports that a Dependency value could not be
// used, e.g. an empty or malformed identity handed to Resolve.
type InvalidDependencyError struct {
	Dependency Dependency
	Reason     string
}

func (e *InvalidDependencyError) Error() string {
	return fmt.Sprintf("invalid dependency %v: %s", e.Dependency, e.Reason)
}

// DuplicateLocation names one requirement edge that was recorded more
// than once while inverting the requirements multi-map.
type DuplicateLocation struct {
	// Defining is the dependency that declared the requirement; the zero
	// Dependency together with DefiningIsRoot means the root cartfile.
	Defining       Dependency
	DefiningIsRoot bool
	Required       Dependency
}

func (d DuplicateLocation) String() string {
	if d.DefiningIsRoot {
		return fmt.Sprintf("root -> %v", d.Required)
	}
	return fmt.Sprintf("%v -> %v", d.Defining, d.Required)
}

// DuplicateDependenciesError reports that the same (definer, required)
// edge was observed more than once -- an invariant violation rather
// than a resolvable conflict.
type DuplicateDependenciesError struct {
	Locations []DuplicateLocation
}

func (e *DuplicateDependenciesError) Error() string {
	locs := make([]string, len(e.Locations))
	for i, l := range e.Locations {
		locs[i] = l.String()
	}
	return fmt.Sprintf("duplicate dependency requirements: %s", strings.Join(locs, "; "))
}

// ConflictStep is one edge of the requirement chain that made a
// resolution impossible: the dependency that declared
// Specifier against Required, and (if the search had already committed
// to a version for Required) the ObservedPin that failed to satisfy it.
type ConflictStep struct {
	Defining       Dependency
	DefiningIsRoot bool
	Required       Dependency
	Specifier      VersionSpecifier
	ObservedPin    *PinnedVersion
}

func (c ConflictStep) String() string {
	definer := "root"
	if !c.DefiningIsRoot {
		definer = c.Defining.String()
	}
	if c.ObservedPin != nil {
		return fmt.Sprintf("%s requires %v %s, but %v is pinned to %s",
			definer, c.Required, c.Specifier, c.Required, c.ObservedPin)
	}
	return fmt.Sprintf("%s requires %v %s", definer, c.Required, c.Specifier)
}

// IncompatibleRequirementsError is the resolver's primary failure mode:
// the requirement chain that could not be jointly satisfied, extracted
// from the conflict cache.
type IncompatibleRequirementsError struct {
	Chain []ConflictStep
}

func (e *IncompatibleRequirementsError) Error() string {
	steps := make([]string, len(e.Chain))
	for i, c := range e.Chain {
		steps[i] = c.String()
	}
	return fmt.Sprintf("incompatible requirements: %s", strings.Join(steps, "; and "))
}

// MissingRequirementError reports that a dependency named in
// dependenciesToUpdate (or in a prior lastResolved map) has no
// corresponding entry reachable from the top-level requirements.
type MissingRequirementError struct {
	Name string
}

func (e *MissingRequirementError) Error() string {
	return fmt.Sprintf("missing requirement: no dependency named %q in this resolution", e.Name)
}

// CancelledError is returned when the caller's cancellation flag was
// observed set.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "resolution cancelled" }

// InternalInvariantViolationError reports a condition the core asserts
// can never happen (e.g. a conflict cache entry referencing a
// dependency never assigned). Seeing one always indicates a bug in this
// module, never bad input.
type InternalInvariantViolationError struct {
	Message string
}

func (e *InternalInvariantViolationError) Error() string {
	return fmt.Sprintf("internal invariant violation: %s", e.Message)
}
