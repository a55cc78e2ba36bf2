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
	"errors"
	"fmt"
)

// RequirementEdge is one direct dependency returned by a Retriever: dep
// requires Requires, constrained by Specifier.
type RequirementEdge struct {
	Requires  Dependency
	Specifier VersionSpecifier
}

// Retriever is the core's only inbound collaborator: it is
// the abstract source of version lists, transitive dependency fan-out,
// and git-reference resolution. The core performs no I/O of its own; an
// implementation of Retriever is expected to do the network or Git
// plumbing work and is out of scope for this module (see memoryretriever.go's
// MemoryRetriever for the in-memory test double used throughout this
// package's own tests).
//
// All streams are collected fully by callers before use: a
// Retriever may block or stream internally, but it must return a finite
// result.
type Retriever interface {
	// Versions returns every known version of dep, in no particular
	// order; the Resolver sorts them through ConcreteVersionSet.
	Versions(ctx context.Context, dep Dependency) ([]*PinnedVersion, error)

	// Dependencies returns the direct dependencies of dep pinned at
	// pinned.
	Dependencies(ctx context.Context, dep Dependency, pinned *PinnedVersion) ([]RequirementEdge, error)

	// ResolvedGitReference resolves a branch or tag name to the
	// commit(s) it currently points to. At most one result is expected;
	// it is a stream only for interface uniformity with Versions.
	ResolvedGitReference(ctx context.Context, dep Dependency, ref string) ([]*PinnedVersion, error)

	// ResolvedCommitHash synchronously resolves ref (a branch, tag, or
	// already-a-commit string) to a commit hash for dep. It is used by
	// CompatibilityInfo's effective-specifier computation.
	ResolvedCommitHash(ctx context.Context, ref string, dep Dependency) (string, error)
}

// RetrieverErrorKind classifies a RetrieverError.
type RetrieverErrorKind uint8

const (
	// RetrieverNetworkError indicates a transport-level failure.
	RetrieverNetworkError RetrieverErrorKind = iota
	// RetrieverNotFound indicates the dependency, version or reference
	// does not exist as far as the Retriever can tell.
	RetrieverNotFound
	// RetrieverMalformedManifest indicates the dependency's own manifest
	// (e.g. its Cartfile) could not be parsed.
	RetrieverMalformedManifest
)

func (k RetrieverErrorKind) String() string {
	switch k {
	case RetrieverNetworkError:
		return "network"
	case RetrieverNotFound:
		return "not-found"
	case RetrieverMalformedManifest:
		return "malformed-manifest"
	default:
		return "unknown"
	}
}

// RetrieverError is the typed error a Retriever implementation returns.
// Resolve returns one unchanged only when it comes from computing the
// update closure. A Retriever error of any kind met during the search
// itself is not returned: it is reported through the matching
// EventFailedRetrieving* event, the dependency or candidate is treated
// as dead, and a search that runs out of candidates fails with an
// IncompatibleRequirementsError.
type RetrieverError struct {
	Kind       RetrieverErrorKind
	Dependency Dependency
	Err        error
}

func (e *RetrieverError) Error() string {
	return fmt.Sprintf("retriever: %s: %s: %v", e.Kind, e.Dependency, e.Err)
}

func (e *RetrieverError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a RetrieverError of kind
// RetrieverNotFound.
func IsNotFound(err error) bool {
	var re *RetrieverError
	if errors.As(err, &re) {
		return re.Kind == RetrieverNotFound
	}
	return false
}
