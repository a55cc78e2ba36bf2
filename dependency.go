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

import "fmt"

// SourceKind identifies the origin of a Dependency.
type SourceKind uint8

const (
	// UnknownSource is the zero value and never appears on a valid Dependency.
	UnknownSource SourceKind = iota
	// GitHubSource is a dependency hosted on a GitHub-compatible host.
	GitHubSource
	// GitSource is a dependency identified only by an arbitrary Git remote URL.
	GitSource
	// BinarySource is a dependency resolved from a hosted binary framework
	// definition, with no associated Git remote.
	BinarySource
)

func (k SourceKind) String() string {
	switch k {
	case GitHubSource:
		return "github"
	case GitSource:
		return "git"
	case BinarySource:
		return "binary"
	default:
		return "unknown"
	}
}

// Dependency is an opaque, structurally comparable identity for one
// dependency, tagged by its SourceKind. Equal reports two values equal
// iff their SourceKind and the fields relevant to that kind are equal;
// Name is descriptive only and does not participate in Equal beyond the
// GitHub case, where the repo name is part of the GitHub identity itself.
// Used directly as a Go map key, a Dependency compares every field,
// Name included.
type Dependency struct {
	Kind SourceKind

	// Host, Owner and Repo are set for GitHubSource.
	Host, Owner, Repo string

	// URL is set for GitSource and BinarySource.
	URL string

	// Name is a short, human-facing identifier (Cartfile "name"). It is
	// derived deterministically from the identity fields and is exposed
	// for display and for dependenciesToUpdate name matching.
	Name string
}

// NewGitHubDependency constructs a GitHubSource Dependency. host defaults
// to "github.com" when empty.
func NewGitHubDependency(host, owner, repo string) Dependency {
	if host == "" {
		host = "github.com"
	}
	return Dependency{
		Kind: GitHubSource, Host: host, Owner: owner, Repo: repo,
		Name: repo,
	}
}

// NewGitDependency constructs a GitSource Dependency identified by an
// arbitrary remote URL. name is the short display name.
func NewGitDependency(url, name string) Dependency {
	return Dependency{Kind: GitSource, URL: url, Name: name}
}

// NewBinaryDependency constructs a BinarySource Dependency identified by
// a hosted binary framework definition URL. name is the short display
// name.
func NewBinaryDependency(url, name string) Dependency {
	return Dependency{Kind: BinarySource, URL: url, Name: name}
}

// Equal reports whether d and o identify the same dependency.
func (d Dependency) Equal(o Dependency) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case GitHubSource:
		return d.Host == o.Host && d.Owner == o.Owner && d.Repo == o.Repo
	case GitSource, BinarySource:
		return d.URL == o.URL
	default:
		return false
	}
}

// Compare returns -1, 0 or 1, ordering first by SourceKind and then by
// the kind-specific identity fields. It gives a total, deterministic
// order suitable for sorting work lists and textual output.
func (d Dependency) Compare(o Dependency) int {
	if d.Kind != o.Kind {
		return compareInt(int(d.Kind), int(o.Kind))
	}
	switch d.Kind {
	case GitHubSource:
		if c := compareString(d.Host, o.Host); c != 0 {
			return c
		}
		if c := compareString(d.Owner, o.Owner); c != 0 {
			return c
		}
		return compareString(d.Repo, o.Repo)
	default:
		return compareString(d.URL, o.URL)
	}
}

func compareString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Description renders a canonical, parser-friendly identity string used
// in ResolvedCartfile output: github "owner/repo" or
// git/binary "url".
func (d Dependency) Description() string {
	switch d.Kind {
	case GitHubSource:
		return fmt.Sprintf("github %q", d.Owner+"/"+d.Repo)
	case GitSource:
		return fmt.Sprintf("git %q", d.URL)
	case BinarySource:
		return fmt.Sprintf("binary %q", d.URL)
	default:
		return fmt.Sprintf("unknown %q", d.Name)
	}
}

func (d Dependency) String() string { return d.Description() }
