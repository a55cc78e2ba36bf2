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

/*
Package crawler implements a read-only explorer of the dependency
universe a Retriever exposes. Unlike a Resolver, which
assigns one concrete version per dependency, a Crawler visits every
reachable (dependency, version) pair and persists what it finds through
an injected Store -- useful for building offline snapshots or ecosystem
graphs independent of any particular set of top-level requirements.
*/
package crawler

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"go.uber.org/multierr"

	"github.com/cartfile-dev/resolve"
)

// AnonymizeFunc rewrites a Dependency before it is persisted, e.g. to
// redact a private host or owner name from a shared snapshot. The
// identity function performs no rewriting.
type AnonymizeFunc func(resolve.Dependency) resolve.Dependency

// Option configures a Crawler.
type Option func(*Crawler)

// WithIgnoreErrors makes the crawler treat a Retriever failure as an
// empty result for that node rather than aborting the traversal.
func WithIgnoreErrors(ignore bool) Option {
	return func(c *Crawler) { c.ignoreErrors = ignore }
}

// WithAnonymizer installs fn to rewrite every Dependency immediately
// before it reaches the Store.
func WithAnonymizer(fn AnonymizeFunc) Option {
	return func(c *Crawler) { c.anonymize = fn }
}

// WithLogger installs a structured logger for traversal tracing.
func WithLogger(logger hclog.Logger) Option {
	return func(c *Crawler) {
		if logger == nil {
			logger = hclog.NewNullLogger()
		}
		c.logger = logger
	}
}

// visitKey identifies one (dependency, version) pair already visited.
type visitKey struct {
	dep     string
	version string
}

// versionLookupKey identifies one cached call to the version-discovery
// half of the Retriever, keyed by dependency and, when the crawl
// started from a GitReference, the ref that was resolved.
type versionLookupKey struct {
	dep string
	ref string
}

// Crawler performs a depth-first, read-only traversal of everything
// reachable from a starting Dependency. It shares its
// Retriever with the Resolver but keeps an entirely separate, simpler
// cache: a crawl never backtracks, so there is no conflict cache and no
// problematic-dependency histogram.
type Crawler struct {
	retriever resolve.Retriever
	store     Store
	logger    hclog.Logger

	ignoreErrors bool
	anonymize    AnonymizeFunc

	visited  map[visitKey]bool
	versions map[versionLookupKey][]*resolve.PinnedVersion

	// ignored accumulates every Retriever failure swallowed by
	// ignoreErrors, combined with multierr so a caller can inspect the
	// full set of skipped nodes after a crawl instead of only the first.
	ignored error
}

// Errors returns every Retriever failure ignoreErrors caused this Crawler
// to swallow during its traversal, combined with multierr. It is nil
// unless WithIgnoreErrors(true) was used and at least one lookup failed.
func (c *Crawler) Errors() error { return c.ignored }

// NewCrawler constructs a Crawler over retriever, persisting discoveries
// to store.
func NewCrawler(retriever resolve.Retriever, store Store, opts ...Option) *Crawler {
	c := &Crawler{
		retriever: retriever,
		store:     store,
		logger:    hclog.NewNullLogger(),
		anonymize: func(d resolve.Dependency) resolve.Dependency { return d },
		visited:   make(map[visitKey]bool),
		versions:  make(map[versionLookupKey][]*resolve.PinnedVersion),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl visits dep and everything transitively reachable from it,
// filtered by specifier, persisting each discovery to the Crawler's
// Store.
func (c *Crawler) Crawl(ctx context.Context, dep resolve.Dependency, specifier resolve.VersionSpecifier) error {
	ref := ""
	if specifier.Kind == resolve.KindGitReference {
		ref = specifier.Ref
	}
	versions, err := c.findVersions(ctx, dep, ref)
	if err != nil {
		if c.ignoreErrors {
			c.logger.Debug("ignoring version lookup failure", "dependency", dep, "error", err)
			c.ignored = multierr.Append(c.ignored, fmt.Errorf("versions for %v: %w", dep, err))
			return nil
		}
		return fmt.Errorf("crawl %v: %w", dep, err)
	}

	set := resolve.NewConcreteVersionSet()
	for _, v := range versions {
		set.Insert(resolve.ConcreteVersion{PinnedVersion: v})
	}
	effective := specifier
	if ref != "" && len(versions) == 1 {
		effective = resolve.GitReference(versions[0].Commitish)
	}
	set.RetainCompatible(effective)

	if err := c.store.SaveVersions(c.anonymize(dep), specifier, set.Versions()); err != nil {
		return fmt.Errorf("persist versions for %v: %w", dep, err)
	}

	for _, v := range set.Versions() {
		if err := c.visit(ctx, dep, v.PinnedVersion); err != nil {
			return err
		}
	}
	return nil
}

func (c *Crawler) findVersions(ctx context.Context, dep resolve.Dependency, ref string) ([]*resolve.PinnedVersion, error) {
	key := versionLookupKey{dep: dep.Description(), ref: ref}
	if cached, ok := c.versions[key]; ok {
		return cached, nil
	}

	var vs []*resolve.PinnedVersion
	var err error
	if ref != "" {
		vs, err = c.retriever.ResolvedGitReference(ctx, dep, ref)
	} else {
		vs, err = c.retriever.Versions(ctx, dep)
	}
	if err != nil {
		return nil, err
	}
	c.versions[key] = vs
	return vs, nil
}

// visit recursively explores dep@v's own direct dependencies.
func (c *Crawler) visit(ctx context.Context, dep resolve.Dependency, v *resolve.PinnedVersion) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	key := visitKey{dep: dep.Description(), version: v.Commitish}
	if c.visited[key] {
		return nil
	}
	c.visited[key] = true

	edges, err := c.retriever.Dependencies(ctx, dep, v)
	if err != nil {
		if c.ignoreErrors {
			c.logger.Debug("ignoring dependency lookup failure", "dependency", dep, "version", v, "error", err)
			c.ignored = multierr.Append(c.ignored, fmt.Errorf("dependencies for %v@%s: %w", dep, v, err))
			return nil
		}
		return fmt.Errorf("crawl %v@%s: %w", dep, v, err)
	}

	anonEdges := make([]resolve.RequirementEdge, len(edges))
	for i, e := range edges {
		anonEdges[i] = resolve.RequirementEdge{Requires: c.anonymize(e.Requires), Specifier: e.Specifier}
	}
	if err := c.store.SaveDependencies(c.anonymize(dep), v, anonEdges); err != nil {
		return fmt.Errorf("persist dependencies for %v@%s: %w", dep, v, err)
	}

	for _, e := range edges {
		if err := c.Crawl(ctx, e.Requires, e.Specifier); err != nil {
			return err
		}
	}
	return nil
}
