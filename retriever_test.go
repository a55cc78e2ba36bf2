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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	dep := NewGitHubDependency("", "a", "a")

	notFound := &RetrieverError{Kind: RetrieverNotFound, Dependency: dep, Err: errors.New("no such tag")}
	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(fmt.Errorf("wrapped: %w", notFound)))

	network := &RetrieverError{Kind: RetrieverNetworkError, Dependency: dep, Err: errors.New("timeout")}
	assert.False(t, IsNotFound(network))

	assert.False(t, IsNotFound(errors.New("unrelated")))
}

func TestRetrieverErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &RetrieverError{Kind: RetrieverMalformedManifest, Dependency: NewGitDependency("u", "u"), Err: inner}
	assert.ErrorIs(t, err, inner)
}
