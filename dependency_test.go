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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencyEqual(t *testing.T) {
	a := NewGitHubDependency("", "alamofire", "alamofire")
	b := NewGitHubDependency("github.com", "alamofire", "alamofire")
	c := NewGitHubDependency("github.com", "alamofire", "other")

	assert.True(t, a.Equal(b), "default host should equal explicit github.com")
	assert.False(t, a.Equal(c))

	git1 := NewGitDependency("https://example.com/x.git", "x")
	git2 := NewGitDependency("https://example.com/x.git", "renamed")
	assert.True(t, git1.Equal(git2), "Name is descriptive only and must not affect equality")
}

func TestDependencyCompareIsTotalOrder(t *testing.T) {
	deps := []Dependency{
		NewGitHubDependency("", "a", "a"),
		NewGitHubDependency("", "a", "b"),
		NewGitDependency("https://example.com/a.git", "a"),
		NewBinaryDependency("https://example.com/a.json", "a"),
	}
	for i, d := range deps {
		for j, e := range deps {
			got := d.Compare(e)
			want := -e.Compare(d)
			if i == j {
				assert.Equal(t, 0, got)
				continue
			}
			assert.Equal(t, want, got, "Compare(%v, %v) should be antisymmetric", d, e)
		}
	}
}

func TestDependencyDescription(t *testing.T) {
	gh := NewGitHubDependency("", "alamofire", "alamofire")
	assert.Equal(t, `github "alamofire/alamofire"`, gh.Description())

	g := NewGitDependency("https://example.com/x.git", "x")
	assert.Equal(t, `git "https://example.com/x.git"`, g.Description())

	b := NewBinaryDependency("https://example.com/x.json", "x")
	assert.Equal(t, `binary "https://example.com/x.json"`, b.Description())
}
