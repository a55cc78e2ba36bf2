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
	"sort"
	"strings"
)

// WriteResolvedCartfile renders assignment as a Cartfile.resolved-style
// listing: one line per dependency, `<dep-description>
// "<commitish>"`, sorted ascending by dependency description, with a
// trailing newline.
func WriteResolvedCartfile(assignment map[Dependency]*PinnedVersion) string {
	deps := make([]Dependency, 0, len(assignment))
	for d := range assignment {
		deps = append(deps, d)
	}
	sort.Slice(deps, func(i, j int) bool { return deps[i].Description() < deps[j].Description() })

	var b strings.Builder
	for _, d := range deps {
		fmt.Fprintf(&b, "%s %q\n", d.Description(), assignment[d].Commitish)
	}
	return b.String()
}
