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
	"github.com/stretchr/testify/require"
)

func sv(t *testing.T, s string) SemanticVersion {
	t.Helper()
	v, err := ParseSemanticVersion(s)
	require.NoError(t, err)
	return v
}

func pin(t *testing.T, s string) *PinnedVersion {
	t.Helper()
	return NewPinnedVersion(s)
}

func TestIsSatisfiedByBoundaryBehaviours(t *testing.T) {
	tests := []struct {
		name string
		spec VersionSpecifier
		pin  string
		want bool
	}{
		{"CompatibleWith 0.1.0 accepts 0.1.1", CompatibleWith(sv(t, "0.1.0")), "0.1.1", true},
		{"CompatibleWith 0.1.0 rejects 0.2.0", CompatibleWith(sv(t, "0.1.0")), "0.2.0", false},
		{"CompatibleWith 0.1.0 rejects 0.1.0-pre", CompatibleWith(sv(t, "0.1.0")), "0.1.0-pre", false},
		{"AtLeast 2.0.2 rejects 2.1.1-alpha", AtLeast(sv(t, "2.0.2")), "2.1.1-alpha", false},
		{"AtLeast 2.0.2 accepts 2.1.1+build", AtLeast(sv(t, "2.0.2")), "2.1.1+build", true},
		{"Exactly 2.1.1 rejects 2.1.1+build", Exactly(sv(t, "2.1.1")), "2.1.1+build", false},
		{"Exactly 2.1.1 accepts 2.1.1", Exactly(sv(t, "2.1.1")), "2.1.1", true},
		{"Any rejects pre-release", Any(), "1.0.0-alpha", false},
		{"Any accepts non-semantic pin", Any(), "feature/x", true},
		{"AtLeast non-semantic pin trumps", AtLeast(sv(t, "9.0.0")), "feature/x", true},
		{"CompatibleWith non-semantic pin trumps", CompatibleWith(sv(t, "9.0.0")), "feature/x", true},
		{"Exactly non-semantic pin never satisfies", Exactly(sv(t, "9.0.0")), "feature/x", false},
		{"Empty never satisfies", Empty(), "1.0.0", false},
		{"GitReference matches byte-for-byte", GitReference("abc123"), "abc123", true},
		{"GitReference rejects different commit", GitReference("abc123"), "def456", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.spec.IsSatisfiedBy(pin(t, tt.pin))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntersectAnyIsIdentity(t *testing.T) {
	specs := []VersionSpecifier{
		Exactly(sv(t, "1.0.0")),
		AtLeast(sv(t, "1.0.0+build")),
		CompatibleWith(sv(t, "1.0.0+build")),
		GitReference("abc"),
		Empty(),
	}
	for _, s := range specs {
		got := Any().Intersect(s)
		want := s
		if s.Kind == KindAtLeast || s.Kind == KindCompatibleWith {
			want.Version = want.Version.DiscardingBuildMetadata()
		}
		assert.Equal(t, want.Kind, got.Kind)
		if want.Kind != KindEmpty && want.Kind != KindGitReference {
			assert.True(t, want.Version.Equal(got.Version))
		}
	}
}

func TestIntersectEmptyIsAbsorbing(t *testing.T) {
	specs := []VersionSpecifier{Any(), Exactly(sv(t, "1.0.0")), AtLeast(sv(t, "1.0.0")), CompatibleWith(sv(t, "1.0.0")), GitReference("abc")}
	for _, s := range specs {
		assert.Equal(t, KindEmpty, s.Intersect(Empty()).Kind)
		assert.Equal(t, KindEmpty, Empty().Intersect(s).Kind)
	}
}

func TestIntersectIsCommutative(t *testing.T) {
	specs := []VersionSpecifier{
		Any(), Empty(),
		Exactly(sv(t, "1.2.3")), Exactly(sv(t, "2.0.0")),
		AtLeast(sv(t, "1.0.0")), AtLeast(sv(t, "1.5.0")),
		CompatibleWith(sv(t, "1.0.0")), CompatibleWith(sv(t, "0.3.0")),
		GitReference("abc"), GitReference("def"),
	}
	for _, a := range specs {
		for _, b := range specs {
			got1 := a.Intersect(b)
			got2 := b.Intersect(a)
			assert.Equal(t, got1.Kind, got2.Kind, "Intersect(%v, %v) not commutative in kind", a, b)
			if got1.Kind != KindEmpty && got1.Kind != KindGitReference {
				assert.True(t, got1.Version.Equal(got2.Version), "Intersect(%v, %v) not commutative in version", a, b)
			}
		}
	}
}

func TestIntersectExactlyAtLeast(t *testing.T) {
	ex := Exactly(sv(t, "1.5.0"))
	al := AtLeast(sv(t, "1.0.0"))
	got := ex.Intersect(al)
	assert.Equal(t, KindExactly, got.Kind)
	assert.True(t, got.Version.Equal(sv(t, "1.5.0")))

	alTooHigh := AtLeast(sv(t, "2.0.0"))
	assert.Equal(t, KindEmpty, ex.Intersect(alTooHigh).Kind)
}

func TestIntersectAtLeastCompatible(t *testing.T) {
	tests := []struct {
		name     string
		al, cw   SemanticVersion
		wantKind SpecifierKind
	}{
		{"al major greater is empty", sv(t, "2.0.0"), sv(t, "1.0.0"), KindEmpty},
		{"al major lower widens to cw", sv(t, "1.0.0"), sv(t, "2.0.0"), KindCompatibleWith},
		{"equal major takes max", sv(t, "1.2.0"), sv(t, "1.0.0"), KindCompatibleWith},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AtLeast(tt.al).Intersect(CompatibleWith(tt.cw))
			assert.Equal(t, tt.wantKind, got.Kind)
		})
	}
}

func TestIntersectCompatibleCompatible(t *testing.T) {
	assert.Equal(t, KindEmpty, CompatibleWith(sv(t, "1.0.0")).Intersect(CompatibleWith(sv(t, "2.0.0"))).Kind)
	assert.Equal(t, KindEmpty, CompatibleWith(sv(t, "0.1.0")).Intersect(CompatibleWith(sv(t, "0.2.0"))).Kind)

	got := CompatibleWith(sv(t, "1.0.0")).Intersect(CompatibleWith(sv(t, "1.2.0")))
	require.Equal(t, KindCompatibleWith, got.Kind)
	assert.True(t, got.Version.Equal(sv(t, "1.2.0")))
}

func TestIntersectGitReferenceDominates(t *testing.T) {
	ref := GitReference("commitSHA")
	others := []VersionSpecifier{Any(), Exactly(sv(t, "1.0.0")), AtLeast(sv(t, "1.0.0")), CompatibleWith(sv(t, "1.0.0"))}
	for _, o := range others {
		got := ref.Intersect(o)
		require.Equal(t, KindGitReference, got.Kind, "GitReference must dominate %v", o)
		assert.Equal(t, "commitSHA", got.Ref)
	}

	sameRef := GitReference("commitSHA")
	assert.Equal(t, KindGitReference, ref.Intersect(sameRef).Kind)

	diffRef := GitReference("other")
	assert.Equal(t, KindEmpty, ref.Intersect(diffRef).Kind)
}

func TestIsSatisfiedAgreesWithIntersection(t *testing.T) {
	// Spec invariant 5: s1 ∩ s2 ⊨ v iff both s1 ⊨ v and s2 ⊨ v (modulo
	// the GitReference-dominance rule, tested separately above).
	specs := []VersionSpecifier{
		Any(),
		Exactly(sv(t, "1.2.0")),
		AtLeast(sv(t, "1.0.0")),
		CompatibleWith(sv(t, "1.0.0")),
	}
	versions := []string{"1.0.0", "1.2.0", "1.5.0", "2.0.0", "1.0.0-alpha"}

	for _, s1 := range specs {
		for _, s2 := range specs {
			inter := s1.Intersect(s2)
			for _, v := range versions {
				p := pin(t, v)
				want := s1.IsSatisfiedBy(p) && s2.IsSatisfiedBy(p)
				got := inter.IsSatisfiedBy(p)
				assert.Equal(t, want, got, "(%v ∩ %v) ⊨ %s should be %v", s1, s2, v, want)
			}
		}
	}
}

func TestIntersectAllEmptyIsAny(t *testing.T) {
	got := IntersectAll()
	assert.Equal(t, KindAny, got.Kind)
}

func TestVersionSpecifierString(t *testing.T) {
	assert.Equal(t, "", Any().String())
	assert.Equal(t, "[]", Empty().String())
	assert.Equal(t, "== 1.2.3", Exactly(sv(t, "1.2.3")).String())
	assert.Equal(t, ">= 1.2.3", AtLeast(sv(t, "1.2.3")).String())
	assert.Equal(t, "~> 1.2.3", CompatibleWith(sv(t, "1.2.3")).String())
	assert.Equal(t, `"main"`, GitReference("main").String())
}
