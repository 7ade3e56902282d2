// Package access is the role and capability model: a static table from tenant
// role to default surfaces, widened by per-grant special access and narrowed
// by the admin restriction. Everything here is pure.
package access

import (
	"sort"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

// Set is a set of surfaces.
type Set map[models.Surface]struct{}

// NewSet builds a set from the known surfaces in list. Unknown names are dropped.
func NewSet(list ...models.Surface) Set {
	s := make(Set, len(list))
	for _, surface := range list {
		if surface.IsKnown() {
			s[surface] = struct{}{}
		}
	}
	return s
}

// Has reports whether surface is in the set.
func (s Set) Has(surface models.Surface) bool {
	_, ok := s[surface]
	return ok
}

// Union returns a new set with the members of both.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Contains reports whether every member of other is in s.
func (s Set) Contains(other Set) bool {
	for k := range other {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// Slice returns the members in the order of models.Surfaces.
func (s Set) Slice() []models.Surface {
	out := make([]models.Surface, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return surfaceIndex(out[i]) < surfaceIndex(out[j])
	})
	return out
}

func surfaceIndex(s models.Surface) int {
	for i, known := range models.Surfaces {
		if known == s {
			return i
		}
	}
	return len(models.Surfaces)
}

// ParseSurfaces converts raw strings, dropping unknown names.
func ParseSurfaces(raw []string) []models.Surface {
	out := make([]models.Surface, 0, len(raw))
	for _, r := range raw {
		s := models.Surface(r)
		if s.IsKnown() {
			out = append(out, s)
		}
	}
	return out
}
