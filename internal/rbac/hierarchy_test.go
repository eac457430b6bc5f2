package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func principalWithLevels(levels ...int) Principal {
	p := Principal{ID: 1}
	for i, level := range levels {
		p.Roles = append(p.Roles, RoleRef{ID: int64(i + 1), Name: "r", HierarchyLevel: level})
	}
	return p
}

func TestEffectiveLevel(t *testing.T) {
	assert.Equal(t, LowestAuthorityLevel, EffectiveLevel(Principal{}))
	assert.Equal(t, 5, EffectiveLevel(principalWithLevels(50, 5, 10)))
	assert.Equal(t, 1, EffectiveLevel(principalWithLevels(99, 1)))
}

func TestIsTopAuthority(t *testing.T) {
	assert.True(t, IsTopAuthority(principalWithLevels(10, 1)))
	assert.False(t, IsTopAuthority(principalWithLevels(2)))
	assert.False(t, IsTopAuthority(Principal{}))
}

func TestDominatesMonotonicity(t *testing.T) {
	for target := TopAuthorityLevel; target <= LowestAuthorityLevel; target++ {
		assert.True(t, Dominates(TopAuthorityLevel, target), "top authority must dominate level %d", target)
	}
	for actor := 2; actor <= LowestAuthorityLevel; actor++ {
		for target := TopAuthorityLevel; target <= LowestAuthorityLevel; target++ {
			assert.Equal(t, target > actor, Dominates(actor, target), "actor %d target %d", actor, target)
		}
	}
}

func TestNoSelfEscalation(t *testing.T) {
	hr := principalWithLevels(5)
	assert.False(t, CanManageLevel(hr, 5))
	assert.False(t, CanManageLevel(hr, 3))
	assert.True(t, CanManageLevel(hr, 6))

	nobody := Principal{}
	assert.False(t, CanManageLevel(nobody, LowestAuthorityLevel))
}

func TestValidLevel(t *testing.T) {
	assert.False(t, ValidLevel(0))
	assert.True(t, ValidLevel(1))
	assert.True(t, ValidLevel(99))
	assert.False(t, ValidLevel(100))
}
