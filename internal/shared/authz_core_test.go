package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopesAreDisjointAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range append(CoreScopes(), HRScopes()...) {
		assert.False(t, seen[name], "duplicate scope %s", name)
		seen[name] = true
	}
	assert.Len(t, seen, 14)
}
