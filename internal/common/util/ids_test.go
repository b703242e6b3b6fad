package util

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewULID(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = NewULID()
	}

	for _, id := range ids {
		assert.Len(t, id, 26)
		assert.Equal(t, strings.ToLower(id), id)
	}
	assert.True(t, sort.StringsAreSorted(ids))
}
