package backend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumlabs/council/pkg/backend"
)

func TestSuccessAndAbsent(t *testing.T) {
	ok := backend.Success("fine")
	assert.True(t, ok.OK)
	assert.Equal(t, "fine", ok.Content)

	absent := backend.Absent()
	assert.False(t, absent.OK)
	assert.Empty(t, absent.Content)
}

func TestResultSet_InsertionOrder(t *testing.T) {
	set := backend.NewResultSet()
	set.Set("gamma", backend.Success("g"))
	set.Set("alpha", backend.Absent())
	set.Set("beta", backend.Success("b"))

	assert.Equal(t, []string{"gamma", "alpha", "beta"}, set.Models())
	assert.Equal(t, 3, set.Len())
}

func TestResultSet_OverwriteKeepsPosition(t *testing.T) {
	set := backend.NewResultSet()
	set.Set("a", backend.Absent())
	set.Set("b", backend.Success("b"))
	set.Set("a", backend.Success("retried"))

	assert.Equal(t, []string{"a", "b"}, set.Models())
	r, ok := set.Get("a")
	require.True(t, ok)
	assert.Equal(t, "retried", r.Content)
}

func TestResultSet_Succeeded(t *testing.T) {
	set := backend.NewResultSet()
	set.Set("a", backend.Success("a"))
	set.Set("b", backend.Absent())
	set.Set("c", backend.Success("c"))

	assert.Equal(t, []string{"a", "c"}, set.Succeeded())
}

func TestResultSet_EachStopsEarly(t *testing.T) {
	set := backend.NewResultSet()
	set.Set("a", backend.Success("a"))
	set.Set("b", backend.Success("b"))

	var seen []string
	set.Each(func(model string, _ backend.Result) bool {
		seen = append(seen, model)
		return false
	})

	assert.Equal(t, []string{"a"}, seen)
}

func TestResultSet_GetMissing(t *testing.T) {
	set := backend.NewResultSet()

	_, ok := set.Get("nope")
	assert.False(t, ok)
}
