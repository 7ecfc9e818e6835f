package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPointerHelpers(t *testing.T) {
	assert.Equal(t, "x", *StringPtr("x"))
	assert.Equal(t, 42, *IntPtr(42))
	assert.True(t, *BoolPtr(true))

	now := time.Now()
	assert.True(t, TimePtr(now).Equal(now))
}

func TestPointerHelpers_Distinct(t *testing.T) {
	a, b := StringPtr("same"), StringPtr("same")
	assert.NotSame(t, a, b)
}
