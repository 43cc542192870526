package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPtr(t *testing.T) {
	temp := Ptr(0.7)
	require.NotNil(t, temp)
	assert.Equal(t, 0.7, *temp)

	model := Ptr("gpt-4o")
	require.NotNil(t, model)
	assert.Equal(t, "gpt-4o", *model)

	timeout := Ptr(30 * time.Second)
	require.NotNil(t, timeout)
	assert.Equal(t, 30*time.Second, *timeout)
}

func TestPtr_IndependentCopies(t *testing.T) {
	n := 1
	p := Ptr(n)
	n = 2
	assert.Equal(t, 1, *p)
}
