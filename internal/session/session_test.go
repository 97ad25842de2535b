package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagSet(t *testing.T) {
	var f Flag
	assert.False(t, f.Active())
	assert.True(t, f.Set(true))
	assert.False(t, f.Set(true))
	assert.True(t, f.Active())
	assert.True(t, f.Set(false))
	assert.False(t, f.Active())
}

func TestContextValue(t *testing.T) {
	ctx := context.Background()
	assert.False(t, Active(ctx))
	assert.True(t, Active(WithActive(ctx, true)))
	assert.False(t, Active(WithActive(WithActive(ctx, true), false)))
}
