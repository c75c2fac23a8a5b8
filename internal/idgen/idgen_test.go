package idgen

import (
	"testing"

	"github.com/brikx/coach/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	node, err := NewNode(config.Config{SnowflakeNode: 7})
	require.NoError(t, err)
	assert.NotEqual(t, node.Generate(), node.Generate())

	_, err = NewNode(config.Config{SnowflakeNode: 4096})
	assert.Error(t, err)
}
