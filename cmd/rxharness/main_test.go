package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/rxharness/internal/cmd"
)

func TestRootCommandBuilds(t *testing.T) {
	root := cmd.NewRootCommand()
	assert.Equal(t, "rxharness", root.Use)
	assert.NotEmpty(t, root.Version)
}
