package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shipcat/shipcat/cmd"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := cmd.NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "apply")
	assert.Contains(t, names, "diff")
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "cluster")
}
