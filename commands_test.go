package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewalTimerIsOptInOutsideReconcile(t *testing.T) {
	for _, cmd := range []*cobra.Command{newServeCommand(), newWorkerCommand()} {
		f := cmd.Flags().Lookup("with-scheduler")
		require.NotNil(t, f, cmd.Use)
		assert.Equal(t, "false", f.DefValue, cmd.Use)
	}

	once := newReconcileCommand().Flags().Lookup("once")
	require.NotNil(t, once)
	assert.Equal(t, "false", once.DefValue)
}
