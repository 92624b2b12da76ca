package main

import (
	"bytes"
	"context"
	"testing"

	"airdc_upload_monitor/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	out := logger.Log.Out
	logger.Log.SetOutput(&buf)
	t.Cleanup(func() { logger.Log.SetOutput(out) })
	return &buf
}

func TestRootCommand_RejectsArguments(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"unexpected"})

	err := root.Execute()
	assert.Error(t, err)
}

func TestRootCommand_HasTestNotification(t *testing.T) {
	root := newRootCommand()

	cmd, _, err := root.Find([]string{"test-notification"})
	require.NoError(t, err)
	assert.Equal(t, "test-notification", cmd.Name())
}

func TestExecute_LogsCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown command", []string{"bogus"}, `unknown command \"bogus\"`},
		{"extra argument", []string{"test-notification", "now"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLog(t)
			root := newRootCommand()
			root.SetArgs(tt.args)

			code := execute(context.Background(), root)

			assert.Equal(t, 1, code)
			assert.Contains(t, logs.String(), "Command failed")
			assert.Contains(t, logs.String(), tt.want)
		})
	}
}

func TestExecute_SuccessReturnsZero(t *testing.T) {
	logs := captureLog(t)
	root := newRootCommand()
	root.SetArgs([]string{"help"})
	root.SetOut(&bytes.Buffer{})

	assert.Equal(t, 0, execute(context.Background(), root))
	assert.NotContains(t, logs.String(), "Command failed")
}
