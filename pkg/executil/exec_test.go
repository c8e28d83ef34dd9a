package executil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealExecutorCapturesStdout(t *testing.T) {
	if !LookPath("sh") {
		t.Skip("sh not available")
	}
	exec := &RealExecutor{}

	out, err := exec.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(out))
}

func TestRealExecutorReportsStderr(t *testing.T) {
	if !LookPath("sh") {
		t.Skip("sh not available")
	}
	exec := &RealExecutor{}

	_, err := exec.Run(context.Background(), "sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestRecordingExecutor(t *testing.T) {
	boom := errors.New("boom")
	exec := &RecordingExecutor{
		Outputs: map[string][]byte{"claude": []byte("hi")},
		Errors:  map[string]error{"git": boom},
	}

	out, err := exec.Run(context.Background(), "claude", "-p", "x")
	require.NoError(t, err)
	assert.Equal(t, "hi", string(out))

	_, err = exec.Run(context.Background(), "git", "status")
	require.ErrorIs(t, err, boom)

	last, ok := exec.Last()
	require.True(t, ok)
	assert.Equal(t, "git", last.Cmd)
	assert.Equal(t, []string{"status"}, last.Args)
	assert.Len(t, exec.Commands, 2)
}
