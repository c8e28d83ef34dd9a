package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownClosesLogWhenAppCloseFails(t *testing.T) {
	boom := errors.New("database is locked")
	logClosed := false

	err := shutdown(func() error { return boom }, func() { logClosed = true })
	require.ErrorIs(t, err, boom)
	assert.True(t, logClosed)

	logClosed = false
	require.NoError(t, shutdown(func() error { return nil }, func() { logClosed = true }))
	assert.True(t, logClosed)

	require.NoError(t, shutdown(func() error { return nil }, nil))
}

func TestBuildFormatsVersion(t *testing.T) {
	assert.Contains(t, build(), "(")
}
