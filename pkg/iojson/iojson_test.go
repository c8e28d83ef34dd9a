package iojson

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLines(t *testing.T) {
	var buf bytes.Buffer
	items := []map[string]string{{"id": "a"}, {"id": "b"}}

	require.NoError(t, WriteLines(&buf, items))
	assert.Equal(t, "{\"id\":\"a\"}\n{\"id\":\"b\"}\n", buf.String())
}

func TestWriteIndents(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, map[string]int{"n": 1}))
	assert.Equal(t, "{\n  \"n\": 1\n}\n", buf.String())
}

func TestWriteLineRejectsUnsupported(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteLine(&buf, make(chan int)))
	assert.Empty(t, buf.String())
}

func TestReadPipedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("  hello there \n"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	got, err := ReadPiped(f)
	require.NoError(t, err)
	assert.Equal(t, "hello there", got)
}
