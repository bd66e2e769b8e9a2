package fingerprint

import (
	"bytes"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderMatchesBytes(t *testing.T) {
	data := []byte("lab report content")

	got, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Bytes(data), got)
}

func TestReaderStableAcrossChunkBoundaries(t *testing.T) {
	// Larger than one read chunk, not a multiple of it.
	data := make([]byte, chunkSize*3+17)
	_, err := rand.Read(data)
	require.NoError(t, err)

	first, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)
	second, err := Reader(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, Bytes(data), first)
}

func TestSingleByteChangesFingerprint(t *testing.T) {
	data := []byte("report v1")
	other := []byte("report v2")

	assert.NotEqual(t, Bytes(data), Bytes(other))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	data := []byte("%PDF-1.4 fake")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes(data), got)

	_, err = File(filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}
