package ingestion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_JSONRoundTrip(t *testing.T) {
	metadata := &Metadata{
		Filename:  "brief.pdf",
		Format:    FormatPDF,
		Timestamp: "2024-01-01T00:00:00Z",
		Hash:      "abcd1234",
	}

	jsonBytes, err := metadata.ToJSON()
	require.NoError(t, err)

	var decoded Metadata
	require.NoError(t, json.Unmarshal(jsonBytes, &decoded))
	assert.Equal(t, *metadata, decoded)
}

func TestComputeHash(t *testing.T) {
	hash1 := ComputeHash([]byte("test content"))
	hash2 := ComputeHash([]byte("different content"))

	assert.Len(t, hash1, 64)
	assert.NotEqual(t, hash1, hash2)
	assert.Equal(t, hash1, ComputeHash([]byte("test content")))
}

func TestNewMetadata(t *testing.T) {
	metadata := NewMetadata("test content", "brief.pdf")

	assert.Equal(t, "brief.pdf", metadata.Filename)
	_, err := time.Parse(time.RFC3339, metadata.Timestamp)
	assert.NoError(t, err)
	assert.Equal(t, ComputeHash([]byte("test content")), metadata.Hash)
}
