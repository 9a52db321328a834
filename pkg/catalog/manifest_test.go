package catalog

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAssetIDs(t *testing.T) {
	manifest := []byte(`[
		{"id": "abcd-1234", "name": "first"},
		{"id": "efgh-5678"},
		{"name": "no-id-here"},
		"not-an-object",
		{"id": ""},
		{"id": "abcd-1234"}
	]`)

	ids, err := ExtractAssetIDs(manifest, zerolog.Nop())
	require.NoError(t, err)

	// Bad records are skipped; duplicates are kept and processed
	// independently. Order follows the manifest.
	assert.Equal(t, []string{"abcd-1234", "efgh-5678", "abcd-1234"}, ids)
}

func TestExtractAssetIDs_TopLevelNotArray(t *testing.T) {
	_, err := ExtractAssetIDs([]byte(`{"id": "abcd-1234"}`), zerolog.Nop())
	require.Error(t, err)
}

func TestExtractAssetIDs_MalformedJSON(t *testing.T) {
	_, err := ExtractAssetIDs([]byte(`[{"id": `), zerolog.Nop())
	require.Error(t, err)
}

func TestExtractAssetIDs_EmptyManifest(t *testing.T) {
	ids, err := ExtractAssetIDs([]byte(`[]`), zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
