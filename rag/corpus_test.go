package rag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCorpus(t *testing.T) {
	input := strings.Join([]string{
		`{"text": "Clause 4.2 requires written notice.", "metadata": {"source": "contract.pdf", "page": 12}}`,
		``,
		`{"text": "Data must be retained for 7 years.", "metadata": {"id": "retention-1", "source": "policy.pdf"}}`,
	}, "\n")

	docs, err := ReadCorpus(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "chunk-0", docs[0].ID)
	assert.Equal(t, "Clause 4.2 requires written notice.", docs[0].Content)
	assert.Equal(t, "contract.pdf", docs[0].Metadata["source"])

	// metadata 中的 id 优先于自动编号
	assert.Equal(t, "retention-1", docs[1].ID)
}

func TestReadCorpus_MalformedLine(t *testing.T) {
	_, err := ReadCorpus(strings.NewReader(`{"text": "ok"}` + "\n" + `not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadCorpus_EmptyText(t *testing.T) {
	_, err := ReadCorpus(strings.NewReader(`{"text": "", "metadata": {}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty text")
}

func TestLoadCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunks.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"text": "hello", "metadata": {}}`+"\n"), 0o644))

	docs, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello", docs[0].Content)

	_, err = LoadCorpus(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.Error(t, err)
}
