package fileingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/plain", DetectContentType("notes.txt"))
	assert.Equal(t, "text/plain", DetectContentType("README.md"))
	assert.Equal(t, "text/html", DetectContentType("page.HTML"))
	assert.Equal(t, "text/html", DetectContentType("page.htm"))
	assert.Equal(t, "text/plain", DetectContentType("data.bin"))
}

func TestTitleFromPath(t *testing.T) {
	assert.Equal(t, "proposal", TitleFromPath("/tmp/docs/proposal.md"))
	assert.Equal(t, "rfp", TitleFromPath("rfp.html"))
	assert.Equal(t, "bare", TitleFromPath("bare"))
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("# a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.html"), []byte("<p>b</p>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.pdf"), []byte("%PDF"), 0o644))

	files, err := DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)

	var names []string
	for _, f := range files {
		names = append(names, f.Name)
		assert.Greater(t, f.Size, int64(0))
	}
	assert.ElementsMatch(t, []string{"a.md", "b.html"}, names)
}
