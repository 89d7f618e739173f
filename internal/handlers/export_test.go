package handlers

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idea-forge/internal/forge"
)

func TestWriteSessionArchive(t *testing.T) {
	state := forge.SessionState{
		ID:   "abc123",
		Idea: "a recipe app",
		Artifacts: []forge.Artifact{
			{ID: "market_1", Role: forge.RoleMarket, Title: "Market Study", Summary: "Crowded.", Content: "# Market", Kind: forge.KindText},
			{ID: "synthesis_1", Role: forge.RoleSynthesis, Title: "Master Prototype", Summary: "UI.", Content: "<html></html>", Kind: forge.KindPrototype},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeSessionArchive(&buf, state))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		files[f.Name] = string(body)
	}

	require.Len(t, files, 3)

	md, ok := files["01-market-study.md"]
	require.True(t, ok, "missing markdown entry, got %v", keys(files))
	assert.Contains(t, md, "# Market Study")
	assert.Contains(t, md, "Market Analyst")
	assert.Contains(t, md, "# Market")

	html, ok := files["02-master-prototype.html"]
	require.True(t, ok)
	assert.Equal(t, "<html></html>", html)

	assert.Contains(t, files["session.json"], `"abc123"`)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Market Study", "market-study"},
		{"  API Spec!  ", "api-spec"},
		{"---", "artifact"},
		{"", "artifact"},
		{"Données_v2", "donnes-v2"},
	}
	for _, tt := range tests {
		if got := slugify(tt.in); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
