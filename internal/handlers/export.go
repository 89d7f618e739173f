package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"idea-forge/internal/forge"
	"idea-forge/internal/logging"
)

// ExportSession streams a ZIP of the session's artifacts: one markdown
// file per expert document, the prototype as HTML, and the raw session
// state as JSON.
// GET /api/sessions/:id/export
func (h *Handler) ExportSession(c *gin.Context) {
	state, ok := h.loadSession(c)
	if !ok {
		return
	}
	if len(state.Artifacts) == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "session has no artifacts to export"})
		return
	}

	var buf bytes.Buffer
	if err := writeSessionArchive(&buf, state); err != nil {
		logging.S().Errorf("failed to build export archive: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	filename := fmt.Sprintf("ideaforge-%s.zip", state.ID[:8])
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

func writeSessionArchive(buf *bytes.Buffer, state forge.SessionState) error {
	zw := zip.NewWriter(buf)

	for i, artifact := range state.Artifacts {
		name, body := exportFile(i, artifact)
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(body)); err != nil {
			return err
		}
	}

	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	w, err := zw.Create("session.json")
	if err != nil {
		return err
	}
	if _, err := w.Write(stateJSON); err != nil {
		return err
	}

	return zw.Close()
}

func exportFile(index int, artifact forge.Artifact) (name, body string) {
	if artifact.Kind == forge.KindPrototype {
		return fmt.Sprintf("%02d-%s.html", index+1, slugify(artifact.Title)), artifact.Content
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", artifact.Title)
	fmt.Fprintf(&b, "> %s — %s\n\n", artifact.Role.Label(), artifact.Summary)
	b.WriteString(artifact.Content)
	b.WriteString("\n")
	return fmt.Sprintf("%02d-%s.md", index+1, slugify(artifact.Title)), b.String()
}

func slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "artifact"
	}
	return slug
}
