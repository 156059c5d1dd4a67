package handlers

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
	arbormodels "github.com/ternarybob/arbor/models"
	"github.com/ternarybob/arbor/services/logviewer"
)

func TestSystemLogsHandler_Validation(t *testing.T) {
	service := logviewer.NewService(arbormodels.WriterConfiguration{
		Type:     arbormodels.LogWriterTypeFile,
		FileName: filepath.Join(t.TempDir(), "scimdash.log"),
	})
	h := NewSystemLogsHandler(service, arbor.NewLogger())

	rec := do(t, h.GetLogContentHandler, http.MethodGet, "/api/logs/content", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.GetLogContentHandler, http.MethodGet, "/api/logs/content?filename=scimdash.log&limit=-4", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h.ListLogFilesHandler, http.MethodPost, "/api/logs/files", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
