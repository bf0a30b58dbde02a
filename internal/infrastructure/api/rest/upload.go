package rest

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smilemakc/mcqflow/internal/application/artifact"
	"github.com/smilemakc/mcqflow/internal/infrastructure/logger"
)

// UploadHandlers accepts the template/marking-scheme/answer-sheet images
// the four job kinds reference by path, storing them under the shared
// artifact store.
type UploadHandlers struct {
	store *artifact.Store
	log   *logger.Logger
}

func NewUploadHandlers(store *artifact.Store, log *logger.Logger) *UploadHandlers {
	return &UploadHandlers{store: store, log: log}
}

// Upload stores the "file" multipart field under the "dir" form field
// plus a sanitized, uniqued basename, returning the relative path callers
// use as *_path in job submission requests.
func (h *UploadHandlers) Upload(c *gin.Context) {
	dir := c.PostForm("dir")
	if dir == "" {
		respondAPIErrorWithRequestID(c, ErrMissingParameter)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondAPIErrorWithRequestID(c, ErrBadRequest)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondAPIErrorWithRequestID(c, fmt.Errorf("upload: open multipart file: %w", err))
		return
	}
	defer f.Close()

	relPath := artifact.NamePath(dir, fileHeader.Filename)
	checksum, size, err := h.store.Save(c.Request.Context(), relPath, f)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, gin.H{
		"path":     relPath,
		"checksum": checksum,
		"size":     size,
	})
}
