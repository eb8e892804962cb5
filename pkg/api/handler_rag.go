package api

import (
	"fmt"
	"io"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/watchops/incident-console/pkg/rag"
)

// listDocumentsHandler handles GET /rag/documents.
func (s *Server) listDocumentsHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, DocumentsResponse{Documents: s.knowledge.ListDocuments()})
}

// uploadDocumentsHandler handles POST /rag/upload. Accepts a multipart file
// (.txt or .json) and stores each parsed document; re-uploading an existing
// doc_key is a no-op.
func (s *Server) uploadDocumentsHandler(c *echo.Context) error {
	file, header, err := c.Request().FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "uploaded file could not be read")
	}

	docs, err := rag.ParseUpload(header.Filename, data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	stored := make([]string, 0, len(docs))
	for _, doc := range docs {
		if s.knowledge.AddUploaded(doc) {
			stored = append(stored, doc.DocKey)
		}
	}
	s.store.AppendFeed(fmt.Sprintf("Knowledge upload stored %d document(s) from %s", len(stored), header.Filename))
	return c.JSON(http.StatusOK, UploadResponse{
		Message:   fmt.Sprintf("Stored %d document(s)", len(stored)),
		Documents: stored,
	})
}
