package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shora051/Digital-Faxing-Simulation/internal/classify"
	"github.com/shora051/Digital-Faxing-Simulation/internal/pipeline"
	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
)

// handleSendFax simulates an outbound fax: the file is accepted,
// a transmission id is minted and logged, and the file is discarded.
// No bytes actually leave the machine.
func (s *Server) handleSendFax(c *gin.Context) {
	file, err := c.FormFile("file")
	faxNumber := c.PostForm("fax_number")
	if err != nil || faxNumber == "" {
		s.logger.Warn("fax.send.rejected", "reason", "missing file or fax number")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file or fax number"})
		return
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	dst := filepath.Join(s.uploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	faxID := uuid.New().String()
	s.logger.Info("fax.send.simulated", "fax_id", faxID, "to", faxNumber, "filename", file.Filename)

	if err := os.Remove(dst); err != nil {
		s.logger.Warn("fax.send.cleanup_failed", "path", dst, "error", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"faxId":   faxID,
		"message": fmt.Sprintf("Fax successfully sent to %s (simulated)", faxNumber),
	})
}

// handleReceiveFax simulates an inbound fax and runs the full pipeline
// on the payload.
func (s *Server) handleReceiveFax(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided for simulated fax receive"})
		return
	}

	from := c.DefaultPostForm("from", "1234567890")
	to := c.DefaultPostForm("to", "0987654321")
	declared := classify.Template(c.DefaultPostForm("template", string(classify.TemplateDefault)))

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = f.Close() }()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meta := repository.FaxMetadata{
		ExternalFaxID: uuid.New().String(),
		FromNumber:    from,
		ToNumber:      to,
	}
	res := s.pipe.Receive(c.Request.Context(), content, fileHeader.Filename, declared, meta)
	if res.Status != pipeline.StageDone {
		c.JSON(http.StatusBadGateway, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}
