package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shora051/Digital-Faxing-Simulation/internal/common"
	"github.com/shora051/Digital-Faxing-Simulation/internal/repository"
)

// documentView is the API shape of a stored document, with convenience
// fields pulled out of the extracted set for list rendering.
type documentView struct {
	ID              int64          `json:"id"`
	Filename        string         `json:"filename"`
	OCRText         string         `json:"ocr_text"`
	ExtractedFields map[string]any `json:"extracted_fields"`
	CreatedAt       time.Time      `json:"created_at"`
	ExternalFaxID   string         `json:"external_fax_id,omitempty"`
	FaxFromNumber   string         `json:"fax_from_number,omitempty"`
	FaxToNumber     string         `json:"fax_to_number,omitempty"`
	PatientName     string         `json:"patient_name,omitempty"`
	MemberID        string         `json:"member_id,omitempty"`
	Prescriptions   any            `json:"prescriptions,omitempty"`
}

func toView(doc *repository.Document) documentView {
	v := documentView{
		ID:            doc.ID,
		Filename:      doc.Filename,
		OCRText:       doc.OCRText,
		CreatedAt:     doc.CreatedAt,
		ExternalFaxID: doc.ExternalFaxID,
		FaxFromNumber: doc.FaxFromNumber,
		FaxToNumber:   doc.FaxToNumber,
	}
	if doc.OCRTextError != "" {
		v.OCRText = fmt.Sprintf("[decryption failed: %s]", doc.OCRTextError)
	}

	fields, err := doc.Fields()
	switch {
	case doc.FieldsError != "":
		v.ExtractedFields = map[string]any{"error": "decryption failed"}
	case err != nil:
		// decrypted fine but the payload is not JSON
		v.ExtractedFields = map[string]any{"error": "Invalid JSON"}
	case fields != nil:
		v.ExtractedFields = fields
		v.PatientName = patientNameOf(fields)
		v.MemberID = firstString(fields, "member_id", "patient_member_id")
		if p, ok := fields["prescriptions_or_items"]; ok {
			v.Prescriptions = p
		} else if p, ok := fields["prescription_info"]; ok {
			v.Prescriptions = p
		}
	}
	return v
}

func patientNameOf(fields map[string]any) string {
	if name := firstString(fields, "patient_name"); name != "" {
		return name
	}
	first := firstString(fields, "patient_first_name", "first_name")
	last := firstString(fields, "patient_last_name", "last_name")
	return strings.TrimSpace(first + " " + last)
}

func firstString(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := fields[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.docs.ListAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]documentView, len(docs))
	for i, doc := range docs {
		views[i] = toView(doc)
	}
	c.JSON(http.StatusOK, gin.H{"documents": views, "count": len(views)})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	doc, err := s.docs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toView(doc))
}

func (s *Server) handleSearchDocuments(c *gin.Context) {
	query := c.Query("q")
	docs, err := s.docs.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.logger.Info("documents.search", "query", query, "results", len(docs))

	views := make([]documentView, len(docs))
	for i, doc := range docs {
		views[i] = toView(doc)
	}
	c.JSON(http.StatusOK, gin.H{"query": query, "results": views, "count": len(views)})
}

func (s *Server) handleExportDocuments(c *gin.Context) {
	out, err := s.exporter.ExportDocumentsXLSX(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	filename := fmt.Sprintf("documents_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", out)
}
