package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
)

// multipart framing allowance on top of the workbook itself
const uploadOverhead = 64 << 10

// SpreadsheetHandler handles .xlsx import and export endpoints.
type SpreadsheetHandler struct {
	spreadsheetService *service.SpreadsheetService
	issueService       *service.IssueService
}

// NewSpreadsheetHandler creates a new SpreadsheetHandler.
func NewSpreadsheetHandler(spreadsheetService *service.SpreadsheetService, issueService *service.IssueService) *SpreadsheetHandler {
	return &SpreadsheetHandler{spreadsheetService: spreadsheetService, issueService: issueService}
}

// ExportMaster godoc
// GET /api/v1/master/:entity/export
func (h *SpreadsheetHandler) ExportMaster(c *gin.Context) {
	info, ok := entityFrom(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.spreadsheetService.ExportMaster(c.Request.Context(), info, &buf); err != nil {
		failFromError(c, err)
		return
	}
	sendWorkbook(c, string(info.Entity), &buf)
}

// ImportMaster godoc
// POST /api/v1/master/:entity/import (multipart "file")
func (h *SpreadsheetHandler) ImportMaster(c *gin.Context) {
	info, ok := entityFrom(c)
	if !ok {
		return
	}
	h.importWorkbook(c, func(file *bytes.Reader) (*service.ImportResult, error) {
		return h.spreadsheetService.ImportMaster(c.Request.Context(), info, file)
	})
}

// ExportItems godoc
// GET /api/v1/master/items/export
func (h *SpreadsheetHandler) ExportItems(c *gin.Context) {
	ctx := c.Request.Context()
	codes, err := h.spreadsheetService.CategoryCodes(ctx)
	if err != nil {
		failFromError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.spreadsheetService.ExportItems(ctx, &buf, codes); err != nil {
		failFromError(c, err)
		return
	}
	sendWorkbook(c, "items", &buf)
}

// ImportItems godoc
// POST /api/v1/master/items/import (multipart "file")
func (h *SpreadsheetHandler) ImportItems(c *gin.Context) {
	h.importWorkbook(c, func(file *bytes.Reader) (*service.ImportResult, error) {
		return h.spreadsheetService.ImportItems(c.Request.Context(), file)
	})
}

// ExportIssues godoc
// GET /api/v1/reports/issues/export?state=&division_id=&item_id=&from=&to=
func (h *SpreadsheetHandler) ExportIssues(c *gin.Context) {
	f, fields := issueFilter(c)
	if fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	issues, err := h.issueService.Report(c.Request.Context(), f)
	if err != nil {
		failFromError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.spreadsheetService.ExportIssues(issues, &buf); err != nil {
		failFromError(c, err)
		return
	}
	sendWorkbook(c, "issues", &buf)
}

func (h *SpreadsheetHandler) importWorkbook(c *gin.Context, run func(*bytes.Reader) (*service.ImportResult, error)) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.spreadsheetService.MaxUploadBytes()+uploadOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if err := h.spreadsheetService.CheckUpload(header); err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		case errors.Is(err, service.ErrFileTooLarge):
			response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		default:
			failFromError(c, err)
		}
		return
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(file); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	result, err := run(bytes.NewReader(buf.Bytes()))
	if err != nil {
		if errors.Is(err, service.ErrUnreadableWorkbook) {
			response.Fail(c, http.StatusBadRequest, response.ErrImportFailed)
			return
		}
		failFromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func sendWorkbook(c *gin.Context, name string, buf *bytes.Buffer) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, service.XLSXContentType, buf.Bytes())
}
