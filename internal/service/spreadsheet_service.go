package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"

	"github.com/stemsi/tooltrack-backend/internal/apperr"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/repository"
	"github.com/stemsi/tooltrack-backend/internal/validator"
)

// Sentinel errors for spreadsheet uploads.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnreadableWorkbook  = errors.New("unreadable workbook")
)

// XLSXContentType is the MIME type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	masterColumns = []string{"code", "name", "description", "is_active"}
	itemColumns   = []string{"code", "name", "category_code", "unit", "total_quantity", "description", "is_active"}
	issueColumns  = []string{"issue_no", "issued_at", "item_code", "item_name", "division", "quantity", "returned_quantity", "state", "expected_return_at", "remarks"}
)

// ImportResult summarises a spreadsheet import. Rows that fail validation
// are skipped and listed in Errors; the rest are upserted by code.
type ImportResult struct {
	Total   int               `json:"total"`
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Failed  int               `json:"failed"`
	Errors  []apperr.RowError `json:"errors"`
}

// SpreadsheetService imports and exports master data and reports as .xlsx.
type SpreadsheetService struct {
	cfg     *config.Config
	masters *MasterService
	items   *ItemService
	log     zerolog.Logger
}

// NewSpreadsheetService creates a new SpreadsheetService.
func NewSpreadsheetService(cfg *config.Config, masters *MasterService, items *ItemService, log zerolog.Logger) *SpreadsheetService {
	return &SpreadsheetService{
		cfg:     cfg,
		masters: masters,
		items:   items,
		log:     log.With().Str("component", "spreadsheet_service").Logger(),
	}
}

// MaxUploadBytes is the largest accepted workbook.
func (s *SpreadsheetService) MaxUploadBytes() int64 {
	return s.cfg.MaxImportBytes
}

// CheckUpload validates an uploaded file before it is parsed.
func (s *SpreadsheetService) CheckUpload(header *multipart.FileHeader) error {
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xlsx" {
		return fmt.Errorf("%w: %s (allowed: .xlsx)", ErrUnsupportedFileType, ext)
	}
	if header.Size > s.cfg.MaxImportBytes {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, s.cfg.MaxImportBytes)
	}
	return nil
}

// ─── Import ─────────────────────────────────────────────────────────

// ImportMaster upserts the rows of a lookup table workbook.
func (s *SpreadsheetService) ImportMaster(ctx context.Context, info model.MasterEntityInfo, r io.Reader) (*ImportResult, error) {
	return s.importRows(ctx, r, func(ctx context.Context, row map[string]string) (bool, *apperr.RowError, error) {
		req := &model.MasterRecordRequest{
			Code:        row["code"],
			Name:        row["name"],
			Description: row["description"],
		}
		active, rowErr := parseBoolCell("is_active", row["is_active"])
		if rowErr != nil {
			return false, rowErr, nil
		}
		req.IsActive = active
		if verr := validator.ValidateRow(req); verr != nil {
			return false, firstRowError(verr), nil
		}

		created, err := s.masters.Upsert(ctx, info, req)
		return created, nil, err
	})
}

// ImportItems upserts the rows of an item workbook. Categories are
// referenced by code.
func (s *SpreadsheetService) ImportItems(ctx context.Context, r io.Reader) (*ImportResult, error) {
	return s.importRows(ctx, r, func(ctx context.Context, row map[string]string) (bool, *apperr.RowError, error) {
		req := &model.ItemRequest{
			Code:         row["code"],
			Name:         row["name"],
			CategoryCode: row["category_code"],
			Unit:         row["unit"],
			Description:  row["description"],
		}
		if raw := row["total_quantity"]; raw != "" {
			qty, err := strconv.Atoi(raw)
			if err != nil {
				return false, &apperr.RowError{Field: "total_quantity", Message: "total_quantity must be a whole number"}, nil
			}
			req.TotalQuantity = qty
		}
		active, rowErr := parseBoolCell("is_active", row["is_active"])
		if rowErr != nil {
			return false, rowErr, nil
		}
		req.IsActive = active
		if verr := validator.ValidateRow(req); verr != nil {
			return false, firstRowError(verr), nil
		}

		created, err := s.items.Upsert(ctx, req)
		return created, nil, err
	})
}

type rowFunc func(ctx context.Context, row map[string]string) (created bool, rowErr *apperr.RowError, err error)

func (s *SpreadsheetService) importRows(ctx context.Context, r io.Reader, apply rowFunc) (*ImportResult, error) {
	rows, err := s.readFirstSheet(r)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{Errors: []apperr.RowError{}}
	if len(rows) == 0 {
		return res, nil
	}

	// A Caser is stateful, so each import gets its own.
	fold := cases.Fold()
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = foldHeader(fold, h)
	}

	for i, cells := range rows[1:] {
		rowNo := i + 2
		row := make(map[string]string, len(header))
		for col, name := range header {
			if name == "" || col >= len(cells) {
				continue
			}
			row[name] = strings.TrimSpace(cells[col])
		}
		if isBlankRow(row) {
			continue
		}
		res.Total++

		created, rowErr, err := apply(ctx, row)
		if err != nil {
			rowErr = rowErrorFrom(err)
			if rowErr == nil {
				return nil, fmt.Errorf("import row %d: %w", rowNo, err)
			}
		}
		if rowErr != nil {
			rowErr.Row = rowNo
			res.Failed++
			res.Errors = append(res.Errors, *rowErr)
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	s.log.Info().Int("total", res.Total).Int("created", res.Created).Int("updated", res.Updated).
		Int("failed", res.Failed).Msg("spreadsheet imported")
	return res, nil
}

func (s *SpreadsheetService) readFirstSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: no sheets", ErrUnreadableWorkbook)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	return rows, nil
}

// foldHeader turns "Category Code" into "category_code".
func foldHeader(fold cases.Caser, h string) string {
	h = fold.String(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

func isBlankRow(row map[string]string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}

func parseBoolCell(field, raw string) (*bool, *apperr.RowError) {
	if raw == "" {
		return nil, nil
	}
	var v bool
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "ya", "active", "aktif":
		v = true
	case "0", "false", "no", "n", "tidak", "inactive", "nonaktif":
		v = false
	default:
		return nil, &apperr.RowError{Field: field, Message: field + " must be yes or no"}
	}
	return &v, nil
}

func firstRowError(verr *apperr.ValidationError) *apperr.RowError {
	msgs := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		msgs = append(msgs, f.Message)
	}
	return &apperr.RowError{Field: verr.Fields[0].Field, Message: strings.Join(msgs, "; ")}
}

// rowErrorFrom maps storage errors that only concern the row itself.
func rowErrorFrom(err error) *apperr.RowError {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr) && len(verr.Fields) > 0:
		return firstRowError(verr)
	case errors.Is(err, repository.ErrInsufficientStock):
		return &apperr.RowError{Field: "total_quantity", Message: "total_quantity is lower than the quantity currently issued"}
	case errors.Is(err, repository.ErrNotFound):
		return &apperr.RowError{Field: "category_code", Message: "referenced record does not exist"}
	case errors.Is(err, repository.ErrDuplicateCode):
		return &apperr.RowError{Field: "code", Message: "code already exists"}
	}
	return nil
}

// ─── Export ─────────────────────────────────────────────────────────

// ExportMaster writes every row of a lookup table as a workbook.
func (s *SpreadsheetService) ExportMaster(ctx context.Context, info model.MasterEntityInfo, w io.Writer) error {
	records, err := s.masters.All(ctx, info)
	if err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []interface{}{rec.Code, rec.Name, rec.Description, yesNo(rec.IsActive)})
	}
	return writeWorkbook(w, info.Label, masterColumns, rows)
}

// ExportItems writes every item as a workbook in the import layout.
func (s *SpreadsheetService) ExportItems(ctx context.Context, w io.Writer, categoryCodes map[int]string) error {
	items, err := s.items.All(ctx)
	if err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(items))
	for _, it := range items {
		var catCode string
		if it.CategoryID != nil {
			catCode = categoryCodes[*it.CategoryID]
		}
		rows = append(rows, []interface{}{it.Code, it.Name, catCode, it.Unit, it.TotalQuantity, it.Description, yesNo(it.IsActive)})
	}
	return writeWorkbook(w, "Items", itemColumns, rows)
}

// CategoryCodes maps item category IDs to their codes for item exports.
func (s *SpreadsheetService) CategoryCodes(ctx context.Context) (map[int]string, error) {
	info, _ := model.LookupMasterEntity(string(model.EntityItemCategory))
	cats, err := s.masters.All(ctx, info)
	if err != nil {
		return nil, err
	}
	codes := make(map[int]string, len(cats))
	for _, c := range cats {
		codes[c.ID] = c.Code
	}
	return codes, nil
}

// ExportIssues writes an issue report as a workbook.
func (s *SpreadsheetService) ExportIssues(issues []model.Issue, w io.Writer) error {
	rows := make([][]interface{}, 0, len(issues))
	for _, is := range issues {
		var due string
		if is.ExpectedReturnAt != nil {
			due = is.ExpectedReturnAt.Format(time.DateOnly)
		}
		rows = append(rows, []interface{}{
			is.IssueNo, is.IssuedAt.Format(time.DateTime), is.ItemCode, is.ItemName, is.DivisionName,
			is.Quantity, is.ReturnedQuantity, string(is.State), due, is.Remarks,
		})
	}
	return writeWorkbook(w, "Issues", issueColumns, rows)
}

func writeWorkbook(w io.Writer, sheet string, header []string, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &head); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHead, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHead, bold); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
