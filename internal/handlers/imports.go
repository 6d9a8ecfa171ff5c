package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/claudyio484/lastbite-backend/internal/audit"
	"github.com/claudyio484/lastbite-backend/internal/httpx"
	"github.com/claudyio484/lastbite-backend/internal/importer"
	"github.com/claudyio484/lastbite-backend/internal/metrics"
	"github.com/claudyio484/lastbite-backend/internal/middleware"
	"github.com/claudyio484/lastbite-backend/internal/store"
)

// multipartOverheadBytes covers boundary markers and part headers on top of
// the file payload itself.
const multipartOverheadBytes = 1 << 20

// Allowed upload MIME types and the filename extensions each may carry.
// Windows browsers report CSV files as application/vnd.ms-excel, so that
// MIME is accepted for .csv uploads too.
var allowedUploads = map[string][]string{
	"text/csv":                 {".csv"},
	"application/vnd.ms-excel": {".csv", ".xls"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {".xlsx"},
}

func (s *Server) PostImportsParse(w http.ResponseWriter, r *http.Request) {
	if _, _, _, ok := requireActorIDs(w, r); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.Config.ImportMaxFileBytes+multipartOverheadBytes)
	if err := r.ParseMultipartForm(s.Config.ImportMaxFileBytes); err != nil {
		if isBodyTooLarge(err) {
			s.writeFileTooLarge(w, r)
			return
		}
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_MULTIPART", "Failed to parse multipart form", nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "MISSING_FILE", "A file upload named \"file\" is required", nil)
		return
	}
	defer file.Close()

	contentType := normalizeContentType(header.Header.Get("Content-Type"))
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadAllowed(contentType, ext) {
		httpx.WriteError(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE",
			"Only CSV and Excel files are supported",
			map[string]any{"contentType": contentType, "extension": ext})
		return
	}
	if header.Size > s.Config.ImportMaxFileBytes {
		s.writeFileTooLarge(w, r)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		if isBodyTooLarge(err) {
			s.writeFileTooLarge(w, r)
			return
		}
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file", nil)
		return
	}

	parsed, err := importer.ParseFile(data, contentType)
	if err != nil {
		metrics.IncParse(metrics.ResultError)
		writePipelineError(w, r, err)
		return
	}

	metrics.IncParse(metrics.ResultSuccess)
	httpx.WriteJSON(w, http.StatusOK, ParseResponse{
		Columns:   parsed.Columns,
		Rows:      parsed.Rows,
		TotalRows: parsed.TotalRows,
	})
}

func (s *Server) PostImportsValidate(w http.ResponseWriter, r *http.Request) {
	_, tenantID, _, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	req, in, ok := s.decodeImportRequest(w, r, tenantID)
	if !ok {
		return
	}

	normalized, rowErrs := importer.NormalizeRows(in.Rows, in.Mapping, time.Now())
	retained, expired := importer.FilterRows(normalized, in.WindowDays, in.IncludeExpired)
	deals, err := importer.ApplyDiscountRules(retained, in.Rules, in.RoundPrices)
	if err != nil {
		writePipelineError(w, r, err)
		return
	}

	preview := importer.BuildPreview(retained, expired, rowErrs, len(req.Rows), deals)
	httpx.WriteJSON(w, http.StatusOK, preview)
}

func (s *Server) PostImportsConfirm(w http.ResponseWriter, r *http.Request) {
	_, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	req, in, ok := s.decodeImportRequest(w, r, tenantID)
	if !ok {
		return
	}
	in.Publish = req.Publish

	result, err := s.Committer.Commit(r.Context(), tenantID, in)
	if err != nil {
		metrics.IncBatch(metrics.ResultError)
		writePipelineError(w, r, err)
		return
	}

	batchStatus := importer.BatchSuccess
	if result.ErrorsCount > 0 {
		batchStatus = importer.BatchPartialError
	}
	metrics.IncBatch(batchStatus)
	metrics.AddRows("published", result.PublishedCount)
	metrics.AddRows("draft", result.DraftCount)
	metrics.AddRows("error", result.ErrorsCount)

	batchID := result.BatchID
	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   tenantID,
		UserID:     &userID,
		Action:     "imports.confirm",
		EntityType: "import_batch",
		EntityID:   &batchID,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"published": result.PublishedCount,
			"draft":     result.DraftCount,
			"errors":    result.ErrorsCount,
			"status":    batchStatus,
		},
	})

	httpx.WriteJSON(w, http.StatusCreated, ConfirmResponse{
		BatchID:        result.BatchID,
		PublishedCount: result.PublishedCount,
		DraftCount:     result.DraftCount,
		ErrorsCount:    result.ErrorsCount,
	})
}

func (s *Server) GetImportsRules(w http.ResponseWriter, r *http.Request) {
	_, tenantID, _, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	settings, err := s.Store.GetDiscountSettings(r.Context(), tenantID)
	if err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load discount settings", nil)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, DiscountSettingsPayload{
		DiscountRules:     settings.Rules,
		RoundPrices:       settings.RoundPrices,
		DefaultWindowDays: settings.DefaultWindowDays,
	})
}

func (s *Server) PutImportsRules(w http.ResponseWriter, r *http.Request) {
	_, tenantID, userID, ok := requireActorIDs(w, r)
	if !ok {
		return
	}

	var payload DiscountSettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON body", nil)
		return
	}

	if err := importer.ValidateDiscountRules(payload.DiscountRules); err != nil {
		writePipelineError(w, r, err)
		return
	}
	if payload.DefaultWindowDays < 1 || payload.DefaultWindowDays > 90 {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			"default_window_days must be between 1 and 90",
			map[string]any{"default_window_days": payload.DefaultWindowDays})
		return
	}

	settings := store.DiscountSettings{
		Rules:             payload.DiscountRules,
		RoundPrices:       payload.RoundPrices,
		DefaultWindowDays: payload.DefaultWindowDays,
	}
	if err := s.Store.SaveDiscountSettings(r.Context(), tenantID, settings); err != nil {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save discount settings", nil)
		return
	}

	_ = s.Audit.Log(r.Context(), audit.Entry{
		TenantID:   tenantID,
		UserID:     &userID,
		Action:     "imports.rules_updated",
		EntityType: "store_discount_rules",
		RequestID:  middleware.RequestIDFromContext(r.Context()),
		Metadata: map[string]any{
			"rules":               payload.DiscountRules,
			"round_prices":        payload.RoundPrices,
			"default_window_days": payload.DefaultWindowDays,
		},
	})

	httpx.WriteJSON(w, http.StatusOK, payload)
}

// decodeImportRequest reads the shared validate/confirm payload, fills gaps
// from the tenant's stored settings, and runs the upfront validators.
func (s *Server) decodeImportRequest(w http.ResponseWriter, r *http.Request, tenantID uuid.UUID) (ImportRequest, importer.CommitInput, bool) {
	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, r, http.StatusBadRequest, "INVALID_BODY", "Malformed JSON body", nil)
		return ImportRequest{}, importer.CommitInput{}, false
	}

	if len(req.Rows) == 0 {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			"rows must be a non-empty array", nil)
		return ImportRequest{}, importer.CommitInput{}, false
	}

	var settings *store.DiscountSettings
	loadSettings := func() (store.DiscountSettings, bool) {
		if settings == nil {
			loaded, err := s.Store.GetDiscountSettings(r.Context(), tenantID)
			if err != nil {
				httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load discount settings", nil)
				return store.DiscountSettings{}, false
			}
			settings = &loaded
		}
		return *settings, true
	}

	in := importer.CommitInput{
		Mapping:        req.Mapping,
		IncludeExpired: req.IncludeExpired,
		Rows:           req.Rows,
	}

	if req.WindowDays != nil {
		in.WindowDays = *req.WindowDays
	} else {
		loaded, ok := loadSettings()
		if !ok {
			return ImportRequest{}, importer.CommitInput{}, false
		}
		in.WindowDays = loaded.DefaultWindowDays
	}
	if in.WindowDays < 1 || in.WindowDays > 90 {
		httpx.WriteError(w, r, http.StatusUnprocessableEntity, "VALIDATION_FAILED",
			"window_days must be between 1 and 90",
			map[string]any{"window_days": in.WindowDays})
		return ImportRequest{}, importer.CommitInput{}, false
	}

	if req.DiscountRules != nil {
		in.Rules = req.DiscountRules
	} else {
		loaded, ok := loadSettings()
		if !ok {
			return ImportRequest{}, importer.CommitInput{}, false
		}
		in.Rules = loaded.Rules
	}

	if req.RoundPrices != nil {
		in.RoundPrices = *req.RoundPrices
	} else {
		loaded, ok := loadSettings()
		if !ok {
			return ImportRequest{}, importer.CommitInput{}, false
		}
		in.RoundPrices = loaded.RoundPrices
	}

	if err := importer.ValidateColumnMapping(req.Mapping, req.Columns); err != nil {
		writePipelineError(w, r, err)
		return ImportRequest{}, importer.CommitInput{}, false
	}
	if err := importer.ValidateDiscountRules(in.Rules); err != nil {
		writePipelineError(w, r, err)
		return ImportRequest{}, importer.CommitInput{}, false
	}

	return req, in, true
}

func (s *Server) writeFileTooLarge(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(w, r, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
		"Uploaded file exceeds the size limit",
		map[string]any{"maxBytes": s.Config.ImportMaxFileBytes})
}

func writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var pipeErr *importer.Error
	if !errors.As(err, &pipeErr) {
		httpx.WriteError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected import failure", nil)
		return
	}

	details := map[string]any{}
	for k, v := range pipeErr.Details {
		details[k] = v
	}
	if len(pipeErr.Violations) > 0 {
		details["violations"] = pipeErr.Violations
	}
	if pipeErr.BatchID != nil {
		details["batchId"] = pipeErr.BatchID.String()
	}

	var payload any
	if len(details) > 0 {
		payload = details
	}
	httpx.WriteError(w, r, pipeErr.Status(), pipeErr.Code(), pipeErr.Message, payload)
}

func normalizeContentType(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if idx := strings.Index(trimmed, ";"); idx >= 0 {
		trimmed = strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}

func uploadAllowed(contentType, ext string) bool {
	extensions, ok := allowedUploads[contentType]
	if !ok {
		return false
	}
	for _, allowed := range extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func isBodyTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
