package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/sniffer"
	importservice "github.com/FACorreiaa/meu-holerite/internal/domain/import/service"
	"github.com/FACorreiaa/meu-holerite/pkg/httpx"
)

const defaultMaxUploadBytes = 10 << 20

// ImportHandler serves document uploads and the stored payslip and timesheet history.
type ImportHandler struct {
	importSvc      *importservice.ImportService
	repo           repository.ImportRepository
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewImportHandler creates a new import handler
func NewImportHandler(importSvc *importservice.ImportService, repo repository.ImportRepository, logger *slog.Logger) *ImportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportHandler{
		importSvc:      importSvc,
		repo:           repo,
		logger:         logger,
		maxUploadBytes: defaultMaxUploadBytes,
	}
}

// WithMaxUploadBytes caps the multipart body size accepted by UploadDocument.
func (h *ImportHandler) WithMaxUploadBytes(n int64) *ImportHandler {
	if n > 0 {
		h.maxUploadBytes = n
	}
	return h
}

func (h *ImportHandler) RegisterRoutes(r chi.Router) {
	r.Post("/imports", h.UploadDocument)
	r.Post("/imports/preview", h.PreviewDocument)

	r.Route("/payslips", func(r chi.Router) {
		r.Get("/", h.ListPayslips)
		r.Get("/{period}", h.GetPayslip)
		r.Delete("/{period}", h.DeletePayslip)
	})
	r.Route("/timesheets", func(r chi.Router) {
		r.Get("/", h.ListTimesheets)
		r.Get("/{period}", h.GetTimesheet)
		r.Delete("/{period}", h.DeleteTimesheet)
	})
}

// UploadDocument imports the PDF sent in the multipart field "file".
func (h *ImportHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_upload", "failed to read uploaded file")
		return
	}
	if len(data) == 0 {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_upload", "uploaded file is empty")
		return
	}

	result, err := h.importSvc.ImportFile(r.Context(), header.Filename, data)
	if err != nil {
		h.writeImportError(w, r, err)
		return
	}

	if result.Duplicate {
		httpx.Success(w, r, result)
		return
	}
	httpx.Created(w, r, result)
}

// PreviewDocument classifies and parses extracted text sent as the raw body.
// The optional "kind" query parameter forces an extractor.
func (h *ImportHandler) PreviewDocument(w http.ResponseWriter, r *http.Request) {
	kind := sniffer.KindUnknown
	if raw := r.URL.Query().Get("kind"); raw != "" {
		parsed, err := sniffer.ParseKind(raw)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "invalid_kind", "kind must be payslip or timesheet")
			return
		}
		kind = parsed
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		httpx.Fail(w, r, http.StatusBadRequest, "invalid_body", "failed to read request body")
		return
	}

	text := string(body)
	if kind == sniffer.KindUnknown {
		kind = sniffer.Classify(text)
	}
	result, err := h.importSvc.PreviewAs(r.Context(), text, kind)
	if err != nil {
		h.writeImportError(w, r, err)
		return
	}
	httpx.Success(w, r, result)
}

func (h *ImportHandler) ListPayslips(w http.ResponseWriter, r *http.Request) {
	payslips, err := h.repo.ListPayslips(r.Context())
	if err != nil {
		h.logger.Error("failed to list payslips", slog.Any("error", err))
		httpx.Fail(w, r, http.StatusInternalServerError, "payslips_failed", "failed to list payslips")
		return
	}
	httpx.Success(w, r, payslips)
}

func (h *ImportHandler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	payslip, err := h.repo.GetPayslipByPeriod(r.Context(), periodParam(r))
	if err != nil {
		h.writeLookupError(w, r, err, "payslip")
		return
	}
	httpx.Success(w, r, payslip)
}

func (h *ImportHandler) DeletePayslip(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeletePayslip(r.Context(), periodParam(r)); err != nil {
		h.writeLookupError(w, r, err, "payslip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ImportHandler) ListTimesheets(w http.ResponseWriter, r *http.Request) {
	timesheets, err := h.repo.ListTimesheets(r.Context())
	if err != nil {
		h.logger.Error("failed to list timesheets", slog.Any("error", err))
		httpx.Fail(w, r, http.StatusInternalServerError, "timesheets_failed", "failed to list timesheets")
		return
	}
	httpx.Success(w, r, timesheets)
}

func (h *ImportHandler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	timesheet, err := h.repo.GetTimesheetByPeriod(r.Context(), periodParam(r))
	if err != nil {
		h.writeLookupError(w, r, err, "timesheet")
		return
	}
	httpx.Success(w, r, timesheet)
}

func (h *ImportHandler) DeleteTimesheet(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.DeleteTimesheet(r.Context(), periodParam(r)); err != nil {
		h.writeLookupError(w, r, err, "timesheet")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ImportHandler) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, importservice.ErrDocumentNotRecognized):
		httpx.Fail(w, r, http.StatusUnprocessableEntity, "document_not_recognized", err.Error())
	case errors.Is(err, parser.ErrEmptyPDF):
		httpx.Fail(w, r, http.StatusUnprocessableEntity, "empty_pdf", err.Error())
	default:
		h.logger.Error("import failed", slog.Any("error", err))
		httpx.Fail(w, r, http.StatusInternalServerError, "import_failed", "failed to import document")
	}
}

func (h *ImportHandler) writeLookupError(w http.ResponseWriter, r *http.Request, err error, kind string) {
	if errors.Is(err, repository.ErrNotFound) {
		httpx.Fail(w, r, http.StatusNotFound, kind+"_not_found", kind+" not found")
		return
	}
	h.logger.Error("failed to load "+kind, slog.Any("error", err))
	httpx.Fail(w, r, http.StatusInternalServerError, kind+"_failed", "failed to load "+kind)
}

// periodParam decodes the {period} segment. Periods such as "JAN/2024"
// arrive percent-encoded.
func periodParam(r *http.Request) string {
	raw := chi.URLParam(r, "period")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}
