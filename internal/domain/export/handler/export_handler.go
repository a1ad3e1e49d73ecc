package handler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FACorreiaa/meu-holerite/internal/domain/export"
	"github.com/FACorreiaa/meu-holerite/pkg/httpx"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"
)

// ExportHandler serves history downloads.
type ExportHandler struct {
	svc    *export.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewExportHandler(svc *export.Service, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{svc: svc, logger: logger, now: time.Now}
}

func (h *ExportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/exports", func(r chi.Router) {
		r.Get("/payslips.csv", h.PayslipsCSV)
		r.Get("/payslips.xlsx", h.PayslipsXLSX)
		r.Get("/timesheets.csv", h.TimesheetsCSV)
		r.Get("/payslips/{period}.pdf", h.PayslipPDF)
	})
}

func (h *ExportHandler) PayslipsCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.PayslipsCSV(r.Context(), &buf); err != nil {
		h.fail(w, r, "payslips_csv", err)
		return
	}
	h.attach(w, contentTypeCSV, h.filename("holerites", "csv"), buf.Bytes())
}

func (h *ExportHandler) TimesheetsCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.TimesheetsCSV(r.Context(), &buf); err != nil {
		h.fail(w, r, "timesheets_csv", err)
		return
	}
	h.attach(w, contentTypeCSV, h.filename("espelhos-ponto", "csv"), buf.Bytes())
}

func (h *ExportHandler) PayslipsXLSX(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.PayslipsXLSX(r.Context())
	if err != nil {
		h.fail(w, r, "payslips_xlsx", err)
		return
	}
	h.attach(w, contentTypeXLSX, h.filename("holerites", "xlsx"), data)
}

func (h *ExportHandler) PayslipPDF(w http.ResponseWriter, r *http.Request) {
	period := chi.URLParam(r, "period")
	if decoded, err := url.PathUnescape(period); err == nil {
		period = decoded
	}

	data, err := h.svc.PayslipReportPDF(r.Context(), period)
	if errors.Is(err, export.ErrPeriodNotFound) {
		httpx.Fail(w, r, http.StatusNotFound, "payslip_not_found", "payslip not found")
		return
	}
	if err != nil {
		h.fail(w, r, "payslip_pdf", err)
		return
	}
	h.attach(w, contentTypePDF, "holerite-"+slug(period)+".pdf", data)
}

func (h *ExportHandler) attach(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write export", slog.Any("error", err))
	}
}

func (h *ExportHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("export failed", slog.String("op", op), slog.Any("error", err))
	httpx.Fail(w, r, http.StatusInternalServerError, op+"_failed", "failed to build export")
}

func (h *ExportHandler) filename(base, ext string) string {
	return fmt.Sprintf("%s-%s.%s", base, h.now().Format("20060102"), ext)
}

// slug keeps letters and digits and turns everything else into '-'.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
