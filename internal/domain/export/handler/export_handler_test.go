package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/meu-holerite/internal/domain/export"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	repo := repository.NewMemoryImportRepository()
	require.NoError(t, repo.UpsertPayslip(context.Background(), &repository.Payslip{
		Record: parser.PayslipRecord{Period: "JAN/2024", NetAmount: "1.000,00"},
	}))

	h := NewExportHandler(export.NewService(repo, nil), nil)
	h.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	return r
}

func TestExportDownloads(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		target          string
		wantType        string
		wantDisposition string
	}{
		{"/api/v1/exports/payslips.csv", contentTypeCSV, `attachment; filename="holerites-20240301.csv"`},
		{"/api/v1/exports/timesheets.csv", contentTypeCSV, `attachment; filename="espelhos-ponto-20240301.csv"`},
		{"/api/v1/exports/payslips.xlsx", contentTypeXLSX, `attachment; filename="holerites-20240301.xlsx"`},
		{"/api/v1/exports/payslips/JAN%2F2024.pdf", contentTypePDF, `attachment; filename="holerite-jan-2024.pdf"`},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantType, rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantDisposition, rec.Header().Get("Content-Disposition"))
			assert.NotZero(t, rec.Body.Len())
		})
	}
}

func TestExportPDF_UnknownPeriod(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/payslips/FEV%2F2024.pdf", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "payslip_not_found"))
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "jan-2024", slug("JAN/2024"))
	assert.Equal(t, "01-01-2024-a-31-01-2024", slug("01/01/2024 a 31/01/2024"))
	assert.Equal(t, "", slug("///"))
}
