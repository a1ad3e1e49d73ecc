// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/normalizer"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/sniffer"
	"github.com/FACorreiaa/meu-holerite/pkg/metrics"
	"github.com/FACorreiaa/meu-holerite/pkg/storage"
)

// ErrDocumentNotRecognized is returned when text is neither a payslip nor a
// timesheet mirror.
var ErrDocumentNotRecognized = errors.New("documento não reconhecido")

const tracerName = "github.com/FACorreiaa/meu-holerite/internal/domain/import/service"

// ImportResult describes one classified and parsed document.
type ImportResult struct {
	Kind      sniffer.DocumentKind    `json:"kind"`
	ID        uuid.UUID               `json:"id"`
	Period    string                  `json:"period"`
	Payslip   *parser.PayslipRecord   `json:"payslip,omitempty"`
	Timesheet *parser.TimesheetRecord `json:"timesheet,omitempty"`
	FilePath  string                  `json:"file_path,omitempty"`
	// Duplicate is set when the same file was imported before; ID and
	// Period then point at the existing record.
	Duplicate bool `json:"duplicate"`
}

// OverrideSource provides user corrections for line-item explanations.
type OverrideSource interface {
	ListOverrides(ctx context.Context) ([]normalizer.ExplanationOverride, error)
}

// matchRecorder is implemented by override sources that track usage.
type matchRecorder interface {
	RecordMatch(ctx context.Context, id uuid.UUID) error
}

// ImportService orchestrates storing, extracting, classifying and persisting
// uploaded documents.
type ImportService struct {
	repo      repository.ImportRepository
	storage   storage.Storage
	extractor parser.TextExtractor
	overrides OverrideSource // Optional
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger

	employerName string
	now          func() time.Time
}

// NewImportService creates a new import service
func NewImportService(repo repository.ImportRepository, store storage.Storage, extractor parser.TextExtractor, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		repo:      repo,
		storage:   store,
		extractor: extractor,
		tracer:    otel.Tracer(tracerName),
		logger:    logger,
		now:       time.Now,
	}
}

// WithMetrics records import outcomes and parse timings.
func (s *ImportService) WithMetrics(m *metrics.Metrics) *ImportService {
	s.metrics = m
	return s
}

// WithOverrides applies stored explanation overrides to payslip line items.
func (s *ImportService) WithOverrides(src OverrideSource) *ImportService {
	s.overrides = src
	return s
}

// WithEmployerName replaces the default employer recorded on payslips.
func (s *ImportService) WithEmployerName(name string) *ImportService {
	s.employerName = strings.TrimSpace(name)
	return s
}

// ImportFile stores a PDF, extracts its text and persists the parsed record.
// Unrecognised documents are removed from storage again.
func (s *ImportService) ImportFile(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.file", trace.WithAttributes(
		attribute.String("file.name", filename),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()

	hash := contentHash(data)

	existing, err := s.repo.FindByHash(ctx, hash)
	switch {
	case err == nil:
		s.logger.Info("skipping already imported file",
			slog.String("file", filename),
			slog.String("kind", existing.Kind),
			slog.String("period", existing.Period))
		s.metrics.ObserveImport(existing.Kind, metrics.OutcomeDuplicate)
		span.SetAttributes(attribute.Bool("import.duplicate", true))
		return &ImportResult{
			Kind:      sniffer.DocumentKind(existing.Kind),
			ID:        existing.ID,
			Period:    existing.Period,
			Duplicate: true,
		}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, s.fail(span, fmt.Errorf("failed to check for previous import: %w", err))
	}

	info, err := s.storage.Upload(ctx, filename, contentType(filename), bytes.NewReader(data))
	if err != nil {
		s.metrics.ObserveImport(string(sniffer.KindUnknown), metrics.OutcomeFailed)
		return nil, s.fail(span, fmt.Errorf("failed to store file: %w", err))
	}

	result, err := s.importStored(ctx, span, filename, info, data, hash)
	if err != nil {
		if delErr := s.storage.Delete(ctx, info.ID); delErr != nil {
			s.logger.Warn("failed to remove stored file after import error",
				slog.String("file_id", info.ID.String()),
				slog.Any("error", delErr))
		}
		return nil, s.fail(span, err)
	}

	s.logger.Info("document imported",
		slog.String("file", filename),
		slog.String("kind", string(result.Kind)),
		slog.String("period", result.Period),
		slog.String("id", result.ID.String()))
	return result, nil
}

func (s *ImportService) importStored(ctx context.Context, span trace.Span, filename string, info *storage.FileInfo, data []byte, hash string) (*ImportResult, error) {
	text, err := s.extractor.ExtractText(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		s.metrics.ObserveImport(string(sniffer.KindUnknown), metrics.OutcomeFailed)
		return nil, fmt.Errorf("failed to extract text from %s: %w", filename, err)
	}

	kind := sniffer.Classify(text)
	span.SetAttributes(attribute.String("import.kind", string(kind)))
	if !kind.Valid() {
		s.logger.Warn("document not recognized", slog.String("file", filename))
		s.metrics.ObserveImport(string(kind), metrics.OutcomeUnrecognized)
		return nil, ErrDocumentNotRecognized
	}

	return s.persist(ctx, kind, text, info.Path, hash)
}

// ImportText runs the pipeline on already-extracted text. filePath is
// recorded on the stored record as-is.
func (s *ImportService) ImportText(ctx context.Context, text, filePath string) (*ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "import.text", trace.WithAttributes(
		attribute.String("file.path", filePath),
	))
	defer span.End()

	kind := sniffer.Classify(text)
	span.SetAttributes(attribute.String("import.kind", string(kind)))
	if !kind.Valid() {
		s.metrics.ObserveImport(string(kind), metrics.OutcomeUnrecognized)
		return nil, s.fail(span, ErrDocumentNotRecognized)
	}

	result, err := s.persist(ctx, kind, text, filePath, contentHash([]byte(text)))
	if err != nil {
		return nil, s.fail(span, err)
	}
	return result, nil
}

// Preview classifies and parses text without storing anything.
func (s *ImportService) Preview(ctx context.Context, text string) (*ImportResult, error) {
	return s.PreviewAs(ctx, text, sniffer.Classify(text))
}

// PreviewAs parses text with the extractor for kind, skipping classification.
func (s *ImportService) PreviewAs(ctx context.Context, text string, kind sniffer.DocumentKind) (*ImportResult, error) {
	if !kind.Valid() {
		return nil, ErrDocumentNotRecognized
	}

	result := &ImportResult{Kind: kind}
	switch kind {
	case sniffer.KindPayslip:
		rec, _ := s.parsePayslip(ctx, text)
		result.Payslip, result.Period = &rec, rec.Period
	case sniffer.KindTimesheet:
		rec := s.parseTimesheet(text)
		result.Timesheet, result.Period = &rec, rec.Period
	}
	return result, nil
}

func (s *ImportService) persist(ctx context.Context, kind sniffer.DocumentKind, text, filePath, hash string) (*ImportResult, error) {
	result := &ImportResult{Kind: kind, FilePath: filePath}

	switch kind {
	case sniffer.KindPayslip:
		rec, matched := s.parsePayslip(ctx, text)
		var previous string
		if old, err := s.repo.GetPayslipByPeriod(ctx, rec.Period); err == nil {
			previous = old.FilePath
		}
		p := &repository.Payslip{Record: rec, FilePath: filePath, FileHash: hash}
		if err := s.repo.UpsertPayslip(ctx, p); err != nil {
			s.metrics.ObserveImport(string(kind), metrics.OutcomeFailed)
			return nil, fmt.Errorf("failed to save payslip: %w", err)
		}
		result.ID, result.Period, result.Payslip = p.ID, rec.Period, &p.Record
		s.recordMatches(ctx, matched)
		s.releaseReplacedFile(ctx, previous, filePath)

	case sniffer.KindTimesheet:
		rec := s.parseTimesheet(text)
		var previous string
		if old, err := s.repo.GetTimesheetByPeriod(ctx, rec.Period); err == nil {
			previous = old.FilePath
		}
		t := &repository.Timesheet{Record: rec, FilePath: filePath, FileHash: hash}
		if err := s.repo.UpsertTimesheet(ctx, t); err != nil {
			s.metrics.ObserveImport(string(kind), metrics.OutcomeFailed)
			return nil, fmt.Errorf("failed to save timesheet: %w", err)
		}
		result.ID, result.Period, result.Timesheet = t.ID, rec.Period, &t.Record
		s.releaseReplacedFile(ctx, previous, filePath)
	}

	s.metrics.ObserveImport(string(kind), metrics.OutcomeImported)
	return result, nil
}

// releaseReplacedFile removes the stored PDF of a record that a re-import
// of the same period just replaced. Paths outside storage are left alone.
func (s *ImportService) releaseReplacedFile(ctx context.Context, previous, current string) {
	if s.storage == nil || previous == "" || previous == current {
		return
	}

	files, err := s.storage.List(ctx)
	if err != nil {
		s.logger.Warn("failed to list stored files", slog.Any("error", err))
		return
	}
	for _, f := range files {
		if f.Path != previous {
			continue
		}
		if err := s.storage.Delete(ctx, f.ID); err != nil {
			s.logger.Warn("failed to remove replaced file",
				slog.String("file_id", f.ID.String()),
				slog.Any("error", err))
		}
		return
	}
}

func (s *ImportService) parsePayslip(ctx context.Context, text string) (parser.PayslipRecord, []uuid.UUID) {
	start := s.now()
	rec := parser.ParsePayslip(text)
	s.metrics.ObserveParse(string(sniffer.KindPayslip), s.now().Sub(start))

	if s.employerName != "" {
		rec.EmployerName = s.employerName
	}
	matched := s.applyOverrides(ctx, &rec)
	return rec, matched
}

func (s *ImportService) parseTimesheet(text string) parser.TimesheetRecord {
	start := s.now()
	rec := parser.ParseTimesheet(text)
	s.metrics.ObserveParse(string(sniffer.KindTimesheet), s.now().Sub(start))
	return rec
}

// applyOverrides swaps built-in explanations for stored user corrections and
// returns the IDs of the overrides used. A failing override source leaves the
// defaults in place.
func (s *ImportService) applyOverrides(ctx context.Context, rec *parser.PayslipRecord) []uuid.UUID {
	if s.overrides == nil {
		return nil
	}
	overrides, err := s.overrides.ListOverrides(ctx)
	if err != nil {
		s.logger.Warn("failed to load explanation overrides", slog.Any("error", err))
		return nil
	}

	var matched []uuid.UUID
	for _, items := range [][]parser.LineItem{rec.EarningsItems, rec.DeductionItems} {
		for i := range items {
			o := normalizer.FirstMatching(overrides, items[i].Description)
			if o == nil {
				continue
			}
			items[i].Explanation = o.Explanation
			if !slices.Contains(matched, o.ID) {
				matched = append(matched, o.ID)
			}
		}
	}
	return matched
}

func (s *ImportService) recordMatches(ctx context.Context, ids []uuid.UUID) {
	recorder, ok := s.overrides.(matchRecorder)
	if !ok {
		return
	}
	for _, id := range ids {
		if err := recorder.RecordMatch(ctx, id); err != nil {
			s.logger.Warn("failed to record override match", slog.String("override_id", id.String()), slog.Any("error", err))
		}
	}
}

func (s *ImportService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func contentType(filename string) string {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return "application/pdf"
	}
	return "application/octet-stream"
}
