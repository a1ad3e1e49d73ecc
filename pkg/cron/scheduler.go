// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	importservice "github.com/FACorreiaa/meu-holerite/internal/domain/import/service"
)

// Sub-directories of the inbox that receive files after a scan.
const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Importer is the part of the import service the inbox job needs.
type Importer interface {
	ImportFile(ctx context.Context, filename string, data []byte) (*importservice.ImportResult, error)
}

// InboxConfig configures the inbox scan job.
type InboxConfig struct {
	Dir      string
	Schedule string
	Timeout  time.Duration
}

// ScanStats summarises one inbox scan.
type ScanStats struct {
	Matched      int
	Imported     int
	Duplicates   int
	Unrecognized int
	Failed       int
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	importer Importer
	cfg      InboxConfig
	logger   *slog.Logger

	// scanMu keeps a slow scan from overlapping the next tick.
	scanMu sync.Mutex
}

// NewScheduler creates a new job scheduler.
func NewScheduler(importer Importer, cfg InboxConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		importer: importer,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	_, err := s.cron.AddFunc(s.cfg.Schedule, s.runScan)
	if err != nil {
		return fmt.Errorf("invalid inbox schedule %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("inbox", s.cfg.Dir),
		slog.String("schedule", s.cfg.Schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers an inbox scan.
func (s *Scheduler) RunNow() {
	go s.runScan()
}

func (s *Scheduler) runScan() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	if _, err := s.ScanInbox(ctx); err != nil {
		s.logger.Error("inbox scan failed", slog.Any("error", err))
	}
}

// ScanInbox imports every PDF at the top level of the inbox. Handled files
// move to processed/, rejected ones to failed/, so each file is seen once.
func (s *Scheduler) ScanInbox(ctx context.Context) (ScanStats, error) {
	if !s.scanMu.TryLock() {
		s.logger.Debug("inbox scan already running")
		return ScanStats{}, nil
	}
	defer s.scanMu.Unlock()

	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return ScanStats{}, fmt.Errorf("failed to read inbox: %w", err)
	}

	var stats ScanStats
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if !isCandidate(entry) {
			continue
		}
		stats.Matched++
		s.importOne(ctx, entry.Name(), &stats)
	}

	s.logger.Info("inbox scan completed",
		slog.Int("matched", stats.Matched),
		slog.Int("imported", stats.Imported),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("unrecognized", stats.Unrecognized),
		slog.Int("failed", stats.Failed),
	)
	return stats, nil
}

func (s *Scheduler) importOne(ctx context.Context, name string, stats *ScanStats) {
	path := filepath.Join(s.cfg.Dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("failed to read inbox file", slog.String("file", name), slog.Any("error", err))
		stats.Failed++
		return
	}

	result, err := s.importer.ImportFile(ctx, name, data)
	switch {
	case errors.Is(err, importservice.ErrDocumentNotRecognized):
		stats.Unrecognized++
		s.move(path, failedDir)
		return
	case err != nil:
		// Left in place so the next scan retries.
		s.logger.Warn("failed to import inbox file", slog.String("file", name), slog.Any("error", err))
		stats.Failed++
		return
	case result.Duplicate:
		stats.Duplicates++
	default:
		stats.Imported++
		s.logger.Debug("imported inbox file",
			slog.String("file", name),
			slog.String("kind", string(result.Kind)),
			slog.String("period", result.Period),
		)
	}
	s.move(path, processedDir)
}

func (s *Scheduler) move(path, subdir string) {
	dst := filepath.Join(s.cfg.Dir, subdir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		s.logger.Warn("failed to create inbox subdirectory", slog.String("dir", dst), slog.Any("error", err))
		return
	}
	target := filepath.Join(dst, time.Now().UTC().Format("20060102T150405")+"_"+filepath.Base(path))
	if err := os.Rename(path, target); err != nil {
		s.logger.Warn("failed to move inbox file", slog.String("file", path), slog.Any("error", err))
	}
}

func isCandidate(entry fs.DirEntry) bool {
	name := entry.Name()
	if entry.IsDir() || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}
