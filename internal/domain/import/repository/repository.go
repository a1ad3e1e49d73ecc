// Package repository provides database operations for imported documents.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
)

// ErrNotFound is returned when no document is stored for the lookup key.
var ErrNotFound = errors.New("document not found")

// Document kinds as stored in ImportRef.Kind.
const (
	KindPayslip   = "payslip"
	KindTimesheet = "timesheet"
)

// Payslip is a parsed payslip together with its stored source file.
type Payslip struct {
	ID         uuid.UUID            `json:"id"`
	Record     parser.PayslipRecord `json:"record"`
	FilePath   string               `json:"file_path"`
	FileHash   string               `json:"file_hash"`
	ImportedAt time.Time            `json:"imported_at"`
}

// Timesheet is a parsed timesheet mirror together with its stored source file.
type Timesheet struct {
	ID         uuid.UUID              `json:"id"`
	Record     parser.TimesheetRecord `json:"record"`
	FilePath   string                 `json:"file_path"`
	FileHash   string                 `json:"file_hash"`
	ImportedAt time.Time              `json:"imported_at"`
}

// ImportRef points at a stored document of either kind.
type ImportRef struct {
	Kind   string
	ID     uuid.UUID
	Period string
}

// ImportRepository defines persistence for imported documents. Each kind
// keeps one row per period; saving a period again replaces it.
type ImportRepository interface {
	UpsertPayslip(ctx context.Context, p *Payslip) error
	UpsertTimesheet(ctx context.Context, t *Timesheet) error

	GetPayslipByPeriod(ctx context.Context, period string) (*Payslip, error)
	GetTimesheetByPeriod(ctx context.Context, period string) (*Timesheet, error)

	ListPayslips(ctx context.Context) ([]*Payslip, error)
	ListTimesheets(ctx context.Context) ([]*Timesheet, error)

	DeletePayslip(ctx context.Context, period string) error
	DeleteTimesheet(ctx context.Context, period string) error

	// FindByHash locates a previous import of the same file content.
	FindByHash(ctx context.Context, hash string) (*ImportRef, error)
}
