package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryImportRepository keeps imports in process memory. It backs the
// database-less mode and the package tests of the import consumers.
type MemoryImportRepository struct {
	mu         sync.RWMutex
	payslips   map[string]*Payslip
	timesheets map[string]*Timesheet
	now        func() time.Time
}

// NewMemoryImportRepository creates an empty in-memory repository.
func NewMemoryImportRepository() *MemoryImportRepository {
	return &MemoryImportRepository{
		payslips:   make(map[string]*Payslip),
		timesheets: make(map[string]*Timesheet),
		now:        time.Now,
	}
}

func (r *MemoryImportRepository) UpsertPayslip(_ context.Context, p *Payslip) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.payslips[p.Record.Period]; ok {
		p.ID = prev.ID
	} else if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.ImportedAt = r.tick()

	stored := *p
	r.payslips[p.Record.Period] = &stored
	return nil
}

func (r *MemoryImportRepository) UpsertTimesheet(_ context.Context, t *Timesheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.timesheets[t.Record.Period]; ok {
		t.ID = prev.ID
	} else if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.ImportedAt = r.tick()

	stored := *t
	r.timesheets[t.Record.Period] = &stored
	return nil
}

func (r *MemoryImportRepository) GetPayslipByPeriod(_ context.Context, period string) (*Payslip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payslips[period]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *MemoryImportRepository) GetTimesheetByPeriod(_ context.Context, period string) (*Timesheet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.timesheets[period]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

// ListPayslips returns payslips newest import first.
func (r *MemoryImportRepository) ListPayslips(_ context.Context) ([]*Payslip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Payslip, 0, len(r.payslips))
	for _, p := range r.payslips {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImportedAt.After(out[j].ImportedAt) })
	return out, nil
}

// ListTimesheets returns timesheets newest import first.
func (r *MemoryImportRepository) ListTimesheets(_ context.Context) ([]*Timesheet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Timesheet, 0, len(r.timesheets))
	for _, t := range r.timesheets {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImportedAt.After(out[j].ImportedAt) })
	return out, nil
}

func (r *MemoryImportRepository) DeletePayslip(_ context.Context, period string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payslips[period]; !ok {
		return ErrNotFound
	}
	delete(r.payslips, period)
	return nil
}

func (r *MemoryImportRepository) DeleteTimesheet(_ context.Context, period string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.timesheets[period]; !ok {
		return ErrNotFound
	}
	delete(r.timesheets, period)
	return nil
}

func (r *MemoryImportRepository) FindByHash(_ context.Context, hash string) (*ImportRef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if hash == "" {
		return nil, ErrNotFound
	}
	for _, p := range r.payslips {
		if p.FileHash == hash {
			return &ImportRef{Kind: KindPayslip, ID: p.ID, Period: p.Record.Period}, nil
		}
	}
	for _, t := range r.timesheets {
		if t.FileHash == hash {
			return &ImportRef{Kind: KindTimesheet, ID: t.ID, Period: t.Record.Period}, nil
		}
	}
	return nil, ErrNotFound
}

// tick returns a strictly increasing timestamp so list order follows
// insertion order even when the clock does not advance.
func (r *MemoryImportRepository) tick() time.Time {
	ts := r.now().UTC()
	for _, p := range r.payslips {
		if !ts.After(p.ImportedAt) {
			ts = p.ImportedAt.Add(time.Microsecond)
		}
	}
	for _, t := range r.timesheets {
		if !ts.After(t.ImportedAt) {
			ts = t.ImportedAt.Add(time.Microsecond)
		}
	}
	return ts
}

var _ ImportRepository = (*MemoryImportRepository)(nil)
