package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresImportRepository implements ImportRepository using PostgreSQL
type PostgresImportRepository struct {
	db DB
}

// NewPostgresImportRepository creates a new PostgreSQL import repository
func NewPostgresImportRepository(db DB) *PostgresImportRepository {
	return &PostgresImportRepository{db: db}
}

const payslipColumns = `id, period, employee_name, employee_id, payment_date, employer_name,
	earnings_items, deduction_items, total_earnings, total_deductions, net_amount,
	social_security_base, severance_fund_monthly_amount, income_tax_base,
	file_path, file_hash, imported_at`

const timesheetColumns = `id, period, employee_name, summary_items, final_balance, period_balance,
	balance_detail_text, has_absence_days, absence_dates, file_path, file_hash, imported_at`

// ============================================================================
// Payslips
// ============================================================================

// UpsertPayslip stores the payslip, replacing any row for the same period.
func (r *PostgresImportRepository) UpsertPayslip(ctx context.Context, p *Payslip) error {
	earnings, err := json.Marshal(p.Record.EarningsItems)
	if err != nil {
		return fmt.Errorf("failed to encode earnings items: %w", err)
	}
	deductions, err := json.Marshal(p.Record.DeductionItems)
	if err != nil {
		return fmt.Errorf("failed to encode deduction items: %w", err)
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO payslips (id, period, employee_name, employee_id, payment_date, employer_name,
			earnings_items, deduction_items, total_earnings, total_deductions, net_amount,
			social_security_base, severance_fund_monthly_amount, income_tax_base, file_path, file_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (period) DO UPDATE SET
			employee_name = EXCLUDED.employee_name,
			employee_id = EXCLUDED.employee_id,
			payment_date = EXCLUDED.payment_date,
			employer_name = EXCLUDED.employer_name,
			earnings_items = EXCLUDED.earnings_items,
			deduction_items = EXCLUDED.deduction_items,
			total_earnings = EXCLUDED.total_earnings,
			total_deductions = EXCLUDED.total_deductions,
			net_amount = EXCLUDED.net_amount,
			social_security_base = EXCLUDED.social_security_base,
			severance_fund_monthly_amount = EXCLUDED.severance_fund_monthly_amount,
			income_tax_base = EXCLUDED.income_tax_base,
			file_path = EXCLUDED.file_path,
			file_hash = EXCLUDED.file_hash,
			imported_at = NOW()
		RETURNING id, imported_at`

	rec := p.Record
	err = r.db.QueryRow(ctx, query,
		p.ID,
		rec.Period,
		rec.EmployeeName,
		rec.EmployeeID,
		rec.PaymentDate,
		rec.EmployerName,
		earnings,
		deductions,
		rec.TotalEarnings,
		rec.TotalDeductions,
		rec.NetAmount,
		rec.SocialSecurityBase,
		rec.SeveranceFundMonthlyAmount,
		rec.IncomeTaxBase,
		p.FilePath,
		p.FileHash,
	).Scan(&p.ID, &p.ImportedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert payslip: %w", err)
	}
	return nil
}

// GetPayslipByPeriod retrieves the payslip stored for period
func (r *PostgresImportRepository) GetPayslipByPeriod(ctx context.Context, period string) (*Payslip, error) {
	query := `SELECT ` + payslipColumns + ` FROM payslips WHERE period = $1`

	p, err := scanPayslip(r.db.QueryRow(ctx, query, period))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payslip: %w", err)
	}
	return p, nil
}

// ListPayslips returns every stored payslip, most recently imported first
func (r *PostgresImportRepository) ListPayslips(ctx context.Context) ([]*Payslip, error) {
	query := `SELECT ` + payslipColumns + ` FROM payslips ORDER BY imported_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	defer rows.Close()

	payslips := make([]*Payslip, 0)
	for rows.Next() {
		p, err := scanPayslip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payslip: %w", err)
		}
		payslips = append(payslips, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payslips: %w", err)
	}
	return payslips, nil
}

// DeletePayslip removes the payslip stored for period
func (r *PostgresImportRepository) DeletePayslip(ctx context.Context, period string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM payslips WHERE period = $1`, period)
	if err != nil {
		return fmt.Errorf("failed to delete payslip: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPayslip(row pgx.Row) (*Payslip, error) {
	var (
		p                    Payslip
		earnings, deductions []byte
	)
	rec := &p.Record
	err := row.Scan(
		&p.ID,
		&rec.Period,
		&rec.EmployeeName,
		&rec.EmployeeID,
		&rec.PaymentDate,
		&rec.EmployerName,
		&earnings,
		&deductions,
		&rec.TotalEarnings,
		&rec.TotalDeductions,
		&rec.NetAmount,
		&rec.SocialSecurityBase,
		&rec.SeveranceFundMonthlyAmount,
		&rec.IncomeTaxBase,
		&p.FilePath,
		&p.FileHash,
		&p.ImportedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeList(earnings, &rec.EarningsItems); err != nil {
		return nil, fmt.Errorf("earnings items: %w", err)
	}
	if err := decodeList(deductions, &rec.DeductionItems); err != nil {
		return nil, fmt.Errorf("deduction items: %w", err)
	}
	return &p, nil
}

// ============================================================================
// Timesheets
// ============================================================================

// UpsertTimesheet stores the timesheet, replacing any row for the same period.
func (r *PostgresImportRepository) UpsertTimesheet(ctx context.Context, t *Timesheet) error {
	items, err := json.Marshal(t.Record.SummaryItems)
	if err != nil {
		return fmt.Errorf("failed to encode summary items: %w", err)
	}
	absences, err := json.Marshal(t.Record.AbsenceDates)
	if err != nil {
		return fmt.Errorf("failed to encode absence dates: %w", err)
	}

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `
		INSERT INTO timesheets (id, period, employee_name, summary_items, final_balance, period_balance,
			balance_detail_text, has_absence_days, absence_dates, file_path, file_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (period) DO UPDATE SET
			employee_name = EXCLUDED.employee_name,
			summary_items = EXCLUDED.summary_items,
			final_balance = EXCLUDED.final_balance,
			period_balance = EXCLUDED.period_balance,
			balance_detail_text = EXCLUDED.balance_detail_text,
			has_absence_days = EXCLUDED.has_absence_days,
			absence_dates = EXCLUDED.absence_dates,
			file_path = EXCLUDED.file_path,
			file_hash = EXCLUDED.file_hash,
			imported_at = NOW()
		RETURNING id, imported_at`

	rec := t.Record
	err = r.db.QueryRow(ctx, query,
		t.ID,
		rec.Period,
		rec.EmployeeName,
		items,
		rec.FinalBalance,
		rec.PeriodBalance,
		rec.BalanceDetailText,
		rec.HasAbsenceDays,
		absences,
		t.FilePath,
		t.FileHash,
	).Scan(&t.ID, &t.ImportedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert timesheet: %w", err)
	}
	return nil
}

// GetTimesheetByPeriod retrieves the timesheet stored for period
func (r *PostgresImportRepository) GetTimesheetByPeriod(ctx context.Context, period string) (*Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets WHERE period = $1`

	t, err := scanTimesheet(r.db.QueryRow(ctx, query, period))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timesheet: %w", err)
	}
	return t, nil
}

// ListTimesheets returns every stored timesheet, most recently imported first
func (r *PostgresImportRepository) ListTimesheets(ctx context.Context) ([]*Timesheet, error) {
	query := `SELECT ` + timesheetColumns + ` FROM timesheets ORDER BY imported_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}
	defer rows.Close()

	timesheets := make([]*Timesheet, 0)
	for rows.Next() {
		t, err := scanTimesheet(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		timesheets = append(timesheets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timesheets: %w", err)
	}
	return timesheets, nil
}

// DeleteTimesheet removes the timesheet stored for period
func (r *PostgresImportRepository) DeleteTimesheet(ctx context.Context, period string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM timesheets WHERE period = $1`, period)
	if err != nil {
		return fmt.Errorf("failed to delete timesheet: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTimesheet(row pgx.Row) (*Timesheet, error) {
	var (
		t               Timesheet
		items, absences []byte
	)
	rec := &t.Record
	err := row.Scan(
		&t.ID,
		&rec.Period,
		&rec.EmployeeName,
		&items,
		&rec.FinalBalance,
		&rec.PeriodBalance,
		&rec.BalanceDetailText,
		&rec.HasAbsenceDays,
		&absences,
		&t.FilePath,
		&t.FileHash,
		&t.ImportedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeList(items, &rec.SummaryItems); err != nil {
		return nil, fmt.Errorf("summary items: %w", err)
	}
	if err := decodeList(absences, &rec.AbsenceDates); err != nil {
		return nil, fmt.Errorf("absence dates: %w", err)
	}
	return &t, nil
}

// ============================================================================
// Shared
// ============================================================================

// FindByHash locates a previous import of the same file content.
func (r *PostgresImportRepository) FindByHash(ctx context.Context, hash string) (*ImportRef, error) {
	query := `
		SELECT 'payslip' AS kind, id, period FROM payslips WHERE file_hash = $1
		UNION ALL
		SELECT 'timesheet' AS kind, id, period FROM timesheets WHERE file_hash = $1
		LIMIT 1`

	var ref ImportRef
	err := r.db.QueryRow(ctx, query, hash).Scan(&ref.Kind, &ref.ID, &ref.Period)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find import by hash: %w", err)
	}
	return &ref, nil
}

// decodeList unmarshals a JSONB list column; NULL or empty yields an empty,
// non-nil slice.
func decodeList[T any](data []byte, dst *[]T) error {
	if len(data) > 0 {
		if err := json.Unmarshal(data, dst); err != nil {
			return err
		}
	}
	if *dst == nil {
		*dst = make([]T, 0)
	}
	return nil
}
