// Package insights computes dashboards and history views over imported
// payslips and timesheets.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
	"github.com/FACorreiaa/meu-holerite/pkg/money"
	"github.com/FACorreiaa/meu-holerite/pkg/timebank"
)

// ErrPeriodNotFound is returned when a compared period has no payslip.
var ErrPeriodNotFound = errors.New("period not found")

// NetPoint is one period of the net pay history.
type NetPoint struct {
	Period     string       `json:"period"`
	NetAmount  *money.Money `json:"net_amount"`
	Earnings   *money.Money `json:"earnings"`
	Deductions *money.Money `json:"deductions"`
}

// BalancePoint is one period of the time-bank history.
type BalancePoint struct {
	Period       string           `json:"period"`
	FinalBalance timebank.Minutes `json:"final_balance_minutes"`
	AbsenceDays  int              `json:"absence_days"`
}

// Dashboard is the home screen summary.
type Dashboard struct {
	LatestPayslip   *repository.Payslip   `json:"latest_payslip,omitempty"`
	LatestTimesheet *repository.Timesheet `json:"latest_timesheet,omitempty"`

	NetHistory      []NetPoint   `json:"net_history"`
	AverageNet      *money.Money `json:"average_net"`
	TotalEarnings   *money.Money `json:"total_earnings"`
	TotalDeductions *money.Money `json:"total_deductions"`
	// DeductionRate is total deductions as a percentage of total earnings.
	DeductionRate decimal.Decimal `json:"deduction_rate"`

	BalanceHistory []BalancePoint `json:"balance_history"`
	// TimeBankBalance is the final balance of the latest timesheet.
	TimeBankBalance  timebank.Minutes `json:"time_bank_balance_minutes"`
	TimeBankDisplay  string           `json:"time_bank_balance"`
	TotalAbsenceDays int              `json:"total_absence_days"`
}

// LineDelta compares one payroll code across two periods.
type LineDelta struct {
	Code        string       `json:"code"`
	Description string       `json:"description"`
	Side        string       `json:"side"`
	AmountA     *money.Money `json:"amount_a"`
	AmountB     *money.Money `json:"amount_b"`
	Delta       *money.Money `json:"delta"`
}

// PeriodComparison is the line-by-line difference of two payslips.
type PeriodComparison struct {
	PeriodA  string       `json:"period_a"`
	PeriodB  string       `json:"period_b"`
	Lines    []LineDelta  `json:"lines"`
	NetDelta *money.Money `json:"net_delta"`
}

// Service handles insights business logic
type Service struct {
	repo      repository.ImportRepository
	index     *SearchIndex
	suggester *Suggester
	logger    *slog.Logger

	mu        sync.Mutex
	indexedAt string
}

// NewService creates a new insights service
func NewService(repo repository.ImportRepository, index *SearchIndex, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		index:     index,
		suggester: NewSuggester(),
		logger:    logger,
	}
}

// Dashboard summarises every stored document.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	payslips, err := s.repo.ListPayslips(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	timesheets, err := s.repo.ListTimesheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list timesheets: %w", err)
	}

	// Lists arrive newest import first; history reads oldest first.
	slices.Reverse(payslips)
	slices.Reverse(timesheets)
	sortByPeriod(payslips, func(p *repository.Payslip) string { return p.Record.Period })
	sortByPeriod(timesheets, func(t *repository.Timesheet) string { return t.Record.Period })

	d := &Dashboard{
		NetHistory:     make([]NetPoint, 0, len(payslips)),
		BalanceHistory: make([]BalancePoint, 0, len(timesheets)),
	}

	nets := make([]*money.Money, 0, len(payslips))
	earnings := make([]*money.Money, 0, len(payslips))
	deductions := make([]*money.Money, 0, len(payslips))
	for _, p := range payslips {
		point := NetPoint{
			Period:     p.Record.Period,
			NetAmount:  money.ParseBRL(p.Record.NetAmount),
			Earnings:   money.ParseBRL(p.Record.TotalEarnings),
			Deductions: money.ParseBRL(p.Record.TotalDeductions),
		}
		d.NetHistory = append(d.NetHistory, point)
		nets = append(nets, point.NetAmount)
		earnings = append(earnings, point.Earnings)
		deductions = append(deductions, point.Deductions)
	}

	if d.AverageNet, err = money.Average(money.BRL, nets...); err != nil {
		return nil, err
	}
	if d.TotalEarnings, err = money.Sum(money.BRL, earnings...); err != nil {
		return nil, err
	}
	if d.TotalDeductions, err = money.Sum(money.BRL, deductions...); err != nil {
		return nil, err
	}
	d.DeductionRate = d.TotalDeductions.PercentageOf(d.TotalEarnings)

	for _, t := range timesheets {
		d.BalanceHistory = append(d.BalanceHistory, BalancePoint{
			Period:       t.Record.Period,
			FinalBalance: timebank.Parse(t.Record.FinalBalance),
			AbsenceDays:  len(t.Record.AbsenceDates),
		})
		d.TotalAbsenceDays += len(t.Record.AbsenceDates)
	}

	if n := len(payslips); n > 0 {
		d.LatestPayslip = payslips[n-1]
	}
	if n := len(timesheets); n > 0 {
		d.LatestTimesheet = timesheets[n-1]
		d.TimeBankBalance = timebank.Parse(d.LatestTimesheet.Record.FinalBalance)
	}
	d.TimeBankDisplay = d.TimeBankBalance.String()

	return d, nil
}

// PeriodComparison returns per-code amount deltas from period a to period b.
func (s *Service) PeriodComparison(ctx context.Context, a, b string) (*PeriodComparison, error) {
	pa, err := s.payslip(ctx, a)
	if err != nil {
		return nil, err
	}
	pb, err := s.payslip(ctx, b)
	if err != nil {
		return nil, err
	}

	type key struct{ side, code string }
	lines := make(map[key]*LineDelta)
	var order []key

	collect := func(rec parser.PayslipRecord, assign func(*LineDelta, *money.Money)) {
		for _, side := range []struct {
			name  string
			items []parser.LineItem
		}{{SideEarning, rec.EarningsItems}, {SideDeduction, rec.DeductionItems}} {
			for _, it := range side.items {
				k := key{side.name, it.Code}
				ld, ok := lines[k]
				if !ok {
					ld = &LineDelta{
						Code:        it.Code,
						Description: it.Description,
						Side:        side.name,
						AmountA:     money.Zero(money.BRL),
						AmountB:     money.Zero(money.BRL),
					}
					lines[k] = ld
					order = append(order, k)
				}
				assign(ld, money.ParseBRL(it.Amount))
			}
		}
	}
	collect(pa.Record, func(ld *LineDelta, m *money.Money) { ld.AmountA, _ = ld.AmountA.Add(m) })
	collect(pb.Record, func(ld *LineDelta, m *money.Money) { ld.AmountB, _ = ld.AmountB.Add(m) })

	cmp := &PeriodComparison{PeriodA: a, PeriodB: b, Lines: make([]LineDelta, 0, len(order))}
	for _, k := range order {
		ld := lines[k]
		if ld.Delta, err = ld.AmountB.Subtract(ld.AmountA); err != nil {
			return nil, err
		}
		cmp.Lines = append(cmp.Lines, *ld)
	}
	sort.SliceStable(cmp.Lines, func(i, j int) bool {
		if cmp.Lines[i].Side != cmp.Lines[j].Side {
			return cmp.Lines[i].Side == SideEarning
		}
		return cmp.Lines[i].Code < cmp.Lines[j].Code
	})

	if cmp.NetDelta, err = money.ParseBRL(pb.Record.NetAmount).Subtract(money.ParseBRL(pa.Record.NetAmount)); err != nil {
		return nil, err
	}
	return cmp, nil
}

// Search finds line items across every stored payslip.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchHit{}, nil
	}
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.index.Search(query, limit)
}

// LinesByCode lists every stored occurrence of a payroll code.
func (s *Service) LinesByCode(ctx context.Context, code string) ([]SearchHit, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.index.SearchByCode(strings.ToUpper(strings.TrimSpace(code)), 0)
}

// Suggest ranks known line-item descriptions for autocomplete.
func (s *Service) Suggest(ctx context.Context, input string, limit int) ([]Suggestion, error) {
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.suggester.Suggest(input, limit), nil
}

// refresh rebuilds the search index and suggester when stored payslips
// changed since the last build.
func (s *Service) refresh(ctx context.Context) error {
	payslips, err := s.repo.ListPayslips(ctx)
	if err != nil {
		return fmt.Errorf("failed to list payslips: %w", err)
	}

	version := snapshotVersion(payslips)

	s.mu.Lock()
	defer s.mu.Unlock()
	if version == s.indexedAt {
		return nil
	}

	if err := s.index.Rebuild(payslips); err != nil {
		return err
	}
	var descriptions []string
	for _, p := range payslips {
		for _, it := range p.Record.EarningsItems {
			descriptions = append(descriptions, it.Description)
		}
		for _, it := range p.Record.DeductionItems {
			descriptions = append(descriptions, it.Description)
		}
	}
	s.suggester.Build(descriptions)
	s.indexedAt = version

	s.logger.Debug("rebuilt line item index", slog.Int("payslips", len(payslips)))
	return nil
}

func snapshotVersion(payslips []*repository.Payslip) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(payslips)))
	for _, p := range payslips {
		b.WriteString("|")
		b.WriteString(p.ID.String())
		b.WriteString("@")
		b.WriteString(strconv.FormatInt(p.ImportedAt.UnixNano(), 10))
	}
	return b.String()
}

func (s *Service) payslip(ctx context.Context, period string) (*repository.Payslip, error) {
	p, err := s.repo.GetPayslipByPeriod(ctx, period)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, period)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payslip %s: %w", period, err)
	}
	return p, nil
}
