package insights

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
	"github.com/FACorreiaa/meu-holerite/pkg/timebank"
)

func payslip(period, net, earnings, deductions string, items ...parser.LineItem) *repository.Payslip {
	rec := parser.PayslipRecord{
		Period:          period,
		NetAmount:       net,
		TotalEarnings:   earnings,
		TotalDeductions: deductions,
		EarningsItems:   []parser.LineItem{},
		DeductionItems:  []parser.LineItem{},
	}
	for _, it := range items {
		if it.IsEarning() {
			rec.EarningsItems = append(rec.EarningsItems, it)
		} else {
			rec.DeductionItems = append(rec.DeductionItems, it)
		}
	}
	return &repository.Payslip{Record: rec}
}

func newTestService(t *testing.T) (*Service, *repository.MemoryImportRepository) {
	t.Helper()
	index, err := NewSearchIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	repo := repository.NewMemoryImportRepository()
	return NewService(repo, index, nil), repo
}

func seed(t *testing.T, repo *repository.MemoryImportRepository) {
	t.Helper()
	ctx := context.Background()

	// Imported out of order on purpose.
	for _, p := range []*repository.Payslip{
		payslip("FEV/2024", "2.100,00", "2.500,00", "400,00",
			parser.LineItem{Code: "V001", Description: "SALÁRIO BASE", Amount: "2.500,00"},
			parser.LineItem{Code: "D001", Description: "INSS", Amount: "300,00"},
			parser.LineItem{Code: "D050", Description: "VALE TRANSPORTE", Amount: "100,00"}),
		payslip("JAN/2024", "1.900,00", "2.300,00", "400,00",
			parser.LineItem{Code: "V001", Description: "SALÁRIO BASE", Amount: "2.000,00"},
			parser.LineItem{Code: "V010", Description: "HORAS EXTRAS 50%", Amount: "300,00"},
			parser.LineItem{Code: "D001", Description: "INSS", Amount: "400,00"}),
		payslip("MAR/2024", "texto", "", "", parser.LineItem{Code: "V001", Description: "SALÁRIO BASE", Amount: "???"}),
	} {
		require.NoError(t, repo.UpsertPayslip(ctx, p))
	}

	for _, ts := range []*repository.Timesheet{
		{Record: parser.TimesheetRecord{Period: "01/02/2024 a 29/02/2024", FinalBalance: "-1:30", AbsenceDates: []string{"05/02/2024"}}},
		{Record: parser.TimesheetRecord{Period: "01/01/2024 a 31/01/2024", FinalBalance: "2:15", AbsenceDates: []string{"03/01/2024", "04/01/2024"}}},
	} {
		require.NoError(t, repo.UpsertTimesheet(ctx, ts))
	}
}

// ============================================================================
// Dashboard
// ============================================================================

func TestDashboard(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	require.Len(t, d.NetHistory, 3)
	assert.Equal(t, []string{"JAN/2024", "FEV/2024", "MAR/2024"},
		[]string{d.NetHistory[0].Period, d.NetHistory[1].Period, d.NetHistory[2].Period})
	assert.Equal(t, int64(190000), d.NetHistory[0].NetAmount.Amount())
	assert.True(t, d.NetHistory[2].NetAmount.IsZero(), "unparsable amounts count as zero")

	assert.Equal(t, int64(133333), d.AverageNet.Amount())
	assert.Equal(t, int64(480000), d.TotalEarnings.Amount())
	assert.Equal(t, int64(80000), d.TotalDeductions.Amount())
	assert.True(t, decimal.RequireFromString("16.67").Equal(d.DeductionRate), d.DeductionRate.String())

	require.NotNil(t, d.LatestPayslip)
	assert.Equal(t, "MAR/2024", d.LatestPayslip.Record.Period)

	require.NotNil(t, d.LatestTimesheet)
	assert.Equal(t, "01/02/2024 a 29/02/2024", d.LatestTimesheet.Record.Period)
	assert.Equal(t, timebank.Minutes(-90), d.TimeBankBalance)
	assert.Equal(t, "-1:30", d.TimeBankDisplay)
	assert.Equal(t, 3, d.TotalAbsenceDays)
	require.Len(t, d.BalanceHistory, 2)
	assert.Equal(t, timebank.Minutes(135), d.BalanceHistory[0].FinalBalance)
}

func TestDashboard_Empty(t *testing.T) {
	svc, _ := newTestService(t)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Nil(t, d.LatestPayslip)
	assert.Nil(t, d.LatestTimesheet)
	assert.NotNil(t, d.NetHistory)
	assert.True(t, d.AverageNet.IsZero())
	assert.True(t, d.DeductionRate.IsZero())
	assert.Equal(t, "0:00", d.TimeBankDisplay)
}

// ============================================================================
// Period comparison
// ============================================================================

func TestPeriodComparison(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo)

	cmp, err := svc.PeriodComparison(context.Background(), "JAN/2024", "FEV/2024")
	require.NoError(t, err)

	byCode := map[string]LineDelta{}
	for _, l := range cmp.Lines {
		byCode[l.Code] = l
	}
	require.Len(t, byCode, 4)

	assert.Equal(t, int64(50000), byCode["V001"].Delta.Amount())
	assert.Equal(t, int64(-30000), byCode["V010"].Delta.Amount(), "line missing in b counts as zero")
	assert.Equal(t, int64(-10000), byCode["D001"].Delta.Amount())
	assert.Equal(t, int64(10000), byCode["D050"].Delta.Amount())
	assert.Equal(t, int64(20000), cmp.NetDelta.Amount())

	assert.Equal(t, SideEarning, cmp.Lines[0].Side)
	assert.Equal(t, "V001", cmp.Lines[0].Code)
	assert.Equal(t, SideDeduction, cmp.Lines[len(cmp.Lines)-1].Side)

	_, err = svc.PeriodComparison(context.Background(), "JAN/2024", "DEZ/1999")
	assert.ErrorIs(t, err, ErrPeriodNotFound)
}

// ============================================================================
// Search and suggestions
// ============================================================================

func TestSearch(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo)
	ctx := context.Background()

	hits, err := svc.Search(ctx, "salario", 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, h := range hits {
		assert.Equal(t, "V001", h.Document.Code)
	}

	t.Run("index follows new imports", func(t *testing.T) {
		require.NoError(t, repo.UpsertPayslip(ctx, payslip("ABR/2024", "1,00", "1,00", "0,00",
			parser.LineItem{Code: "D070", Description: "PENSÃO ALIMENTÍCIA", Amount: "1,00"})))

		hits, err := svc.Search(ctx, "pensao", 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "ABR/2024", hits[0].Document.Period)
		assert.Equal(t, SideDeduction, hits[0].Document.Side)
	})

	t.Run("blank query", func(t *testing.T) {
		hits, err := svc.Search(ctx, "  ", 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestLinesByCode(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo)

	hits, err := svc.LinesByCode(context.Background(), "d001")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSuggest(t *testing.T) {
	svc, repo := newTestService(t)
	seed(t, repo)

	got, err := svc.Suggest(context.Background(), "hrs ext", 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "HORAS EXTRAS 50%", got[0].Description)
}
