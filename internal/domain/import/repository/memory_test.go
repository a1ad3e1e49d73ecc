package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
)

func TestMemoryImportRepository_Payslips(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryImportRepository()

	first := &Payslip{Record: parser.PayslipRecord{Period: "JAN/2024", NetAmount: "1,00"}, FileHash: "h1"}
	require.NoError(t, repo.UpsertPayslip(ctx, first))
	second := &Payslip{Record: parser.PayslipRecord{Period: "FEV/2024"}, FileHash: "h2"}
	require.NoError(t, repo.UpsertPayslip(ctx, second))

	t.Run("upsert replaces the period and keeps the id", func(t *testing.T) {
		again := &Payslip{Record: parser.PayslipRecord{Period: "JAN/2024", NetAmount: "2,00"}, FileHash: "h3"}
		require.NoError(t, repo.UpsertPayslip(ctx, again))
		assert.Equal(t, first.ID, again.ID)

		got, err := repo.GetPayslipByPeriod(ctx, "JAN/2024")
		require.NoError(t, err)
		assert.Equal(t, "2,00", got.Record.NetAmount)
	})

	t.Run("list is newest first", func(t *testing.T) {
		list, err := repo.ListPayslips(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "JAN/2024", list[0].Record.Period)
		assert.Equal(t, "FEV/2024", list[1].Record.Period)
	})

	t.Run("find by hash", func(t *testing.T) {
		ref, err := repo.FindByHash(ctx, "h2")
		require.NoError(t, err)
		assert.Equal(t, ImportRef{Kind: KindPayslip, ID: second.ID, Period: "FEV/2024"}, *ref)

		_, err = repo.FindByHash(ctx, "h1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeletePayslip(ctx, "FEV/2024"))
		assert.ErrorIs(t, repo.DeletePayslip(ctx, "FEV/2024"), ErrNotFound)
		_, err := repo.GetPayslipByPeriod(ctx, "FEV/2024")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryImportRepository_Timesheets(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryImportRepository()

	ts := &Timesheet{Record: parser.TimesheetRecord{Period: "01/2024", FinalBalance: "1:00"}, FileHash: "t1"}
	require.NoError(t, repo.UpsertTimesheet(ctx, ts))

	got, err := repo.GetTimesheetByPeriod(ctx, "01/2024")
	require.NoError(t, err)
	assert.Equal(t, ts.ID, got.ID)
	assert.False(t, got.ImportedAt.IsZero())

	ref, err := repo.FindByHash(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, KindTimesheet, ref.Kind)

	require.NoError(t, repo.DeleteTimesheet(ctx, "01/2024"))
	list, err := repo.ListTimesheets(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
