package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
)

func seededService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewMemoryImportRepository()

	require.NoError(t, repo.UpsertPayslip(ctx, &repository.Payslip{
		FilePath: "/data/jan.pdf",
		Record: parser.PayslipRecord{
			EmployeeName:    "JOÃO PEREIRA",
			EmployeeID:      "004512",
			Period:          "JAN/2024",
			PaymentDate:     "05/02/2024",
			EmployerName:    parser.DefaultEmployerName,
			TotalEarnings:   "1.636,36",
			TotalDeductions: "422,45",
			NetAmount:       "1.213,91",
			EarningsItems: []parser.LineItem{
				{Code: "V001", Description: "SALARIO BASE", Reference: "30,00", Amount: "1.500,00", Explanation: "Salário base"},
				{Code: "V010", Description: "HORAS EXTRAS 50%", Reference: "10,00", Amount: "136,36"},
			},
			DeductionItems: []parser.LineItem{
				{Code: "D001", Description: "INSS", Reference: "7,50", Amount: "122,45"},
			},
		},
	}))

	require.NoError(t, repo.UpsertTimesheet(ctx, &repository.Timesheet{
		FilePath: "/data/ponto.pdf",
		Record: parser.TimesheetRecord{
			EmployeeName:  "MARIA DA SILVA",
			Period:        "01/01/2024 a 31/01/2024",
			FinalBalance:  "-1:30",
			PeriodBalance: "0:45",
			SummaryItems:  []parser.SummaryItem{{Label: parser.LabelWorkedHours, Value: "160:00"}},
			AbsenceDates:  []string{"03/01/2024", "04/01/2024"},
		},
	}))

	return NewService(repo, nil)
}

func readCSV(t *testing.T, data string) [][]string {
	t.Helper()
	rows, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

// ============================================================================
// CSV
// ============================================================================

func TestPayslipsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, seededService(t).PayslipsCSV(context.Background(), &buf))

	rows := readCSV(t, buf.String())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"periodo", "funcionario", "matricula", "data_pagamento", "total_vencimentos",
		"total_descontos", "valor_liquido", "base_inss", "fgts_mes", "base_irrf", "arquivo",
	}, rows[0])
	assert.Equal(t, "JAN/2024", rows[1][0])
	assert.Equal(t, "JOÃO PEREIRA", rows[1][1])
	assert.Equal(t, "1.213,91", rows[1][6])
	assert.Equal(t, "/data/jan.pdf", rows[1][10])
}

func TestTimesheetsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, seededService(t).TimesheetsCSV(context.Background(), &buf))

	rows := readCSV(t, buf.String())
	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"01/01/2024 a 31/01/2024", "MARIA DA SILVA", "160:00", "0:45", "-1:30", "-90", "2",
		"03/01/2024 04/01/2024", "/data/ponto.pdf",
	}, rows[1])
}

func TestCSV_Empty(t *testing.T) {
	svc := NewService(repository.NewMemoryImportRepository(), nil)

	var buf bytes.Buffer
	require.NoError(t, svc.PayslipsCSV(context.Background(), &buf))
	rows := readCSV(t, buf.String())
	require.Len(t, rows, 1, "header only")
}

// ============================================================================
// XLSX
// ============================================================================

func TestPayslipsXLSX(t *testing.T) {
	data, err := seededService(t).PayslipsXLSX(context.Background())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Holerites", "Rubricas"}, f.GetSheetList())

	summary, err := f.GetRows("Holerites")
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.Equal(t, "Período", summary[0][0])
	assert.Equal(t, "JAN/2024", summary[1][0])

	net, err := f.GetCellValue("Holerites", "G2")
	require.NoError(t, err)
	assert.Equal(t, "1213.91", net)

	items, err := f.GetRows("Rubricas")
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, []string{"JAN/2024", "vencimento", "V001", "SALARIO BASE", "30,00", "1500", "Salário base"}, items[1])
	assert.Equal(t, "desconto", items[3][1])
}

// ============================================================================
// PDF
// ============================================================================

func TestPayslipReportPDF(t *testing.T) {
	svc := seededService(t)

	data, err := svc.PayslipReportPDF(context.Background(), "JAN/2024")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = svc.PayslipReportPDF(context.Background(), "FEV/2024")
	assert.ErrorIs(t, err, ErrPeriodNotFound)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "ação", truncate("ação", 4))
}
