// Package export renders the stored payslip and timesheet history as CSV,
// XLSX and PDF downloads.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/repository"
	"github.com/FACorreiaa/meu-holerite/pkg/money"
	"github.com/FACorreiaa/meu-holerite/pkg/timebank"
)

// ErrPeriodNotFound is returned when a report is requested for an unknown period.
var ErrPeriodNotFound = errors.New("period not found")

// PayslipRow is one payslip in the CSV and XLSX summary.
type PayslipRow struct {
	Period          string `csv:"periodo"`
	EmployeeName    string `csv:"funcionario"`
	EmployeeID      string `csv:"matricula"`
	PaymentDate     string `csv:"data_pagamento"`
	TotalEarnings   string `csv:"total_vencimentos"`
	TotalDeductions string `csv:"total_descontos"`
	NetAmount       string `csv:"valor_liquido"`
	INSSBase        string `csv:"base_inss"`
	FGTS            string `csv:"fgts_mes"`
	IRRFBase        string `csv:"base_irrf"`
	FilePath        string `csv:"arquivo"`
}

// LineItemRow is one earning or deduction line.
type LineItemRow struct {
	Period      string `csv:"periodo"`
	Side        string `csv:"tipo"`
	Code        string `csv:"codigo"`
	Description string `csv:"descricao"`
	Reference   string `csv:"referencia"`
	Amount      string `csv:"valor"`
	Explanation string `csv:"explicacao"`
}

// TimesheetRow is one timesheet mirror in the CSV export.
type TimesheetRow struct {
	Period        string `csv:"periodo"`
	EmployeeName  string `csv:"funcionario"`
	WorkedHours   string `csv:"horas_trabalhadas"`
	PeriodBalance string `csv:"saldo_periodo"`
	FinalBalance  string `csv:"saldo_final"`
	// BalanceMinutes is FinalBalance in signed minutes for spreadsheets.
	BalanceMinutes int    `csv:"saldo_final_minutos"`
	AbsenceDays    int    `csv:"dias_falta"`
	AbsenceDates   string `csv:"datas_falta"`
	FilePath       string `csv:"arquivo"`
}

// Service produces export files from the import repository.
type Service struct {
	repo   repository.ImportRepository
	logger *slog.Logger
}

func NewService(repo repository.ImportRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// PayslipsCSV writes the payslip summary, newest import first.
func (s *Service) PayslipsCSV(ctx context.Context, w io.Writer) error {
	payslips, err := s.repo.ListPayslips(ctx)
	if err != nil {
		return fmt.Errorf("failed to list payslips: %w", err)
	}

	rows := make([]*PayslipRow, 0, len(payslips))
	for _, p := range payslips {
		rows = append(rows, payslipRow(p))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write payslips csv: %w", err)
	}
	return nil
}

// TimesheetsCSV writes the timesheet summary, newest import first.
func (s *Service) TimesheetsCSV(ctx context.Context, w io.Writer) error {
	timesheets, err := s.repo.ListTimesheets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list timesheets: %w", err)
	}

	rows := make([]*TimesheetRow, 0, len(timesheets))
	for _, t := range timesheets {
		rows = append(rows, timesheetRow(t))
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write timesheets csv: %w", err)
	}
	return nil
}

// PayslipsXLSX returns a workbook with a summary sheet and a line-item sheet.
func (s *Service) PayslipsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	payslips, err := s.repo.ListPayslips(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const summarySheet, itemsSheet = "Holerites", "Rubricas"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	writeRow := func(sheet string, row int, values ...any) {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	writeRow(summarySheet, 1, "Período", "Funcionário", "Matrícula", "Data de pagamento",
		"Total de vencimentos", "Total de descontos", "Valor líquido", "Base INSS", "FGTS do mês", "Base IRRF")
	writeRow(itemsSheet, 1, "Período", "Tipo", "Código", "Descrição", "Referência", "Valor", "Explicação")

	itemRow := 2
	for i, p := range payslips {
		rec := p.Record
		// Amount columns hold numbers so spreadsheet formulas work.
		writeRow(summarySheet, i+2, rec.Period, rec.EmployeeName, rec.EmployeeID, rec.PaymentDate,
			amount(rec.TotalEarnings), amount(rec.TotalDeductions), amount(rec.NetAmount),
			amount(rec.SocialSecurityBase), amount(rec.SeveranceFundMonthlyAmount), amount(rec.IncomeTaxBase))

		for _, it := range lineItemRows(rec) {
			writeRow(itemsSheet, itemRow, it.Period, it.Side, it.Code, it.Description, it.Reference, amount(it.Amount), it.Explanation)
			itemRow++
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "D", 18)
	_ = f.SetColWidth(summarySheet, "E", "J", 16)
	_ = f.SetColWidth(itemsSheet, "D", "D", 32)
	_ = f.SetColWidth(itemsSheet, "G", "G", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		slog.Int("payslips", len(payslips)),
		slog.Int("line_items", itemRow-2),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return buf.Bytes(), nil
}

// PayslipReportPDF renders a one-page summary of the payslip for period.
func (s *Service) PayslipReportPDF(ctx context.Context, period string) ([]byte, error) {
	p, err := s.repo.GetPayslipByPeriod(ctx, period)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPeriodNotFound, period)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payslip: %w", err)
	}
	rec := p.Record

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Holerite "+rec.Period), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Demonstrativo de pagamento"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{
		"Funcionário: " + rec.EmployeeName,
		"Matrícula: " + rec.EmployeeID,
		"Empregador: " + rec.EmployerName,
		"Período: " + rec.Period,
		"Data de pagamento: " + rec.PaymentDate,
	} {
		pdf.Cell(0, 7, tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(4)

	table := func(title string, items []parser.LineItem) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
		for _, it := range items {
			pdf.CellFormat(18, 6, it.Code, "", 0, "L", false, 0, "")
			pdf.CellFormat(100, 6, tr(truncate(it.Description, 55)), "", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, it.Reference, "", 0, "R", false, 0, "")
			pdf.CellFormat(0, 6, tr(money.ParseBRL(it.Amount).Display()), "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}
	table("Vencimentos", rec.EarningsItems)
	table("Descontos", rec.DeductionItems)

	pdf.SetFont("Helvetica", "B", 11)
	for _, total := range []struct{ label, value string }{
		{"Total de vencimentos", rec.TotalEarnings},
		{"Total de descontos", rec.TotalDeductions},
		{"Valor líquido", rec.NetAmount},
	} {
		pdf.CellFormat(148, 7, tr(total.label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(money.ParseBRL(total.value).Display()), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(0, 5, tr(fmt.Sprintf("Base INSS: %s   FGTS do mês: %s   Base IRRF: %s",
		rec.SocialSecurityBase, rec.SeveranceFundMonthlyAmount, rec.IncomeTaxBase)), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}
	return buf.Bytes(), nil
}

func payslipRow(p *repository.Payslip) *PayslipRow {
	rec := p.Record
	return &PayslipRow{
		Period:          rec.Period,
		EmployeeName:    rec.EmployeeName,
		EmployeeID:      rec.EmployeeID,
		PaymentDate:     rec.PaymentDate,
		TotalEarnings:   rec.TotalEarnings,
		TotalDeductions: rec.TotalDeductions,
		NetAmount:       rec.NetAmount,
		INSSBase:        rec.SocialSecurityBase,
		FGTS:            rec.SeveranceFundMonthlyAmount,
		IRRFBase:        rec.IncomeTaxBase,
		FilePath:        p.FilePath,
	}
}

func lineItemRows(rec parser.PayslipRecord) []LineItemRow {
	rows := make([]LineItemRow, 0, len(rec.EarningsItems)+len(rec.DeductionItems))
	for _, side := range []struct {
		name  string
		items []parser.LineItem
	}{{"vencimento", rec.EarningsItems}, {"desconto", rec.DeductionItems}} {
		for _, it := range side.items {
			rows = append(rows, LineItemRow{
				Period:      rec.Period,
				Side:        side.name,
				Code:        it.Code,
				Description: it.Description,
				Reference:   it.Reference,
				Amount:      it.Amount,
				Explanation: it.Explanation,
			})
		}
	}
	return rows
}

func timesheetRow(t *repository.Timesheet) *TimesheetRow {
	rec := t.Record
	worked := ""
	for _, item := range rec.SummaryItems {
		if item.Label == parser.LabelWorkedHours {
			worked = item.Value
			break
		}
	}
	return &TimesheetRow{
		Period:         rec.Period,
		EmployeeName:   rec.EmployeeName,
		WorkedHours:    worked,
		PeriodBalance:  rec.PeriodBalance,
		FinalBalance:   rec.FinalBalance,
		BalanceMinutes: int(timebank.Parse(rec.FinalBalance)),
		AbsenceDays:    len(rec.AbsenceDates),
		AbsenceDates:   strings.Join(rec.AbsenceDates, " "),
		FilePath:       t.FilePath,
	}
}

func amount(s string) float64 {
	return money.ParseBRL(s).ToFloat64()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
