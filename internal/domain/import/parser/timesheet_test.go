package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTimesheet = `ESPELHO DE PONTO
Funcionário: 123 - MARIA DA SILVA
Período: 01/01/2024 a 31/01/2024
02/01/2024 Ter 08:00 12:00 13:00 17:00
03/01/2024 Qua FALTA
04/01/2024 Qui DSR FALTA
05/01/2024 Sex 08:00 12:00 13:00 17:00
Resumo
160:00 Horas Trabalhadas
02:30 Horas Extras 50%
01:00 Horas Extras 100%
00:45 Atraso Intervalo
00:15 Saída Antecipada
08:00 Faltas
04:00 DSR Descontado
SALDO ANTERIOR (DSR) ( ) 10:00
Saldo do Período: -01:30
Saldo Final = 08:30`

// ============================================================================
// Full document
// ============================================================================

func TestParseTimesheet(t *testing.T) {
	rec := ParseTimesheet(sampleTimesheet)

	assert.Equal(t, "MARIA DA SILVA", rec.EmployeeName)
	assert.Equal(t, "01/01/2024 a 31/01/2024", rec.Period)
	assert.Equal(t, []SummaryItem{
		{Label: LabelWorkedHours, Value: "160:00"},
		{Label: LabelOvertime50, Value: "2:30"},
		{Label: LabelOvertime100, Value: "1:00"},
		{Label: LabelIntervalLate, Value: "0:45", IsNegative: true},
		{Label: LabelEarlyDeparture, Value: "0:15", IsNegative: true},
		{Label: LabelAbsences, Value: "8:00", IsNegative: true},
	}, rec.SummaryItems)
	assert.Equal(t, "8:30", rec.FinalBalance)
	assert.Equal(t, "-1:30", rec.PeriodBalance)
	assert.Equal(t, "SALDO ANTERIOR 10:00", rec.BalanceDetailText)
	assert.True(t, rec.HasAbsenceDays)
	assert.Equal(t, []string{"03/01/2024"}, rec.AbsenceDates)
}

func TestParseTimesheet_Defaults(t *testing.T) {
	rec := ParseTimesheet("")

	assert.Equal(t, NotFound, rec.EmployeeName)
	assert.Equal(t, NotFound, rec.Period)
	assert.NotNil(t, rec.SummaryItems)
	assert.Empty(t, rec.SummaryItems)
	assert.Equal(t, ZeroTime, rec.FinalBalance)
	assert.Equal(t, ZeroTime, rec.PeriodBalance)
	assert.Empty(t, rec.BalanceDetailText)
	assert.False(t, rec.HasAbsenceDays)
	assert.NotNil(t, rec.AbsenceDates)
	assert.Empty(t, rec.AbsenceDates)
}

func TestParseTimesheet_CRLF(t *testing.T) {
	crlf := strings.ReplaceAll(sampleTimesheet, "\n", "\r\n")
	assert.Equal(t, ParseTimesheet(sampleTimesheet), ParseTimesheet(crlf))
}

func TestParseTimesheet_Idempotent(t *testing.T) {
	assert.Equal(t, ParseTimesheet(sampleTimesheet), ParseTimesheet(sampleTimesheet))
}

// ============================================================================
// Summary metrics
// ============================================================================

func TestExtractSummaryItems(t *testing.T) {
	t.Run("repeated concept keeps the last occurrence", func(t *testing.T) {
		text := "08:00 Horas Trabalhadas\n01:00 Faltas\n07:30 Horas Trabalhadas"
		items := extractSummaryItems(text)

		require.Len(t, items, 2)
		assert.Equal(t, SummaryItem{Label: LabelAbsences, Value: "1:00", IsNegative: true}, items[0])
		assert.Equal(t, SummaryItem{Label: LabelWorkedHours, Value: "7:30"}, items[1])
	})

	t.Run("dsr labels are skipped", func(t *testing.T) {
		items := extractSummaryItems("08:00 DSR Faltas\n02:00 Faltas")

		require.Len(t, items, 1)
		assert.Equal(t, "2:00", items[0].Value)
	})

	t.Run("unmapped labels are skipped", func(t *testing.T) {
		assert.Empty(t, extractSummaryItems("12:00 Intervalo Refeição"))
	})

	t.Run("excused absence is not an absence", func(t *testing.T) {
		items := extractSummaryItems("08:00 Falta Abonada\n04:00 Faltas")

		require.Len(t, items, 2)
		assert.Equal(t, LabelExcusedAbsence, items[0].Label)
		assert.Equal(t, LabelAbsences, items[1].Label)
	})

	t.Run("night premium", func(t *testing.T) {
		items := extractSummaryItems("03:15 Adicional Noturno")

		require.Len(t, items, 1)
		assert.Equal(t, SummaryItem{Label: LabelNightPremium, Value: "3:15"}, items[0])
	})

	t.Run("keys are unique", func(t *testing.T) {
		items := extractSummaryItems(sampleTimesheet + "\n09:00 Horas Trabalhadas\n01:00 Faltas")
		seen := map[string]bool{}
		for _, it := range items {
			assert.False(t, seen[it.Label], it.Label)
			seen[it.Label] = true
		}
	})
}

// ============================================================================
// Absence dates
// ============================================================================

func TestExtractAbsenceDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"date followed by falta", "10/01/2024 Qua FALTA", []string{"10/01/2024"}},
		{"case insensitive", "10/01/2024 falta injustificada", []string{"10/01/2024"}},
		{"dsr between date and falta", "10/01/2024 DSR FALTA", []string{}},
		{"falta on another line", "10/01/2024 Qua\nFALTA", []string{}},
		{"two absences on one line", "10/01/2024 FALTA 11/01/2024 FALTA", []string{"10/01/2024", "11/01/2024"}},
		{"rejected date does not consume the line", "12/01/2024 DSR 13/01/2024 FALTA", []string{"13/01/2024"}},
		{"accepted date consumes up to falta", "14/01/2024 15/01/2024 FALTA", []string{"14/01/2024"}},
		{"duplicates keep first order", "16/01/2024 FALTA\n15/01/2024 FALTA\n16/01/2024 FALTA", []string{"16/01/2024", "15/01/2024"}},
		{"no dates", "FALTA", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractAbsenceDates(tt.text))
		})
	}
}

func TestParseTimesheet_AbsenceFlagMatchesDates(t *testing.T) {
	for _, text := range []string{"", "10/01/2024 FALTA", "10/01/2024 DSR FALTA", sampleTimesheet} {
		rec := ParseTimesheet(text)
		assert.Equal(t, len(rec.AbsenceDates) > 0, rec.HasAbsenceDays, text)
	}
}

// ============================================================================
// Balances
// ============================================================================

func TestTimesheetBalances(t *testing.T) {
	t.Run("first equals sign wins", func(t *testing.T) {
		rec := ParseTimesheet("Saldo = -02:15\nTotal = 05:00")
		assert.Equal(t, "-2:15", rec.FinalBalance)
	})

	t.Run("equals sign without value on its line", func(t *testing.T) {
		rec := ParseTimesheet("Total =\n 05:00")
		assert.Equal(t, ZeroTime, rec.FinalBalance)
	})

	t.Run("period balance label without value", func(t *testing.T) {
		rec := ParseTimesheet("Saldo do Período\n03:20 Horas Trabalhadas")
		assert.Equal(t, ZeroTime, rec.PeriodBalance)
	})

	t.Run("period balance without do", func(t *testing.T) {
		rec := ParseTimesheet("SALDO PERIODO 03:20")
		assert.Equal(t, "3:20", rec.PeriodBalance)
	})

	t.Run("balance detail strips artifacts", func(t *testing.T) {
		rec := ParseTimesheet("  SALDO ANTERIOR   DSR  ( )   -04:00  ")
		assert.Equal(t, "SALDO ANTERIOR -04:00", rec.BalanceDetailText)
	})
}

// ============================================================================
// Header labels
// ============================================================================

func TestTimesheetHeaderLabels(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantName   string
		wantPeriod string
	}{
		{
			name:       "values on the label line",
			text:       "Funcionário: 12 - MARIA SOUZA\nPeríodo: 01/01/2024 a 31/01/2024",
			wantName:   "MARIA SOUZA",
			wantPeriod: "01/01/2024 a 31/01/2024",
		},
		{
			name:       "empty labels do not read the next line",
			text:       "Funcionário: 12 -\nPeríodo:\n08:00 Horas Trabalhadas",
			wantName:   NotFound,
			wantPeriod: NotFound,
		},
		{
			name:       "trailing blanks after labels",
			text:       "Funcionário: 12 -   \nPeríodo:   \n",
			wantName:   NotFound,
			wantPeriod: NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ParseTimesheet(tt.text)
			assert.Equal(t, tt.wantName, rec.EmployeeName)
			assert.Equal(t, tt.wantPeriod, rec.Period)
		})
	}
}
