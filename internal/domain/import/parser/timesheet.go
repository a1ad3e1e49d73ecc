package parser

import (
	"regexp"
	"strings"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/normalizer"
)

// SummaryItem is one row of the timesheet summary table.
type SummaryItem struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	IsNegative bool   `json:"is_negative"`
}

// TimesheetRecord is the structured content of a timesheet mirror ("espelho de ponto").
type TimesheetRecord struct {
	EmployeeName      string        `json:"employee_name"`
	Period            string        `json:"period"`
	SummaryItems      []SummaryItem `json:"summary_items"`
	FinalBalance      string        `json:"final_balance"`
	PeriodBalance     string        `json:"period_balance"`
	BalanceDetailText string        `json:"balance_detail_text"`
	HasAbsenceDays    bool          `json:"has_absence_days"`
	AbsenceDates      []string      `json:"absence_dates"`
}

// Summary concept keys.
const (
	LabelWorkedHours    = "HORAS_TRABALHADAS"
	LabelNightPremium   = "ADICIONAL_NOTURNO"
	LabelIntervalLate   = "ATRASO_INTERVALO"
	LabelEarlyDeparture = "SAIDA_ANTECIPADA"
	LabelOvertime100    = "HORA_EXTRA_100"
	LabelOvertime50     = "HORA_EXTRA_50"
	LabelExcusedAbsence = "FALTA_ABONADA"
	LabelAbsences       = "FALTAS"
)

type labelRule struct {
	contains string
	key      string
}

// Checked in order against the folded label. 100% precedes 50% and the
// excused absence precedes the plain absence so the narrower rule wins.
var summaryLabels = []labelRule{
	{"TRABALHADAS", LabelWorkedHours},
	{"NOTURN", LabelNightPremium},
	{"ATRASO", LabelIntervalLate},
	{"SAIDA", LabelEarlyDeparture},
	{"100%", LabelOvertime100},
	{"50%", LabelOvertime50},
	{"ABON", LabelExcusedAbsence},
	{"FALTA", LabelAbsences},
}

var negativeMarkers = []string{"ATRASO", "SAIDA", "FALTA"}

var (
	reEmployee      = regexp.MustCompile(`(?im)Funcion[aá]rio:?[^\S\n]*\d+[^\S\n]*-[^\S\n]*(\S.*)$`)
	rePeriod        = regexp.MustCompile(`(?im)^[^\S\n]*Per[ií]odo[^\S\n]*:?[^\S\n]*(\S.*)$`)
	reMetric        = regexp.MustCompile(`(\d{1,4}:\d{2})[ \t]+(\p{L}[\p{L}.]*(?:[ \t]+\p{L}[\p{L}.]*)*(?:[ \t]*\d{1,3}[ \t]*%)?)`)
	reFinalBalance  = regexp.MustCompile(`=[^\S\n]*([+-]?[^\S\n]*\d{1,4}[^\S\n]*:[^\S\n]*\d{2})`)
	rePeriodBalance = regexp.MustCompile(`(?i)SALDO[^\S\n]+(?:DO[^\S\n]+)?PER[IÍ]ODO[^\S\n]*:?[^\S\n]*([+-]?[^\S\n]*\d{1,4}[^\S\n]*:[^\S\n]*\d{2})`)
	reBalanceDetail = regexp.MustCompile(`(?im)SALDO ANTERIOR.*$`)
	reFalta         = regexp.MustCompile(`(?i)FALTA`)
	reDSR           = regexp.MustCompile(`(?i)DSR`)
	reDSRToken      = regexp.MustCompile(`(?i)\bDSR\b`)
	reEmptyParens   = regexp.MustCompile(`\(\s*\)`)
)

// ParseTimesheet extracts a TimesheetRecord from timesheet mirror text.
// It never fails: fields that cannot be located keep their defaults.
func ParseTimesheet(text string) TimesheetRecord {
	text = normalizeNewlines(text)

	absences := extractAbsenceDates(text)

	return TimesheetRecord{
		EmployeeName:      firstMatch(text, NotFound, reEmployee),
		Period:            firstMatch(text, NotFound, rePeriod),
		SummaryItems:      extractSummaryItems(text),
		FinalBalance:      extractBalance(text, reFinalBalance),
		PeriodBalance:     extractBalance(text, rePeriodBalance),
		BalanceDetailText: extractBalanceDetail(text),
		HasAbsenceDays:    len(absences) > 0,
		AbsenceDates:      absences,
	}
}

// extractSummaryItems walks metric candidates from the bottom of the
// document up, so a concept repeated in the text keeps its last occurrence.
// The result is reversed back into document order.
func extractSummaryItems(text string) []SummaryItem {
	matches := reMetric.FindAllStringSubmatch(text, -1)

	items := make([]SummaryItem, 0, len(summaryLabels))
	seen := make(map[string]bool, len(summaryLabels))

	for i := len(matches) - 1; i >= 0; i-- {
		value, label := matches[i][1], normalizer.Fold(matches[i][2])
		if strings.Contains(label, "DSR") {
			continue
		}

		key := summaryKey(label)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		items = append(items, SummaryItem{
			Label:      key,
			Value:      FormatTime(value),
			IsNegative: isNegativeLabel(label),
		})
	}

	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items
}

func summaryKey(foldedLabel string) string {
	compact := strings.ReplaceAll(foldedLabel, " ", "")
	for _, rule := range summaryLabels {
		if strings.Contains(compact, rule.contains) {
			return rule.key
		}
	}
	return ""
}

func isNegativeLabel(foldedLabel string) bool {
	for _, m := range negativeMarkers {
		if strings.Contains(foldedLabel, m) {
			return true
		}
	}
	return false
}

func extractBalance(text string, re *regexp.Regexp) string {
	raw := firstMatch(text, "", re)
	if raw == "" {
		return ZeroTime
	}
	return FormatTime(raw)
}

// extractAbsenceDates pairs each date with the nearest FALTA on the rest of
// its line. A DSR between them rejects the date; the remainder of the line is
// still available to later dates. An accepted pair consumes the text up to
// the FALTA keyword.
func extractAbsenceDates(text string) []string {
	dates := make([]string, 0)
	consumed := 0

	for _, loc := range reDate.FindAllStringIndex(text, -1) {
		if loc[0] < consumed {
			continue
		}

		rest := text[loc[1]:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}

		kw := reFalta.FindStringIndex(rest)
		if kw == nil || reDSR.MatchString(rest[:kw[0]]) {
			continue
		}

		dates = append(dates, text[loc[0]:loc[1]])
		consumed = loc[1] + kw[1]
	}

	return dedupe(dates)
}

func extractBalanceDetail(text string) string {
	line := reBalanceDetail.FindString(text)
	if line == "" {
		return ""
	}
	line = reDSRToken.ReplaceAllString(line, "")
	line = reEmptyParens.ReplaceAllString(line, "")
	return collapseSpaces(line)
}
