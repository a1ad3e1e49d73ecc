package insights

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/normalizer"
)

var monthAbbrev = map[string]int{
	"JAN": 1, "FEV": 2, "MAR": 3, "ABR": 4, "MAI": 5, "JUN": 6,
	"JUL": 7, "AGO": 8, "SET": 9, "OUT": 10, "NOV": 11, "DEZ": 12,
}

var (
	reNamedMonth   = regexp.MustCompile(`\b([A-Z]{3})[A-Z]*\s*(?:/|DE)?\s*(\d{4})\b`)
	reNumericMonth = regexp.MustCompile(`(?:^|\D)(\d{1,2})\s*/\s*(\d{4})\b`)
	reFullDate     = regexp.MustCompile(`\b\d{2}/(\d{2})/(\d{4})\b`)
)

// periodKey turns a free-text period ("JAN/2024", "Janeiro de 2024",
// "01/2024", "01/01/2024 a 31/01/2024") into yyyymm. ok is false when no
// month can be recognised.
func periodKey(period string) (key int, ok bool) {
	folded := normalizer.Fold(period)

	if m := reFullDate.FindStringSubmatch(folded); m != nil {
		return monthKey(m[2], m[1])
	}
	if m := reNamedMonth.FindStringSubmatch(folded); m != nil {
		if month, found := monthAbbrev[m[1]]; found {
			return monthKey(m[2], strconv.Itoa(month))
		}
	}
	if m := reNumericMonth.FindStringSubmatch(folded); m != nil {
		return monthKey(m[2], m[1])
	}
	return 0, false
}

func monthKey(year, month string) (int, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return 0, false
	}
	m, err := strconv.Atoi(strings.TrimLeft(month, "0"))
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return y*100 + m, true
}

// sortByPeriod orders items chronologically by period. Unrecognised periods
// keep their relative input order after the recognised ones.
func sortByPeriod[T any](items []T, period func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		ki, oki := periodKey(period(items[i]))
		kj, okj := periodKey(period(items[j]))
		switch {
		case oki && okj:
			return ki < kj
		case oki != okj:
			return oki
		}
		return false
	})
}
