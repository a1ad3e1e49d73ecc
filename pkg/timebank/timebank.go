// Package timebank converts the signed H:MM strings found on timesheet
// mirrors into minutes and back. Unparsable values count as zero.
package timebank

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Minutes is a signed time-bank balance.
type Minutes int

// Parse reads "[-]H:MM" (whitespace and a leading '+' tolerated).
// Anything else yields zero.
func Parse(s string) Minutes {
	s = strings.Join(strings.Fields(s), "")

	sign := 1
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 {
		return 0
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0
	}
	return Minutes(sign * (h*60 + m))
}

// String renders the canonical "[-]H:MM" form.
func (m Minutes) String() string {
	sign := ""
	v := int(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d:%02d", sign, v/60, v%60)
}

func (m Minutes) Duration() time.Duration {
	return time.Duration(m) * time.Minute
}

// Hours returns the balance as fractional hours, for charts.
func (m Minutes) Hours() float64 {
	return float64(m) / 60
}

// Sum parses and adds every value.
func Sum(values ...string) Minutes {
	var total Minutes
	for _, v := range values {
		total += Parse(v)
	}
	return total
}
