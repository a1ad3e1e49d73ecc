// Package sniffer provides automatic detection of imported document kinds.
// It decides whether extracted PDF text is a timesheet mirror or a payslip
// before any extractor runs.
package sniffer

import (
	"errors"
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// DocumentKind identifies which extractor handles a document
type DocumentKind string

const (
	KindTimesheet DocumentKind = "timesheet"
	KindPayslip   DocumentKind = "payslip"
	KindUnknown   DocumentKind = "unknown"
)

// ErrUnknownKind is returned by ParseKind for unrecognised names
var ErrUnknownKind = errors.New("unknown document kind")

// Keywords that flag a document as a timesheet mirror ("espelho de ponto")
var timesheetKeywords = []string{"PONTO", "ESPELHO", "BATIDA"}

// Keywords that flag a document as a payslip ("recibo de pagamento", "holerite")
var payslipKeywords = []string{"PAGAMENTO", "DEMONSTRATIVO", "HOLERITE"}

// Portal exports may carry a timesheet summary inside a payslip; this token
// only appears on the payslip side.
const payslipOnlyKeyword = "DEMONSTRATIVO"

type keywordGroup int

const (
	groupTimesheet keywordGroup = iota
	groupPayslip
)

// classifier holds a single Aho-Corasick matcher over every keyword, so one pass
// through the text answers all substring tests.
type classifier struct {
	matcher  *ahocorasick.Matcher
	keywords []string
	groups   []keywordGroup
}

var defaultClassifier = newClassifier()

func newClassifier() *classifier {
	c := &classifier{}
	for _, kw := range timesheetKeywords {
		c.keywords = append(c.keywords, kw)
		c.groups = append(c.groups, groupTimesheet)
	}
	for _, kw := range payslipKeywords {
		c.keywords = append(c.keywords, kw)
		c.groups = append(c.groups, groupPayslip)
	}
	c.matcher = ahocorasick.NewStringMatcher(c.keywords)
	return c
}

// Classify inspects keyword presence (case-insensitive) and returns the document kind.
//
// A text matching both keyword sets is a payslip whenever it contains
// "DEMONSTRATIVO"; otherwise the timesheet reading wins.
func Classify(text string) DocumentKind {
	return defaultClassifier.classify(text)
}

func (c *classifier) classify(text string) DocumentKind {
	if text == "" {
		return KindUnknown
	}

	hits := c.matcher.MatchThreadSafe([]byte(strings.ToUpper(text)))

	isTimesheet := false
	isPayslip := false
	hasPayslipOnly := false
	for _, idx := range hits {
		if idx < 0 || idx >= len(c.keywords) {
			continue
		}
		switch c.groups[idx] {
		case groupTimesheet:
			isTimesheet = true
		case groupPayslip:
			isPayslip = true
			if c.keywords[idx] == payslipOnlyKeyword {
				hasPayslipOnly = true
			}
		}
	}

	switch {
	case isTimesheet && !hasPayslipOnly:
		return KindTimesheet
	case isPayslip:
		return KindPayslip
	default:
		return KindUnknown
	}
}

// Valid reports whether k names a kind an extractor exists for.
func (k DocumentKind) Valid() bool {
	return k == KindTimesheet || k == KindPayslip
}

// ParseKind converts a transport-level name ("payslip", "holerite", "timesheet", "ponto")
// into a DocumentKind.
func ParseKind(s string) (DocumentKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "timesheet", "ponto", "espelho":
		return KindTimesheet, nil
	case "payslip", "holerite", "recibo":
		return KindPayslip, nil
	}
	return KindUnknown, ErrUnknownKind
}
