package parser

import (
	"regexp"
	"strings"
)

// Defaults returned when a field cannot be located in the document text.
const (
	NotFound   = "Não encontrado"
	ZeroTime   = "0:00"
	ZeroAmount = "0,00"
)

var (
	reDate       = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// firstMatch returns capture group 1 of the first pattern that matches text,
// trimmed, or def when no pattern matches (or the capture is empty).
func firstMatch(text, def string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return def
}

// normalizeNewlines turns CRLF and lone CR line endings into LF.
func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}

// collapseSpaces replaces whitespace runs with a single space and trims.
func collapseSpaces(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// dedupe keeps the first occurrence of every value, preserving order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// FormatTime renders a clock-style duration as the canonical signed H:MM.
//
//	"07:05"   -> "7:05"
//	"-007:05" -> "-7:05"
//	"00:09"   -> "0:09"
//	"bad"     -> "0:00"
func FormatTime(s string) string {
	s = strings.Join(strings.Fields(s), "")

	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return ZeroTime
	}

	hours := strings.TrimLeft(parts[0], "0")
	if hours == "" {
		hours = "0"
	}

	minutes := parts[1]
	if len(minutes) > 2 {
		minutes = minutes[:2]
	}
	for len(minutes) < 2 {
		minutes = "0" + minutes
	}

	if negative {
		return "-" + hours + ":" + minutes
	}
	return hours + ":" + minutes
}
