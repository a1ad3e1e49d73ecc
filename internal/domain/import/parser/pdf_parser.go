package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/dslipak/pdf"
)

// ErrEmptyPDF indicates the document yielded no extractable text
// (scanned images, encrypted content or a blank file).
var ErrEmptyPDF = errors.New("pdf contains no extractable text")

// TextExtractor turns a PDF into the text blob the extractors consume.
type TextExtractor interface {
	ExtractText(r io.ReaderAt, size int64) (string, error)
}

// PDFParser extracts text from PDF documents.
type PDFParser struct {
	// rowTolerance groups glyphs whose baselines differ by less than this
	// many points into the same line in the per-page fallback.
	rowTolerance float64
}

// NewPDFParser creates a new PDF parser instance.
func NewPDFParser() *PDFParser {
	return &PDFParser{rowTolerance: 2}
}

// ExtractText returns the plain text of every page. When the plain text
// stream comes back empty, pages are rebuilt glyph by glyph so row breaks
// survive.
func (p *PDFParser) ExtractText(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	text, err := plainText(reader)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	text = p.textByRow(reader)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyPDF
	}
	return text, nil
}

// ExtractBytes is a convenience wrapper over ExtractText for in-memory uploads.
func (p *PDFParser) ExtractBytes(data []byte) (string, error) {
	return p.ExtractText(bytes.NewReader(data), int64(len(data)))
}

func plainText(reader *pdf.Reader) (text string, err error) {
	// The reader panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to read pdf text: %v", rec)
		}
	}()

	rd, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(rd); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}

func (p *PDFParser) textByRow(reader *pdf.Reader) string {
	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, row := range p.pageRows(page) {
			sb.WriteString(row)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func (p *PDFParser) pageRows(page pdf.Page) (rows []string) {
	defer func() {
		if recover() != nil {
			rows = nil
		}
	}()

	glyphs := page.Content().Text
	// PDF coordinates grow upwards: top of the page first, then left to right.
	sort.SliceStable(glyphs, func(i, j int) bool {
		if math.Abs(glyphs[i].Y-glyphs[j].Y) >= p.rowTolerance {
			return glyphs[i].Y > glyphs[j].Y
		}
		return glyphs[i].X < glyphs[j].X
	})

	var (
		line  strings.Builder
		lastY = math.NaN()
	)
	for _, g := range glyphs {
		if !math.IsNaN(lastY) && math.Abs(g.Y-lastY) >= p.rowTolerance {
			rows = append(rows, line.String())
			line.Reset()
		}
		line.WriteString(g.S)
		lastY = g.Y
	}
	if line.Len() > 0 {
		rows = append(rows, line.String())
	}
	return rows
}
