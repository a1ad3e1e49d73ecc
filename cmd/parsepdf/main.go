// Command parsepdf prints the record extracted from local payslip or
// timesheet PDFs without storing anything.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/FACorreiaa/meu-holerite/internal/domain/import/parser"
	importservice "github.com/FACorreiaa/meu-holerite/internal/domain/import/service"
	"github.com/FACorreiaa/meu-holerite/internal/domain/import/sniffer"
)

func main() {
	employer := flag.String("employer", "", "employer name recorded on payslips")
	rawText := flag.Bool("text", false, "print the extracted text instead of the parsed record")
	kindName := flag.String("kind", "", "force the extractor (payslip or timesheet) instead of classifying")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] file.pdf...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	kind := sniffer.KindUnknown
	if *kindName != "" {
		parsed, err := sniffer.ParseKind(*kindName)
		if err != nil {
			logger.Error("invalid -kind", slog.String("kind", *kindName), slog.Any("error", err))
			os.Exit(2)
		}
		kind = parsed
	}
	extractor := parser.NewPDFParser()
	svc := importservice.NewImportService(nil, nil, extractor, logger).WithEmployerName(*employer)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	failed := false
	for _, path := range flag.Args() {
		if err := parseFile(context.Background(), svc, extractor, enc, path, kind, *rawText); err != nil {
			logger.Error("failed to parse document", slog.String("file", path), slog.Any("error", err))
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

func parseFile(ctx context.Context, svc *importservice.ImportService, extractor *parser.PDFParser, enc *json.Encoder, path string, kind sniffer.DocumentKind, rawText bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text, err := extractor.ExtractBytes(data)
	if err != nil {
		return err
	}
	if rawText {
		fmt.Println(text)
		return nil
	}

	if kind == sniffer.KindUnknown {
		kind = sniffer.Classify(text)
	}
	result, err := svc.PreviewAs(ctx, text, kind)
	if err != nil {
		return err
	}
	result.FilePath = path
	return enc.Encode(result)
}
