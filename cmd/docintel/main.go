package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dgallion1/docintel/internal/collection"
	"github.com/dgallion1/docintel/internal/config"
	"github.com/dgallion1/docintel/internal/pipeline"
	"github.com/dgallion1/docintel/internal/report"
)

const resultFile = "analysis_result.json"

func main() {
	_ = godotenv.Load()

	var (
		inputPath = flag.String("input", "", "Collection input JSON (documents, persona, job_to_be_done)")
		docsDir   = flag.String("docs", "", "Directory holding the listed documents (default: PDFs/ next to the input file)")
		outDir    = flag.String("out", ".", "Directory to write "+resultFile+" into")
		persona   = flag.String("persona", "", "Persona, when analyzing files given as arguments")
		job       = flag.String("job", "", "Job to be done, when analyzing files given as arguments")
		quiet     = flag.Bool("quiet", false, "Do not print the summary")
	)
	flag.Parse()

	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	inputs, p, j, err := gatherInputs(*inputPath, *docsDir, *persona, *job, flag.Args(), log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Usage: docintel -input collection.json [-docs PDFs/] [-out output/]")
		fmt.Fprintln(os.Stderr, "       docintel -persona ROLE -job TASK file1.pdf [file2.md ...]")
		os.Exit(2)
	}

	analyzer, err := pipeline.NewAnalyzerFromConfig(cfg, log)
	if err != nil {
		log.Error("failed to load analysis settings", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := analyzer.Analyze(ctx, inputs, p, j)
	if err != nil {
		log.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	path, err := writeResult(*outDir, res)
	if err != nil {
		log.Error("failed to write result", "error", err)
		os.Exit(1)
	}
	log.Info("result written", "path", path)

	if !*quiet {
		fmt.Print(report.Summary(res))
	}
}

// gatherInputs reads documents from a collection file, or from the given
// paths when no collection is named.
func gatherInputs(inputPath, docsDir, persona, job string, args []string, log *slog.Logger) ([]pipeline.Input, string, string, error) {
	if inputPath != "" {
		c, err := collection.Load(inputPath)
		if err != nil {
			return nil, "", "", err
		}
		if docsDir == "" {
			docsDir = filepath.Join(filepath.Dir(inputPath), "PDFs")
		}
		inputs, missing := c.ReadInputs(docsDir, log)
		if len(missing) > 0 {
			log.Warn("documents missing from collection", "dir", docsDir, "missing", missing)
		}
		return inputs, c.Persona, c.JobToBeDone, nil
	}

	if len(args) == 0 || persona == "" || job == "" {
		return nil, "", "", fmt.Errorf("either -input or -persona, -job and files are required")
	}
	inputs := make([]pipeline.Input, 0, len(args))
	for _, a := range args {
		data, err := os.ReadFile(a)
		if err != nil {
			log.Warn("document not readable, skipping", "document", a, "error", err)
			continue
		}
		inputs = append(inputs, pipeline.Input{Name: filepath.Base(a), Data: data})
	}
	return inputs, persona, job, nil
}

func writeResult(dir string, res *pipeline.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	path := filepath.Join(dir, resultFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	return path, nil
}
