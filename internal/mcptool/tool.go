// Package mcptool exposes the analysis pipeline as MCP tools.
package mcptool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/docintel/internal/parser"
	"github.com/dgallion1/docintel/internal/pipeline"
)

// AnalyzeDocumentsInput defines input for the analyze_documents tool.
type AnalyzeDocumentsInput struct {
	Files       []string `json:"files" jsonschema:"Paths of the documents to analyze (PDF, Markdown, HTML, DOCX, TXT or CSV)"`
	Persona     string   `json:"persona" jsonschema:"Who is reading, e.g. PhD researcher in computational biology"`
	JobToBeDone string   `json:"job_to_be_done" jsonschema:"What the reader needs to get done with the documents"`
}

// AnalyzeDocumentsOutput defines output for the analyze_documents tool.
type AnalyzeDocumentsOutput struct {
	Result  *pipeline.Result `json:"result"`
	Missing []string         `json:"missing,omitempty"`
}

// Tools holds the state shared by the registered tools.
type Tools struct {
	analyzer     *pipeline.Analyzer
	maxFileBytes int64
	log          *slog.Logger
}

func New(analyzer *pipeline.Analyzer, maxFileBytes int64, log *slog.Logger) *Tools {
	return &Tools{analyzer: analyzer, maxFileBytes: maxFileBytes, log: log}
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "analyze_documents",
			Description: "Rank the sections of a set of documents for a persona and job-to-be-done. Returns the top sections and refined passages with key insights.",
		},
		t.AnalyzeDocuments,
	)
}

// AnalyzeDocuments reads the listed files and runs one analysis over them.
// Files that cannot be read are reported in Missing.
func (t *Tools) AnalyzeDocuments(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeDocumentsInput) (*mcp.CallToolResult, AnalyzeDocumentsOutput, error) {
	if input.Persona == "" || input.JobToBeDone == "" {
		return nil, AnalyzeDocumentsOutput{}, fmt.Errorf("persona and job_to_be_done are required")
	}
	if len(input.Files) == 0 {
		return nil, AnalyzeDocumentsOutput{}, fmt.Errorf("at least one file is required")
	}

	var out AnalyzeDocumentsOutput
	inputs := make([]pipeline.Input, 0, len(input.Files))
	for _, path := range input.Files {
		data, err := t.readFile(path)
		if err != nil {
			t.log.Warn("document not readable, skipping", "path", path, "error", err)
			out.Missing = append(out.Missing, path)
			continue
		}
		inputs = append(inputs, pipeline.Input{Name: filepath.Base(path), Data: data})
	}

	res, err := t.analyzer.Analyze(ctx, inputs, input.Persona, input.JobToBeDone)
	if err != nil {
		return nil, AnalyzeDocumentsOutput{}, fmt.Errorf("analysis failed: %w", err)
	}
	out.Result = res
	t.log.Info("analyze_documents complete",
		"documents", len(inputs),
		"missing", len(out.Missing),
		"sections", len(res.ExtractedSections))
	return nil, out, nil
}

func (t *Tools) readFile(path string) ([]byte, error) {
	if !parser.IsSupportedExtension(path) {
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, t.maxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > t.maxFileBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", t.maxFileBytes)
	}
	return data, nil
}
