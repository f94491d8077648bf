package mcptool

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dgallion1/docintel/internal/lexicon"
	"github.com/dgallion1/docintel/internal/pipeline"
)

const studyMarkdown = "# Introduction\n\nThis study reviews research methodology findings in computational biology and offers a careful literature review of recent benchmark datasets. The most important finding is that graph models improve protein structure prediction accuracy across many public datasets.\n"

func newTestTools(t *testing.T) *Tools {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	lex, err := lexicon.Default()
	if err != nil {
		t.Fatalf("load lexicon: %v", err)
	}
	analyzer := pipeline.NewAnalyzer(pipeline.DefaultTuning(), lex, pipeline.Options{MaxConcurrentDocs: 2}, log)
	return New(analyzer, 1<<20, log)
}

func writeStudy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "study.md")
	if err := os.WriteFile(path, []byte(studyMarkdown), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeDocuments(t *testing.T) {
	tools := newTestTools(t)
	path := writeStudy(t)
	missing := filepath.Join(filepath.Dir(path), "absent.pdf")

	_, out, err := tools.AnalyzeDocuments(context.Background(), nil, AnalyzeDocumentsInput{
		Files:       []string{path, missing, "notes.exe"},
		Persona:     "PhD Researcher in Computational Biology",
		JobToBeDone: "Prepare a literature review",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Missing) != 2 {
		t.Errorf("expected 2 missing files, got %v", out.Missing)
	}
	if out.Result == nil || len(out.Result.ExtractedSections) != 1 {
		t.Fatalf("expected one extracted section, got %+v", out.Result)
	}
	if got := out.Result.ExtractedSections[0].Document; got != "study.md" {
		t.Errorf("expected document study.md, got %q", got)
	}
}

func TestAnalyzeDocuments_InvalidInput(t *testing.T) {
	tools := newTestTools(t)
	tests := []struct {
		name  string
		input AnalyzeDocumentsInput
	}{
		{"no persona", AnalyzeDocumentsInput{Files: []string{"a.md"}, JobToBeDone: "j"}},
		{"no job", AnalyzeDocumentsInput{Files: []string{"a.md"}, Persona: "p"}},
		{"no files", AnalyzeDocumentsInput{Persona: "p", JobToBeDone: "j"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tools.AnalyzeDocuments(context.Background(), nil, tt.input); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadFile_SizeLimit(t *testing.T) {
	tools := newTestTools(t)
	tools.maxFileBytes = 10
	if _, err := tools.readFile(writeStudy(t)); err == nil {
		t.Error("expected an error for an oversized file")
	}
}

func TestRegister_CallOverTransport(t *testing.T) {
	ctx := context.Background()
	server := mcp.NewServer(&mcp.Implementation{Name: "docintel-test", Version: "v0"}, nil)
	newTestTools(t).Register(server)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer cs.Close()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name: "analyze_documents",
		Arguments: map[string]any{
			"files":          []string{writeStudy(t)},
			"persona":        "PhD Researcher in Computational Biology",
			"job_to_be_done": "Prepare a literature review",
		},
	})
	if err != nil {
		t.Fatalf("call tool: %v", err)
	}
	if res.IsError {
		t.Fatalf("expected success, got error result %+v", res.Content)
	}

	raw, err := json.Marshal(res.StructuredContent)
	if err != nil {
		t.Fatal(err)
	}
	var out AnalyzeDocumentsOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode structured content: %v", err)
	}
	if out.Result == nil || len(out.Result.ExtractedSections) != 1 {
		t.Errorf("expected one extracted section, got %s", raw)
	}
}
