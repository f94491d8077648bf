// Package report renders a short terminal summary of an analysis result.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dgallion1/docintel/internal/pipeline"
)

const (
	// TopN is how many sections and insights the summary shows.
	TopN         = 3
	passageWidth = 160
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	rankStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Summary renders the top sections and insights of res. Skipped documents
// are listed last.
func Summary(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Document analysis"))
	b.WriteByte('\n')
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Persona: %s | Job: %s", res.Metadata.Persona, res.Metadata.JobToBeDone)))
	b.WriteByte('\n')
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d documents, %d sections, %d insights",
		len(res.Metadata.InputDocuments), len(res.ExtractedSections), len(res.SubsectionAnalysis))))
	b.WriteByte('\n')

	b.WriteString(boxStyle.Render(sectionsBlock(res.ExtractedSections)))
	b.WriteByte('\n')
	b.WriteString(boxStyle.Render(insightsBlock(res.SubsectionAnalysis)))
	b.WriteByte('\n')

	for _, d := range res.Documents {
		if d.Status == pipeline.DocSkipped {
			b.WriteString(warnStyle.Render(fmt.Sprintf("skipped %s: %s", d.Name, d.Reason)))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sectionsBlock(sections []pipeline.ExtractedSection) string {
	lines := []string{headerStyle.Render("Top sections")}
	if len(sections) == 0 {
		lines = append(lines, mutedStyle.Render("no relevant sections"))
	}
	for i, s := range sections {
		if i == TopN {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			rankStyle.Render(fmt.Sprintf("%d.", s.ImportanceRank)),
			s.SectionTitle,
			mutedStyle.Render(fmt.Sprintf("(%s, p.%d)", s.Document, s.PageNumber))))
	}
	return strings.Join(lines, "\n")
}

func insightsBlock(subs []pipeline.SubsectionAnalysis) string {
	lines := []string{headerStyle.Render("Top insights")}
	if len(subs) == 0 {
		lines = append(lines, mutedStyle.Render("no insights"))
	}
	for i, s := range subs {
		if i == TopN {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			scoreStyle.Render(fmt.Sprintf("%.2f", s.RelevanceScore)),
			s.SectionTitle,
			mutedStyle.Render(fmt.Sprintf("(%s, p.%d)", s.Document, s.PageNumber))))
		lines = append(lines, "  "+truncate(s.RefinedText, passageWidth))
		for _, k := range s.KeyInsights {
			lines = append(lines, "  - "+truncate(k, passageWidth))
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
