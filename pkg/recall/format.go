package recall

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/papercomputeco/ambient/pkg/anchors"
	"github.com/papercomputeco/ambient/pkg/facts"
	"github.com/papercomputeco/ambient/pkg/ledger"
)

// section is one formatted source contribution awaiting assembly.
type section struct {
	source string
	header string
	items  []string
}

func anchorSection(hits []anchors.Scored) section {
	s := section{source: SourceAnchors, header: "Core memory"}
	for _, hit := range hits {
		s.items = append(s.items, fmt.Sprintf("## %s\n%s", hit.Anchor.Name, hit.Anchor.Body))
	}
	return s
}

func factSection(hits []*facts.Fact) section {
	s := section{source: SourceFacts, header: "Known facts"}
	for _, f := range hits {
		text := f.Text
		if text == "" {
			text = fmt.Sprintf("%s %s %s", f.Subject, f.Predicate, f.Object)
		}
		if f.ValidAt != nil {
			text = fmt.Sprintf("%s (as of %s)", text, f.ValidAt.Format("2006-01-02"))
		}
		s.items = append(s.items, "- "+text)
	}
	return s
}

func summarySection(summaries []*ledger.Summary) section {
	s := section{source: SourceSummaries, header: "Earlier conversation"}
	for _, sum := range summaries {
		s.items = append(s.items, fmt.Sprintf("- [%s to %s] %s",
			sum.SpanStart.Format("2006-01-02 15:04"),
			sum.SpanEnd.Format("2006-01-02 15:04"),
			sum.Text,
		))
	}
	return s
}

func turnSection(turns []*ledger.Turn) section {
	s := section{source: SourceTurns, header: "Recent turns"}
	for _, t := range turns {
		s.items = append(s.items, fmt.Sprintf("[%s] %s: %s",
			t.CreatedAt.Format(time.RFC3339), t.Author, t.Content))
	}
	return s
}

// assemble concatenates the sections in order, spending the char budget as
// it goes. A section that crosses the remaining budget is cut mid-item and
// later sections are dropped entirely; the manifest records what actually
// made it in.
func (o *Orchestrator) assemble(sections []section) *Package {
	manifest := Manifest{Sources: make(map[string]SourceStats, len(sections))}

	var b strings.Builder
	remaining := o.cfg.CharBudget
	unlimited := o.cfg.CharBudget <= 0

	for _, s := range sections {
		stats := SourceStats{}

		if len(s.items) > 0 && (unlimited || remaining > 0) {
			text := fmt.Sprintf("# %s\n%s\n\n", s.header, strings.Join(s.items, "\n"))
			if !unlimited && len(text) > remaining {
				text = truncateRunes(text, remaining)
			}

			b.WriteString(text)
			stats.Chars = len(text)
			stats.Count = len(s.items)
			if !unlimited {
				remaining -= len(text)
			}
		}

		manifest.Sources[s.source] = stats
	}

	text := strings.TrimRight(b.String(), "\n")
	manifest.TotalChars = len(text)

	return &Package{Text: text, Manifest: manifest}
}

// truncateRunes cuts s to at most max bytes without splitting a rune.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}
