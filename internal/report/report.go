// Package report renders engine state as Markdown and HTML summaries.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lerian-normative-engine/internal/conflict"
	"lerian-normative-engine/internal/engine"
	"lerian-normative-engine/internal/normative"
	"lerian-normative-engine/pkg/types"
)

// Data is everything a report shows.
type Data struct {
	GeneratedAt     time.Time
	Statistics      normative.Statistics
	Titles          map[uuid.UUID]string
	Critical        []conflict.Edge
	Assessments     map[uuid.UUID]conflict.Assessment
	Clusters        []conflict.Cluster
	Central         []conflict.Node
	Recommendations map[uuid.UUID][]conflict.Outcome
}

// Collect snapshots the engine, keeping the top n conflicts and frameworks.
func Collect(e *engine.Engine, n int, at time.Time) Data {
	d := Data{
		GeneratedAt:     at,
		Statistics:      e.Statistics(),
		Titles:          make(map[uuid.UUID]string),
		Critical:        e.MostCriticalConflicts(n),
		Assessments:     make(map[uuid.UUID]conflict.Assessment),
		Clusters:        e.ConflictClusters(),
		Central:         e.HighCentralityFrameworks(n),
		Recommendations: make(map[uuid.UUID][]conflict.Outcome),
	}
	for _, f := range e.Frameworks() {
		d.Titles[f.ID] = f.Title
	}
	for _, edge := range d.Critical {
		id := edge.Conflict.ID
		if a, err := e.Assessment(id); err == nil {
			d.Assessments[id] = a
		}
		if recs, err := e.RecommendResolutions(id); err == nil {
			d.Recommendations[id] = recs
		}
	}
	return d
}

// humanize turns an enum value such as "direct_contradiction" into
// "Direct Contradiction". Casers are stateful, so each call gets its own.
func humanize(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "_", " "))
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func (d Data) title(id uuid.UUID) string {
	if t, ok := d.Titles[id]; ok {
		return t
	}
	return id.String()
}

// Markdown renders the report.
func Markdown(d Data) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Normative Conflict Report\n\n_Generated %s_\n\n", d.GeneratedAt.UTC().Format(time.RFC3339))
	d.writeCorpus(&b)
	d.writeCritical(&b)
	d.writeClusters(&b)
	d.writeCentral(&b)
	d.writeRecommendations(&b)
	return b.Bytes()
}

func (d Data) writeCorpus(b *bytes.Buffer) {
	b.WriteString("## Corpus\n\n")
	fmt.Fprintf(b, "- Total frameworks: %d\n- Active frameworks: %d\n", d.Statistics.Total, d.Statistics.Active)

	jurisdictions := make([]string, 0, len(d.Statistics.ByJurisdiction))
	for j := range d.Statistics.ByJurisdiction {
		jurisdictions = append(jurisdictions, string(j))
	}
	sort.Strings(jurisdictions)
	for _, j := range jurisdictions {
		fmt.Fprintf(b, "- %s: %d\n", humanize(j), d.Statistics.ByJurisdiction[types.Jurisdiction(j)])
	}
	b.WriteString("\n")
}

func (d Data) writeCritical(b *bytes.Buffer) {
	b.WriteString("## Most Critical Conflicts\n\n")
	if len(d.Critical) == 0 {
		b.WriteString("No conflicts recorded.\n\n")
		return
	}
	b.WriteString("| # | Type | Severity | Frameworks | Score | Complexity |\n")
	b.WriteString("|---|------|----------|------------|-------|------------|\n")
	for i, e := range d.Critical {
		a := d.Assessments[e.Conflict.ID]
		fmt.Fprintf(b, "| %d | %s | %s | %s vs %s | %.1f | %s |\n",
			i+1,
			humanize(string(e.Conflict.Type)),
			humanize(string(e.Conflict.Severity)),
			cell(d.title(e.Source)), cell(d.title(e.Target)),
			a.SeverityScore,
			humanize(string(a.ResolutionComplexity)))
	}
	b.WriteString("\n")
}

func (d Data) writeClusters(b *bytes.Buffer) {
	b.WriteString("## Conflict Clusters\n\n")
	if len(d.Clusters) == 0 {
		b.WriteString("No clusters.\n\n")
		return
	}
	for i, c := range d.Clusters {
		fmt.Fprintf(b, "### Cluster %d (priority %.2f)\n\n", i+1, c.ResolutionPriority)
		for _, id := range c.Frameworks {
			fmt.Fprintf(b, "- %s\n", d.title(id))
		}
		b.WriteString("\n")
	}
}

func (d Data) writeCentral(b *bytes.Buffer) {
	b.WriteString("## Central Frameworks\n\n")
	if len(d.Central) == 0 {
		b.WriteString("No frameworks in conflict.\n\n")
		return
	}
	b.WriteString("| Framework | Conflicts | Centrality |\n")
	b.WriteString("|-----------|-----------|------------|\n")
	for _, n := range d.Central {
		fmt.Fprintf(b, "| %s | %d | %.2f |\n", cell(d.title(n.FrameworkID)), n.ConflictCount, n.Centrality)
	}
	b.WriteString("\n")
}

func (d Data) writeRecommendations(b *bytes.Buffer) {
	b.WriteString("## Recommendations\n\n")
	written := false
	for _, e := range d.Critical {
		recs := d.Recommendations[e.Conflict.ID]
		if len(recs) == 0 {
			continue
		}
		written = true
		fmt.Fprintf(b, "### %s: %s vs %s\n\n", humanize(string(e.Conflict.Type)), d.title(e.Source), d.title(e.Target))
		for _, r := range d.Assessments[e.Conflict.ID].Recommendations {
			fmt.Fprintf(b, "- %s\n", r)
		}
		for _, o := range recs {
			label := "Escalation"
			if o.Strategy != "" {
				label = humanize(string(o.Strategy))
			}
			fmt.Fprintf(b, "- **%s** (%s): %s\n", label, humanize(string(o.Status)), o.RecommendedAction)
		}
		b.WriteString("\n")
	}
	if !written {
		b.WriteString("Nothing to recommend.\n")
	}
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// RenderHTML converts Markdown to an HTML fragment.
func RenderHTML(md []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(md, &buf); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return buf.Bytes(), nil
}
