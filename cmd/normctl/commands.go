package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"lerian-normative-engine/internal/report"
	"lerian-normative-engine/pkg/types"
)

func (a *app) analyzeCmd() *cobra.Command {
	var (
		top    int
		format string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect conflicts across the active frameworks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.engine.Detect(cmd.Context())
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "markdown", "md":
				_, err = a.out.Write(report.Markdown(report.Collect(a.engine, top, time.Now().UTC())))
				return err
			case "html":
				html, err := report.RenderHTML(report.Markdown(report.Collect(a.engine, top, time.Now().UTC())))
				if err != nil {
					return err
				}
				_, err = a.out.Write(html)
				return err
			case "text":
			default:
				return fmt.Errorf("unknown format %q (want text, markdown or html)", format)
			}

			headingColor.Fprintf(a.out, "Analyzed %d frameworks: %d conflicts (%d new) in %s\n\n",
				result.TotalFrameworks, result.ConflictsFound, result.NewConflicts, result.ProcessingTime.Round(time.Microsecond))

			edges := a.engine.MostCriticalConflicts(top)
			if len(edges) == 0 {
				successColor.Fprintln(a.out, "No conflicts found.")
				return nil
			}

			table := tablewriter.NewWriter(a.out)
			table.Header("#", "Type", "Severity", "Frameworks", "Score", "Next step")
			for i, e := range edges {
				assessment, _ := a.engine.Assessment(e.Conflict.ID)
				next := "-"
				if recs, err := a.engine.RecommendResolutions(e.Conflict.ID); err == nil && len(recs) > 0 {
					next = recs[0].RecommendedAction
				}
				_ = table.Append([]string{
					strconv.Itoa(i + 1),
					string(e.Conflict.Type),
					severityColor(e.Conflict.Severity).Sprint(e.Conflict.Severity),
					a.title(e.Source) + " vs " + a.title(e.Target),
					strconv.FormatFloat(assessment.SeverityScore, 'f', 1, 64),
					next,
				})
			}
			if err := table.Render(); err != nil {
				return err
			}

			clusters := a.engine.ConflictClusters()
			fmt.Fprintf(a.out, "\n%d conflict cluster(s)\n", len(clusters))
			for i, c := range clusters {
				titles := make([]string, 0, len(c.Frameworks))
				for _, id := range c.Frameworks {
					titles = append(titles, a.title(id))
				}
				fmt.Fprintf(a.out, "  %d. priority %.2f: %s\n", i+1, c.ResolutionPriority, strings.Join(titles, ", "))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of conflicts and frameworks to show")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, markdown or html")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Rank frameworks by keyword relevance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			results := a.engine.Search(strings.Join(args, " "))
			if len(results) == 0 {
				warnColor.Fprintln(a.out, "No frameworks match.")
				return nil
			}

			table := tablewriter.NewWriter(a.out)
			table.Header("#", "Title", "Jurisdiction", "Type", "Relevance")
			for i, r := range results {
				_ = table.Append([]string{
					strconv.Itoa(i + 1),
					r.Framework.Title,
					string(r.Framework.Jurisdiction),
					string(r.Framework.Type),
					strconv.FormatFloat(r.Relevance, 'f', 2, 64),
				})
			}
			return table.Render()
		},
	}
}

func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <framework>...",
		Short: "Rank conflicting frameworks by jurisdiction precedence",
		Long:  "Each framework is given by id or exact title.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, ref := range args {
				f, err := a.lookup(ref)
				if err != nil {
					return err
				}
				ids = append(ids, f.ID)
			}

			res, err := a.engine.ResolvePrecedence(ids)
			if err != nil {
				return err
			}

			successColor.Fprintf(a.out, "Primary: %s\n", a.title(res.Primary))
			for i, id := range res.Secondary {
				fmt.Fprintf(a.out, "  %d. %s\n", i+2, a.title(id))
			}
			fmt.Fprintln(a.out, res.Reasoning)
			return nil
		},
	}
}

func (a *app) applicableCmd() *cobra.Command {
	var sector string
	cmd := &cobra.Command{
		Use:   "applicable <jurisdiction>",
		Short: "List frameworks binding in a jurisdiction, inherited levels included",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			j := types.Jurisdiction(strings.ToLower(args[0]))
			if !j.Valid() {
				return fmt.Errorf("unknown jurisdiction %q", args[0])
			}

			ids := a.engine.ApplicableFrameworks(j, sector)
			headingColor.Fprintf(a.out, "%d framework(s) apply in %s\n", len(ids), j)
			for _, id := range ids {
				f, err := a.engine.Framework(id)
				if err != nil {
					continue
				}
				fmt.Fprintf(a.out, "  - %s (%s)\n", f.Title, f.Jurisdiction)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sector, "sector", "", "sector of activity")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the loaded catalogue",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			stats := a.engine.Statistics()

			table := tablewriter.NewWriter(a.out)
			table.Header("Metric", "Value")
			_ = table.Append([]string{"Total frameworks", strconv.Itoa(stats.Total)})
			_ = table.Append([]string{"Active frameworks", strconv.Itoa(stats.Active)})
			for _, j := range types.AllJurisdictions() {
				if n := stats.ByJurisdiction[j]; n > 0 {
					_ = table.Append([]string{"Jurisdiction " + string(j), strconv.Itoa(n)})
				}
			}
			for _, t := range types.AllFrameworkTypes() {
				if n := stats.ByType[t]; n > 0 {
					_ = table.Append([]string{"Type " + string(t), strconv.Itoa(n)})
				}
			}
			return table.Render()
		},
	}
}
