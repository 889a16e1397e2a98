package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/pipeline"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	cellStyle   = lipgloss.NewStyle().PaddingRight(2)
	totalStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
)

var pipelineColumns = []int{14, 10, 14, 8, 10}

func pipelineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Summarize opportunities and contacts by sales stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.Services(cmd.Context())
			if err != nil {
				return err
			}

			var opps []model.Opportunity
			var contacts []model.Contact
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				recs, err := svc.Opportunities.Fetch(ctx, nil)
				if err != nil {
					return err
				}
				opps = svc.Opportunities.Decode(recs)
				return nil
			})
			g.Go(func() error {
				recs, err := svc.Contacts.Fetch(ctx, nil)
				if err != nil {
					return err
				}
				contacts = svc.Contacts.Decode(recs)
				return nil
			})
			if err := g.Wait(); err != nil {
				return err
			}

			renderPipeline(a.out, pipeline.Summarize(opps), pipeline.CountByStage(contacts, pipeline.ContactStage), pipeline.TotalValue(opps))
			return nil
		},
	}
}

func renderPipeline(w io.Writer, summary []pipeline.StageSummary, contacts map[model.Stage]int, total float64) {
	row := func(style lipgloss.Style, cells ...string) string {
		rendered := make([]string, len(cells))
		for i, c := range cells {
			rendered[i] = cellStyle.Width(pipelineColumns[i]).Inherit(style).Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}

	lines := []string{row(headerStyle, "STAGE", "DEALS", "VALUE", "SHARE", "CONTACTS")}
	count := 0
	for _, s := range summary {
		style := lipgloss.NewStyle()
		if s.Count == 0 && contacts[s.Stage] == 0 {
			style = mutedStyle
		}
		count += s.Count
		lines = append(lines, row(style,
			string(s.Stage),
			strconv.Itoa(s.Count),
			formatMoney(s.Value),
			fmt.Sprintf("%.1f%%", s.Percent),
			strconv.Itoa(contacts[s.Stage]),
		))
	}
	lines = append(lines, row(totalStyle, "total", strconv.Itoa(count), formatMoney(total), "", ""))
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func formatMoney(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}
