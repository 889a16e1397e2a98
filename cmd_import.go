package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/crmsync/pkg/model"
	"github.com/harrisonrobin/crmsync/pkg/normalize"
	"github.com/harrisonrobin/crmsync/pkg/orgmode"
)

func importOrgCmd(a *app) *cobra.Command {
	var tag, projectID string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import-org FILE...",
		Short: "Create tasks from Org-mode TODO and DONE headlines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := orgmode.ParseFiles(args)
			if err != nil {
				return err
			}
			if tag != "" {
				drafts = orgmode.FilterByTag(drafts, tag)
			}
			tasks := make([]model.Task, 0, len(drafts))
			for _, d := range drafts {
				t := normalize.TaskFromDraft(d)
				if projectID != "" {
					t.ProjectID = projectID
				}
				tasks = append(tasks, t)
			}
			a.logger.Info("parsed org files", zap.Int("files", len(args)), zap.Int("tasks", len(tasks)))
			if dryRun {
				return a.printJSON(tasks)
			}

			svc, err := a.Services(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.Tasks.Create(cmd.Context(), tasks)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "imported %d of %d tasks\n", len(res.Records), res.Submitted)
			return bulkError("import", res)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "only import headlines carrying this tag")
	cmd.Flags().StringVar(&projectID, "project", "", "attach the tasks to this project id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the tasks instead of creating them")
	return cmd
}
