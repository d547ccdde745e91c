package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/report"
	"github.com/sells-group/takeoff-cli/internal/store"
)

var (
	jobsStatus    string
	jobsLimit     int
	jobsOffset    int
	jobsReport    bool
	jobsOlderThan time.Duration
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect analysis jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis jobs, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		list, err := e.store.ListJobs(ctx, store.JobFilter{
			Status: model.JobStatus(jobsStatus),
			Limit:  jobsLimit,
			Offset: jobsOffset,
		})
		if err != nil {
			return eris.Wrap(err, "cmd: list jobs")
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tSTATUS\tPROGRESS\tATTEMPTS\tCREATED\n")
		for _, job := range list {
			fmt.Fprintf(w, "%s\t%s\t%d%%\t%d\t%s\n",
				job.ID, job.Status, job.Progress.Percent, job.Attempts,
				job.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var jobsStatusCmd = &cobra.Command{
	Use:     "status <job-id>",
	Aliases: []string{"get"},
	Short:   "Show one analysis job",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		job, err := e.store.GetJob(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "cmd: get job %s", args[0])
		}

		if jobsReport {
			if job.Result == nil {
				return eris.New("cmd: job has no result yet")
			}
			cmd.Print(report.Summary(job.Result))
			return nil
		}

		out, err := json.MarshalIndent(job, "", "  ")
		if err != nil {
			return eris.Wrap(err, "cmd: marshal job")
		}
		cmd.Println(string(out))
		return nil
	},
}

var jobsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete terminal jobs and stored documents older than the cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		cutoff := time.Now().Add(-jobsOlderThan)

		purged, err := e.store.PurgeTerminalBefore(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "cmd: purge jobs")
		}
		removed, err := e.docs.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			return eris.Wrap(err, "cmd: purge documents")
		}

		cmd.Printf("purged %d job(s), %d document(s)\n", purged, removed)
		return nil
	},
}

func init() {
	jobsListCmd.Flags().StringVar(&jobsStatus, "status", "",
		"filter by status (queued, active, completed, failed)")
	jobsListCmd.Flags().IntVar(&jobsLimit, "limit", 20, "maximum jobs to list")
	jobsListCmd.Flags().IntVar(&jobsOffset, "offset", 0, "jobs to skip")

	jobsStatusCmd.Flags().BoolVar(&jobsReport, "report", false,
		"print the cost report instead of the job record")

	jobsPurgeCmd.Flags().DurationVar(&jobsOlderThan, "older-than", 24*time.Hour,
		"purge terminal jobs and documents older than this")

	jobsCmd.AddCommand(jobsListCmd, jobsStatusCmd, jobsPurgeCmd)
	rootCmd.AddCommand(jobsCmd)
}
