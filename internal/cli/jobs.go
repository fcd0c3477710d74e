package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"MemberSync/internal/app"
	"MemberSync/internal/usecase"
)

type jobCommand struct {
	use        string
	job        string
	short      string
	long       string
	takesInput bool
}

var jobCommands = []jobCommand{
	{
		use:   "promote",
		job:   usecase.JobCohortPromotion,
		short: "Advance every member's cohort year by one",
		long:  `Advance every tracked member's cohort year by one. Members reaching the final
year get the senior role; everyone up to the final year gets a refreshed nickname.`,
	},
	{
		use:        "assign-queue <file>",
		job:        usecase.JobQueueNumbers,
		takesInput: true,
		short:      "Assign queue numbers from a file of id,number lines",
		long:       `Assign queue numbers from a file of "student number,queue number" lines.
Use "-" to read from stdin. Blank lines are skipped.

Example:
  membersync assign-queue queue.csv --report errors.md`,
	},
	{
		use:        "complete-initiation <file>",
		job:        usecase.JobInitiationCompletion,
		takesInput: true,
		short:      "Mark the student numbers listed in a file as initiated",
		long:       `Mark every student number in the file (one per line) as initiated, swap the
pre-initiation role for the post-initiation role and refresh the nickname.
Use "-" to read from stdin.`,
	},
	{
		use:   "enforce",
		job:   usecase.JobStructureEnforcement,
		short: "Reconcile nicknames and the senior role for every member",
	},
	{
		use:   "fix-names",
		job:   usecase.JobNameFix,
		short: "Reconcile nicknames for every member",
	},
}

func newJobCommands(opts *RootOptions) []*cobra.Command {
	out := make([]*cobra.Command, 0, len(jobCommands))
	for _, jc := range jobCommands {
		out = append(out, newJobCommand(opts, jc))
	}
	return out
}

func newJobCommand(opts *RootOptions, jc jobCommand) *cobra.Command {
	var reportPath string

	cmd := &cobra.Command{
		Use:   jc.use,
		Short: jc.short,
		Long:  jc.long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				raw, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				input = raw
			}
			return runJob(cmd, opts, jc.job, input, reportPath)
		},
	}
	if jc.takesInput {
		cmd.Args = cobra.ExactArgs(1)
	}
	cmd.Flags().StringVar(&reportPath, "report", "", "write the error report (markdown) to this file")
	return cmd
}

func runJob(cmd *cobra.Command, opts *RootOptions, job, input, reportPath string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	application, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.RunJob(ctx, job, input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, report.Summary())
	written, err := app.WriteReport(reportPath, report)
	if err != nil {
		return err
	}
	if written {
		fmt.Fprintf(out, "Report written to %s\n", reportPath)
	} else if !report.Clean() {
		fmt.Fprint(out, "\n"+report.Markdown())
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(raw), nil
}
