package cli

import (
	"context"
	"fmt"
	"io"

	posthttp "crosspost/contexts/publishing/post-orchestration-service/transport/http"

	"github.com/spf13/cobra"
)

// EnqueueOptions holds flags for the enqueue command.
type EnqueueOptions struct {
	*RootOptions
	ResumeMode string
}

// NewEnqueueCommand creates the enqueue command.
func NewEnqueueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnqueueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enqueue <submission-id>...",
		Short: "Admit submissions to the post queue",
		Long: `Admit submissions to the post queue.

Submissions already queued are left untouched. The resume mode decides how
the next attempt treats earlier attempts of the same submission:

  RESTART         post everything again
  CONTINUE        skip completed accounts and already posted files
  CONTINUE_RETRY  skip completed accounts, retry every file elsewhere

Examples:
  crosspostctl enqueue sub-1 sub-2
  crosspostctl enqueue sub-1 --resume-mode CONTINUE --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnqueue(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.ResumeMode, "resume-mode", "RESTART", "resume mode (RESTART|CONTINUE|CONTINUE_RETRY)")

	return cmd
}

func runEnqueue(opts *EnqueueOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	runtime, err := openRuntime(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer runtime.Close()

	resp, err := runtime.Module.Handler.EnqueueHandler(ctx, posthttp.EnqueueRequest{
		SubmissionIDs: args,
		ResumeMode:    opts.ResumeMode,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "enqueue failed", err)
	}

	return formatter(opts.RootOptions, cmd).Render(resp, func(w io.Writer) {
		if len(resp.Queued) == 0 {
			fmt.Fprintln(w, "No submissions queued (already in queue)")
			return
		}
		for _, item := range resp.Queued {
			fmt.Fprintf(w, "queued %s (%s)\n", item.SubmissionID, item.ResumeMode)
		}
	})
}

// NewDequeueCommand creates the dequeue command.
func NewDequeueCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dequeue <submission-id>...",
		Short: "Remove submissions from the post queue",
		Long: `Remove submissions from the post queue.

Post records and their events are kept. Attempts running inside an api or
worker process are cancelled through that process's HTTP surface instead.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDequeue(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runDequeue(opts *RootOptions, cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	runtime, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer runtime.Close()

	resp, err := runtime.Module.Handler.DequeueHandler(ctx, posthttp.DequeueRequest{SubmissionIDs: args})
	if err != nil {
		return WrapExitError(ExitFailure, "dequeue failed", err)
	}
	return formatter(opts, cmd).Render(resp, func(w io.Writer) {
		fmt.Fprintf(w, "removed %d queue entr%s\n", resp.Removed, plural(resp.Removed, "y", "ies"))
	})
}

// NewRecoverCommand creates the recover command.
func NewRecoverCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Resume interrupted attempts and drain the queue",
		Long: `Re-admit attempts left RUNNING by an unclean shutdown, then post
queued submissions in this process until the queue is empty.

Do not run while an api or worker process is driving the same database.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecover(rootOpts, cmd)
		},
	}
	return cmd
}

// RecoverResult is the recover command payload.
type RecoverResult struct {
	Recovered int `json:"recovered"`
}

func runRecover(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	runtime, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer runtime.Close()

	recovered, err := runtime.Recover(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "recover failed", err)
	}
	result := RecoverResult{Recovered: recovered}
	return formatter(opts, cmd).Render(result, func(w io.Writer) {
		fmt.Fprintf(w, "recovered %d attempt%s, queue drained\n", recovered, plural(recovered, "", "s"))
	})
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply the post orchestration schema",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runtime, err := openRuntime(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer runtime.Close()

			if err := runtime.Migrate(context.Background()); err != nil {
				return WrapExitError(ExitCommandError, "migration failed", err)
			}
			return formatter(rootOpts, cmd).Render(map[string]string{"schema": "migrated"}, func(w io.Writer) {
				fmt.Fprintln(w, "schema migrated")
			})
		},
	}
	return cmd
}

func plural(n int, one string, many string) string {
	if n == 1 {
		return one
	}
	return many
}
