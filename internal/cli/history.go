package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records <submission-id>",
		Short: "List post attempts of a submission, newest first",
		Example: `  crosspostctl records sub-1
  crosspostctl records sub-1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runRecords(opts *RootOptions, cmd *cobra.Command, submissionID string) error {
	runtime, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer runtime.Close()

	resp, err := runtime.Module.Handler.ListPostRecordsHandler(context.Background(), submissionID)
	if err != nil {
		return WrapExitError(ExitFailure, "list post records failed", err)
	}
	return formatter(opts, cmd).Render(resp, func(w io.Writer) {
		if len(resp.Items) == 0 {
			fmt.Fprintf(w, "No post records for submission: %s\n", submissionID)
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTATE\tRESUME MODE\tCREATED\tCOMPLETED")
		for _, item := range resp.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", item.ID, item.State, item.ResumeMode, item.CreatedAt, item.CompletedAt)
		}
		_ = tw.Flush()
	})
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events <post-record-id>",
		Short: "Show the event ledger of a post attempt",
		Example: `  crosspostctl events 6f1c...
  crosspostctl events 6f1c... --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(rootOpts, cmd, args[0])
		},
	}
	return cmd
}

func runEvents(opts *RootOptions, cmd *cobra.Command, postRecordID string) error {
	runtime, err := openRuntime(opts, cmd)
	if err != nil {
		return err
	}
	defer runtime.Close()

	resp, err := runtime.Module.Handler.ListPostEventsHandler(context.Background(), postRecordID)
	if err != nil {
		return WrapExitError(ExitFailure, "list post events failed", err)
	}
	return formatter(opts, cmd).Render(resp, func(w io.Writer) {
		if len(resp.Items) == 0 {
			fmt.Fprintf(w, "No events for post record: %s\n", postRecordID)
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CREATED\tTYPE\tACCOUNT\tFILE\tSOURCE URL\tERROR")
		for _, item := range resp.Items {
			message := ""
			if item.Error != nil {
				message = item.Error.Message
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				item.CreatedAt, item.EventType, item.AccountID, item.FileID, item.SourceURL, message)
		}
		_ = tw.Flush()
	})
}
