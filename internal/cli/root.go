package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"crosspost/internal/app/bootstrap"
	"crosspost/internal/platform/config"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	DBDriver string
	DSN      string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for crosspostctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "crosspostctl",
		Short: "crosspostctl - post queue operations",
		Long: `Operate the crosspost post queue and inspect post history.

Database settings default to the same environment variables used by the
api and worker processes (DB_DRIVER, POSTGRES_DSN, SQLITE_PATH).`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBDriver, "db-driver", "", "database driver (postgres|sqlite), overrides DB_DRIVER")
	cmd.PersistentFlags().StringVar(&opts.DSN, "dsn", "", "database DSN or sqlite path, overrides POSTGRES_DSN/SQLITE_PATH")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewEnqueueCommand(opts))
	cmd.AddCommand(NewDequeueCommand(opts))
	cmd.AddCommand(NewRecordsCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewRecoverCommand(opts))

	return cmd
}

// Execute runs the root command with args and returns the process exit code.
// Failures are rendered in the selected output format.
func Execute(args []string, stdout io.Writer, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	out := &OutputFormatter{Format: format, Writer: stderr}
	if format == "json" {
		out.Writer = stdout
	}
	_ = out.Error(errorCode(err), err.Error())
	return GetExitCode(err)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openRuntime loads configuration, applies flag overrides and connects the database.
func openRuntime(opts *RootOptions, cmd *cobra.Command) (*bootstrap.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if driver := strings.ToLower(strings.TrimSpace(opts.DBDriver)); driver != "" {
		cfg.DBDriver = driver
	}
	if dsn := strings.TrimSpace(opts.DSN); dsn != "" {
		if cfg.DBDriver == config.DriverSQLite {
			cfg.SQLitePath = dsn
		} else {
			cfg.PostgresDSN = dsn
		}
	}
	// Schema changes only happen through the migrate command here.
	cfg.AutoMigrate = false

	formatter(opts, cmd).VerboseLog("using %s database", cfg.DBDriver)
	runtime, err := bootstrap.OpenRuntime(cfg, newLogger(opts, cmd.ErrOrStderr()))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return runtime, nil
}

func newLogger(opts *RootOptions, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With("process", "crosspostctl")
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
