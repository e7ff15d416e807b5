package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that back global flags,
// e.g. PNRT_LOG_LEVEL.
const EnvPrefix = "PNRT"

// Input is what every command receives besides its context.
type Input struct {
	Logger *slog.Logger
	Args   []string
	Stdout io.Writer
}

type loggerKey struct{}

type CLI struct {
	root *cobra.Command
	v    *viper.Viper
}

func NewCLI(name, short string) *CLI {
	c := &CLI{
		root: &cobra.Command{
			Use:           name,
			Short:         short,
			SilenceUsage:  true,
			SilenceErrors: true,
		},
		v: viper.New(),
	}

	flags := c.root.PersistentFlags()
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")

	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.BindPFlag("log-level", flags.Lookup("log-level"))
	_ = c.v.BindPFlag("log-format", flags.Lookup("log-format"))

	c.root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		logger, err := NewLogger(cmd.ErrOrStderr(), c.v.GetString("log-level"), c.v.GetString("log-format"))
		if err != nil {
			return err
		}
		cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
		return nil
	}

	return c
}

func (c *CLI) AddCommands(cmds ...*cobra.Command) {
	c.root.AddCommand(cmds...)
}

// Run executes the command line in os.Args until done or interrupted.
func (c *CLI) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.root.ExecuteContext(ctx)
}

// Execute runs the given arguments with explicit output streams.
func (c *CLI) Execute(ctx context.Context, stdout, stderr io.Writer, args ...string) error {
	c.root.SetArgs(args)
	c.root.SetOut(stdout)
	c.root.SetErr(stderr)
	return c.root.ExecuteContext(ctx)
}

// WithContext adapts a command body to cobra's RunE.
func WithContext(run func(ctx context.Context, input Input) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return run(ctx, Input{
			Logger: LoggerFrom(ctx),
			Args:   args,
			Stdout: cmd.OutOrStdout(),
		})
	}
}

// LoggerFrom returns the logger installed by the root command, or slog.Default.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, errors.Newf("invalid log format %q", format)
	}
}
