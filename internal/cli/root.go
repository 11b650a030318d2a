package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"grabvid/internal/app"
	"grabvid/internal/download"
	"grabvid/internal/prompt"
	"grabvid/internal/tools"
	"grabvid/internal/tui"
)

const (
	ExitOK         = 0
	ExitCLIError   = 1
	ExitMissingDep = 2
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

var (
	homeDir    string
	configPath string
	debugLogs  bool
	noProgress bool
)

// Execute runs the root command and reports any error on stderr. It returns
// the process exit code.
func Execute(ctx context.Context) int {
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	reportError(root.ErrOrStderr(), err)
	return ExitCode(err)
}

// ExitCode maps err onto the documented exit codes.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var depErr *app.DependencyError
	if errors.As(err, &depErr) {
		return ExitMissingDep
	}
	return ExitCLIError
}

func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, tui.ErrorStyle.Render("error: "+err.Error()))
	var depErr *app.DependencyError
	if errors.As(err, &depErr) {
		for _, hint := range depErr.Hints {
			fmt.Fprintln(w, tui.HintStyle.Render("  "+hint))
		}
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "grabvid",
		Short:         "Download YouTube videos with yt-dlp, installing what it needs first",
		Long:          "grabvid makes sure yt-dlp and ffmpeg are available, installing them into its own data directory when they are missing, and then asks for a video URL, a destination folder and a quality.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runRoot,
	}

	bindGlobalFlags(cmd.PersistentFlags())

	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVar(&homeDir, "home", "", "Application data directory (default: per-user data dir, or $GRABVID_HOME)")
	fs.StringVar(&configPath, "config", "", "Config file (default: <home>/config.yaml)")
	fs.BoolVar(&debugLogs, "debug", false, "Write debug entries to the log file")
	fs.BoolVar(&noProgress, "no-progress", false, "Print plain progress lines instead of the interactive table")
}

func runRoot(cmd *cobra.Command, _ []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if _, err := bootstrapTools(ctx, cmd, env, env.specs); err != nil {
		return err
	}

	downloader, ok := tools.Lookup(env.specs, tools.ToolDownloader)
	if !ok {
		return &ExitError{Code: ExitCLIError, Err: errors.New("no downloader in the tool catalog")}
	}

	quality, err := download.ParseQuality(env.cfg.Download.Quality)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	out := cmd.OutOrStdout()
	spinner := tui.DetectMode(out, noProgress, false) == tui.ModeTUI
	dl := &download.Downloader{
		Runner:     env.runner,
		Path:       env.search,
		Executable: downloader.Executable,
		Stdout:     out,
		Logger:     env.logger,
	}
	if !spinner {
		dl.Stderr = cmd.ErrOrStderr()
	}

	session := &app.Session{
		Prompter: prompt.Forms{
			Accessible: !tui.IsTerminal(os.Stdin),
			In:         cmd.InOrStdin(),
			Out:        out,
		},
		Downloader: dl,
		Out:        out,
		Defaults: app.Defaults{
			SaveDir:   env.cfg.Download.SaveDir,
			Quality:   quality,
			ExtraArgs: env.cfg.Download.ExtraArgs,
		},
		Spinner: spinner,
		Logger:  env.logger,
	}
	return session.Run(ctx)
}

// bootstrapTools runs the bootstrap over specs, rendering a live table when
// stdout is a terminal.
func bootstrapTools(ctx context.Context, cmd *cobra.Command, env *environment, specs []tools.ToolSpec) ([]tools.Outcome, error) {
	b := &app.Bootstrapper{
		Runner:    env.runner,
		Path:      env.search,
		Installer: env.installer,
		Logger:    env.logger,
	}

	out := cmd.OutOrStdout()
	if tui.DetectMode(out, noProgress, false) != tui.ModeTUI {
		b.Reporter = tui.NewPlainReporter(out)
		return b.Run(ctx, specs)
	}

	var outcomes []tools.Outcome
	model := tui.NewBootstrapModel("Checking required tools", requiredNames(specs))
	err := tui.RunWithWork(ctx, out, model, func(ctx context.Context, send func(tea.Msg)) error {
		b.Reporter = tui.NewBootstrapReporter(send)
		var err error
		outcomes, err = b.Run(ctx, specs)
		return err
	})
	if errors.Is(err, tui.ErrInterrupted) {
		return outcomes, &ExitError{Code: ExitCLIError, Err: err}
	}
	return outcomes, err
}

func requiredNames(specs []tools.ToolSpec) []string {
	var names []string
	for _, spec := range specs {
		if spec.Required {
			names = append(names, spec.Name)
		}
	}
	return names
}
