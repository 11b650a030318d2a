package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"grabvid/internal/config"
	"grabvid/internal/logx"
	"grabvid/internal/paths"
	"grabvid/internal/proc"
	"grabvid/internal/tools"
	"grabvid/internal/tui"
)

// environment is everything a command needs after flags, config and paths
// have been resolved.
type environment struct {
	paths     paths.AppPaths
	cfg       config.Config
	specs     []tools.ToolSpec
	search    *proc.SearchPath
	runner    proc.Runner
	installer *tools.Installer
	logger    *log.Logger
	closer    io.Closer
}

func (e *environment) Close() {
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

// resolveConfig loads the config named by --config, or the one in the
// application home, and applies its directory overrides.
func resolveConfig() (paths.AppPaths, config.Config, error) {
	p, err := paths.Resolve(homeDir)
	if err != nil {
		return paths.AppPaths{}, config.Config{}, err
	}
	cfg, err := config.Load(configFile(p))
	if err != nil {
		return p, config.Config{}, err
	}
	return paths.ApplyConfig(p, cfg), cfg, nil
}

func configFile(p paths.AppPaths) string {
	if strings.TrimSpace(configPath) != "" {
		return configPath
	}
	return p.ConfigFile
}

func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	p, cfg, err := resolveConfig()
	if err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}

	results := cfg.Validate(tools.Names(tools.Catalog(p.ToolsDir)))
	for _, r := range results {
		if r.Level == "warning" {
			fmt.Fprintln(cmd.ErrOrStderr(), tui.HintStyle.Render("warning: "+r.Message))
		}
	}
	if errs := config.Errors(results); len(errs) > 0 {
		return nil, &ExitError{Code: ExitCLIError, Err: fmt.Errorf("invalid config: %s", errs[0].Message)}
	}

	if err := p.EnsureDirs(); err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}
	logger, closer, err := logx.New(p.LogsDir, logx.Level(debugLogs))
	if err != nil {
		return nil, &ExitError{Code: ExitCLIError, Err: err}
	}

	search := proc.FromEnv()
	runner := proc.CmdRunner{}
	logger.Info("starting", "home", p.Home, "tools", p.ToolsDir)
	logger.Debug("search path", "path", search.String())

	return &environment{
		paths:  p,
		cfg:    cfg,
		specs:  catalog(p, cfg),
		search: search,
		runner: runner,
		installer: &tools.Installer{
			Fetcher: &tools.Fetcher{
				Runner:    runner,
				Path:      search,
				UserAgent: cfg.UserAgent,
				Logger:    logger,
			},
			Path:      search,
			LocalDirs: paths.LocalToolDirs(),
			Root:      p.ToolsDir,
			Logger:    logger,
		},
		logger: logger,
		closer: closer,
	}, nil
}

// catalog returns the platform catalog with the config's required list and
// download overrides applied.
func catalog(p paths.AppPaths, cfg config.Config) []tools.ToolSpec {
	specs := tools.Catalog(p.ToolsDir)
	specs = tools.WithRequired(specs, cfg.Required)
	if len(cfg.Tools) > 0 {
		overrides := make(map[string]tools.Override, len(cfg.Tools))
		for name, tc := range cfg.Tools {
			overrides[name] = tools.Override{URL: tc.URL, SHA256: tc.SHA256}
		}
		specs = tools.WithOverrides(specs, overrides)
	}
	return specs
}
