package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"grabvid/internal/config"
	"grabvid/internal/paths"
	"grabvid/internal/proc"
	"grabvid/internal/tools"
)

var doctorJSON bool

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, config and directories",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
	cmd.Flags().BoolVar(&doctorJSON, "json", false, "Output machine-readable JSON")
	return cmd
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, cfg, cfgErr := resolveConfig()
	if cfgErr != nil && pp.Home == "" {
		return cfgErr
	}

	var checks []healthCheck
	checks = append(checks, checkConfig(cfg, cfgErr))
	checks = append(checks, checkDirectories(pp))

	specs := tools.Catalog(pp.ToolsDir)
	if cfgErr == nil {
		specs = catalog(pp, cfg)
	}
	statuses, err := tools.Detect(cmd.Context(), proc.CmdRunner{}, proc.FromEnv(), specs, pp.ToolsDir)
	if err != nil {
		checks = append(checks, healthCheck{Name: "Tools", Status: "error", Summary: err.Error()})
	} else {
		checks = append(checks, checkTools(specs, statuses))
	}
	if cfgErr == nil && cfg.Download.SaveDir != "" {
		checks = append(checks, checkSaveDir(cfg.Download.SaveDir))
	}

	if err := writeDoctorResult(cmd.OutOrStdout(), pp.Home, checks); err != nil {
		return err
	}
	for _, c := range checks {
		if c.Status == "error" {
			return &ExitError{Code: ExitCLIError, Err: fmt.Errorf("%s check failed: %s", c.Name, c.Summary)}
		}
	}
	return nil
}

// checkTools fails when a required tool is missing and cannot be installed
// automatically; a missing tool with a download is only a warning since the
// next run installs it.
func checkTools(specs []tools.ToolSpec, statuses []tools.Status) healthCheck {
	var (
		found   []string
		pending []string
		missing []string
	)
	for _, st := range statuses {
		switch {
		case st.Available:
			label := st.Tool
			if st.Version != "" {
				label += " " + st.Version
			}
			found = append(found, label)
		case !st.Required:
		default:
			if spec, ok := tools.Lookup(specs, st.Tool); ok && spec.Artifact != nil {
				pending = append(pending, st.Tool)
			} else {
				missing = append(missing, st.Tool)
			}
		}
	}

	switch {
	case len(missing) > 0:
		return healthCheck{Name: "Tools", Status: "error", Summary: "cannot install " + joinComma(missing) + " automatically"}
	case len(pending) > 0:
		return healthCheck{Name: "Tools", Status: "warning", Summary: joinComma(pending) + " will be installed on the next run"}
	}
	return healthCheck{Name: "Tools", Status: "ok", Summary: joinComma(found)}
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	validations := cfg.Validate(tools.Names(tools.Catalog("")))
	var warnings, errors int
	for _, v := range validations {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errors++
		}
	}

	summary := fmt.Sprintf("quality %s, %d tool overrides", cfg.Download.Quality, len(cfg.Tools))
	if errors > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errors)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

// checkDirectories verifies the tools directory can be written, creating the
// application directories when they are missing.
func checkDirectories(pp paths.AppPaths) healthCheck {
	if err := pp.EnsureDirs(); err != nil {
		return healthCheck{Name: "Dirs", Status: "error", Summary: err.Error()}
	}
	probe, err := os.CreateTemp(pp.ToolsDir, ".doctor-*")
	if err != nil {
		return healthCheck{Name: "Dirs", Status: "error", Summary: fmt.Sprintf("%s is not writable: %v", pp.ToolsDir, err)}
	}
	probe.Close()
	_ = os.Remove(probe.Name())
	return healthCheck{Name: "Dirs", Status: "ok", Summary: pp.ToolsDir}
}

func checkSaveDir(dir string) healthCheck {
	exists, err := paths.DirExists(filepath.Clean(dir))
	switch {
	case err != nil:
		return healthCheck{Name: "Save dir", Status: "warning", Summary: err.Error()}
	case !exists:
		return healthCheck{Name: "Save dir", Status: "warning", Summary: dir + " does not exist"}
	}
	return healthCheck{Name: "Save dir", Status: "ok", Summary: dir}
}

func writeDoctorResult(w io.Writer, home string, checks []healthCheck) error {
	if doctorJSON {
		return writeJSON(w, checks)
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	fmt.Fprintln(w, bold.Render("GRABVID HEALTH:")+" "+home)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(w, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}
