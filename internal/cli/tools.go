package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"grabvid/internal/tools"
	"grabvid/internal/tui"
)

var (
	outputJSON   bool
	installForce bool
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and install the external tools",
	}

	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsInstallCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Probe every tool without installing anything",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	statuses, err := tools.Detect(cmd.Context(), env.runner, env.search, env.specs, env.paths.ToolsDir)
	if err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), statuses)
	}
	printStatusTable(cmd.OutOrStdout(), statuses)
	return nil
}

func newToolsInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install [tool|all]",
		Short: "Install tools into the application data directory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runToolsInstall,
	}

	cmd.Flags().BoolVar(&installForce, "force", false, "Download again even if the tool is already installed")

	return cmd
}

func runToolsInstall(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	selected, err := selectTools(env.specs, args)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	var (
		outcomes []tools.Outcome
		errs     []error
	)
	reporter := tui.NewPlainReporter(cmd.ErrOrStderr())
	for _, spec := range selected {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		reporter.Installing(spec)
		out := env.installer.Install(cmd.Context(), spec, tools.InstallOptions{Force: installForce})
		reporter.Finished(out)
		if out.Err != nil {
			errs = append(errs, out.Err)
		}
		outcomes = append(outcomes, out)
	}

	if outputJSON {
		if err := writeJSON(cmd.OutOrStdout(), outcomeRecords(outcomes)); err != nil {
			return err
		}
	}

	if len(errs) > 0 {
		return &ExitError{Code: ExitMissingDep, Err: errors.Join(errs...)}
	}
	return nil
}

// selectTools resolves the install argument. No argument or "all" selects
// every tool the platform has a download for.
func selectTools(specs []tools.ToolSpec, args []string) ([]tools.ToolSpec, error) {
	target := "all"
	if len(args) == 1 {
		target = strings.ToLower(strings.TrimSpace(args[0]))
	}

	if target != "all" {
		spec, ok := tools.Lookup(specs, target)
		if !ok {
			return nil, fmt.Errorf("unknown tool: %s (known: %s)", target, strings.Join(tools.Names(specs), ", "))
		}
		return []tools.ToolSpec{spec}, nil
	}

	var selected []tools.ToolSpec
	for _, spec := range specs {
		if spec.Artifact != nil {
			selected = append(selected, spec)
		}
	}
	if len(selected) == 0 {
		return nil, tools.ErrNoArtifact
	}
	return selected, nil
}

type outcomeRecord struct {
	Tool     string       `json:"tool"`
	Result   string       `json:"result"`
	Source   tools.Source `json:"source,omitempty"`
	Location string       `json:"location,omitempty"`
	Error    string       `json:"error,omitempty"`
}

func outcomeRecords(outcomes []tools.Outcome) []outcomeRecord {
	records := make([]outcomeRecord, 0, len(outcomes))
	for _, out := range outcomes {
		rec := outcomeRecord{Tool: out.Tool, Result: out.Kind.String(), Source: out.Source, Location: out.Location}
		if out.Err != nil {
			rec.Error = out.Err.Error()
		}
		records = append(records, rec)
	}
	return records
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printStatusTable(w io.Writer, statuses []tools.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "(no tools)")
		return
	}

	rows := make([]tools.Status, len(statuses))
	copy(rows, statuses)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Required && !rows[j].Required
	})

	fmt.Fprintf(w, "%-11s %-9s %-8s %-12s %-4s %s\n", "Tool", "Required", "Source", "Version", "OK", "Path")
	for _, st := range rows {
		required := "no"
		if st.Required {
			required = "yes"
		}
		ok := "no"
		if st.Available {
			ok = "yes"
		}
		path := st.Path
		if path == "" {
			path = "(missing)"
		}
		fmt.Fprintf(w, "%-11s %-9s %-8s %-12s %-4s %s\n", st.Tool, required, st.Source, st.Version, ok, path)
		if st.Error != "" {
			fmt.Fprintf(w, "  error: %s\n", st.Error)
		}
		for _, note := range st.Notes {
			fmt.Fprintf(w, "  note: %s\n", note)
		}
	}
}
