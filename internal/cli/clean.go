package cli

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"grabvid/internal/paths"
)

var (
	cleanDryRun bool
	cleanJSON   bool
)

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove files grabvid leaves behind",
	}

	cmd.PersistentFlags().BoolVar(&cleanDryRun, "dry-run", false, "List what would be removed without deleting")
	cmd.PersistentFlags().BoolVar(&cleanJSON, "json", false, "Output machine-readable JSON")

	cmd.AddCommand(newCleanLogsCmd())

	return cmd
}

func newCleanLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Remove all log files",
		Args:  cobra.NoArgs,
		RunE:  runCleanLogs,
	}
}

type cleanResult struct {
	Removed    int   `json:"removed"`
	FreedBytes int64 `json:"freed_bytes"`
	Skipped    int   `json:"skipped"`
	DryRun     bool  `json:"dry_run"`
}

// runCleanLogs resolves paths without loadEnvironment so that cleaning does
// not open a fresh log file in the directory being emptied.
func runCleanLogs(cmd *cobra.Command, _ []string) error {
	p, _, err := resolveConfig()
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	out := cmd.OutOrStdout()
	result := cleanResult{DryRun: cleanDryRun}

	files, err := listFiles(p.LogsDir)
	if err != nil {
		return err
	}
	for _, path := range files {
		removeFileEntry(path, out, &result)
	}

	return writeCleanResult(out, "logs", result)
}

func listFiles(root string) ([]string, error) {
	exists, err := paths.DirExists(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !exists {
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func removeFileEntry(path string, out io.Writer, result *cleanResult) {
	info, err := os.Stat(path)
	if err != nil {
		result.Skipped++
		return
	}
	size := info.Size()

	if cleanDryRun {
		if !cleanJSON {
			fmt.Fprintf(out, "would remove %s (%s)\n", path, formatSize(size))
		}
		result.Removed++
		result.FreedBytes += size
		return
	}

	if err := os.Remove(path); err != nil {
		if !cleanJSON {
			fmt.Fprintf(out, "error removing %s: %v\n", path, err)
		}
		result.Skipped++
		return
	}
	if !cleanJSON {
		fmt.Fprintf(out, "removed %s (%s)\n", path, formatSize(size))
	}
	result.Removed++
	result.FreedBytes += size
}

func writeCleanResult(out io.Writer, target string, result cleanResult) error {
	if cleanJSON {
		return writeJSON(out, result)
	}
	action := "complete"
	if result.DryRun {
		action = "(dry run)"
	}
	fmt.Fprintf(out, "\nClean %s %s: %d removed, %s freed, %d skipped\n",
		target, action, result.Removed, formatSize(result.FreedBytes), result.Skipped)
	return nil
}

func formatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
