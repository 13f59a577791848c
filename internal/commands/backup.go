package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/checkmaster/internal/export"
)

func newBackupCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON backup of all templates and checklists",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			ctx := cmd.Context()
			ts, err := a.port.ListTemplates(ctx)
			if err != nil {
				return err
			}
			ss, err := a.port.ListSessions(ctx)
			if err != nil {
				return err
			}

			now := time.Now()
			path := output
			if path == "" {
				path = export.BackupFileName(now)
			}
			b := export.NewBackup(ts, ss, now)
			if err := writeFile(path, cmd.OutOrStdout(), func(w io.Writer) error { return export.WriteBackup(w, b) }); err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Backed up %d templates and %d checklists to %s\n", len(ts), len(ss), path)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (- for stdout)")
	return cmd
}

func newRestoreCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Import a JSON backup",
		Long: `Import every template and checklist of a backup file under new IDs.
Records are added, not merged: restoring the same file twice creates duplicates.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open backup: %w", err)
			}
			defer f.Close()

			b, err := export.ReadBackup(f)
			if err != nil {
				return err
			}

			prompt := fmt.Sprintf("Import %d templates and %d checklists? Existing records are kept and may be duplicated.", len(b.Templates), len(b.Sessions))
			if !confirm(cmd, prompt, yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "❌ Cancelled.")
				return nil
			}

			res, err := export.Restore(cmd.Context(), a.port, b)
			if err != nil {
				stderr(cmd, "restored %d templates and %d checklists before the failure\n", res.Templates, res.Sessions)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Restored %d templates and %d checklists\n", res.Templates, res.Sessions)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
