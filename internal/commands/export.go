package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/checkmaster/internal/export"
	"github.com/balkashynov/checkmaster/internal/models"
)

func newExportCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export checklists as text, CSV or Excel",
	}
	cmd.AddCommand(
		newSessionExportCmd(flags, "txt", "Write a text report of a checklist", export.WriteText),
		newSessionExportCmd(flags, "csv", "Write a CSV report of a checklist", export.WriteCSV),
		newWorkbookExportCmd(flags),
	)
	return cmd
}

type sessionWriter func(w io.Writer, s models.Session, lang export.Lang) error

// writeFile creates path, runs fn on a buffered writer and flushes.
// "-" writes to out instead.
func writeFile(path string, out io.Writer, fn func(io.Writer) error) error {
	if path == "-" {
		return fn(out)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newSessionExportCmd(flags *globalFlags, ext, short string, write sessionWriter) *cobra.Command {
	var (
		output string
		lang   string
	)
	cmd := &cobra.Command{
		Use:   ext + " <session-id>",
		Short: short,
		Long: fmt.Sprintf(`%s.

The file is named checklist-<created>.%s unless -o is given; -o - writes to stdout.`, short, ext),
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			s, err := resolveSession(cmd.Context(), a.port, args[0])
			if err != nil {
				return err
			}
			l, err := a.lang(lang)
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = export.SessionFileName(*s, ext)
			}
			if err := writeFile(path, cmd.OutOrStdout(), func(w io.Writer) error { return write(w, *s, l) }); err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "✅ Saved %s\n", path)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().StringVar(&lang, "lang", "", "report language: ko|en (default from config)")
	return cmd
}

func newWorkbookExportCmd(flags *globalFlags) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "xlsx",
		Short: "Write every checklist to one Excel workbook",
		Long:  `Write a workbook with a Sessions summary sheet and a Details sheet holding every item.`,
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			ss, err := a.port.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(ss) == 0 {
				return fmt.Errorf("no checklists to export")
			}
			path := output
			if path == "" {
				path = export.WorkbookFileName(time.Now())
			}
			if err := writeFile(path, cmd.OutOrStdout(), func(w io.Writer) error { return export.WriteWorkbook(w, ss) }); err != nil {
				return err
			}
			if path != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "✅ %d checklists saved to %s\n", len(ss), path)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	return cmd
}
