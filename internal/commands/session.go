package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/checkmaster/internal/engine"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/parser"
)

func newSessionCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions", "s"},
		Short:   "Start and fill in checklists",
	}
	cmd.AddCommand(
		newSessionStartCmd(flags),
		newSessionListCmd(flags),
		newSessionShowCmd(flags),
		newSessionNoteCmd(flags),
		newSessionCheckCmd(flags),
		newSessionMoveCmd(flags),
		newSessionRemoveCmd(flags),
	)
	return cmd
}

// editSession opens id in a fresh engine, applies fn and flushes. Write
// failures reported by the engine become the command's error.
func editSession(ctx context.Context, a *app, prefix string, fn func(eng *engine.Engine, s models.Session) error) (models.Session, error) {
	sess, err := resolveSession(ctx, a.port, prefix)
	if err != nil {
		return models.Session{}, err
	}

	collector := &errorCollector{}
	eng := a.newEngine(collector)
	opened, err := eng.Open(ctx, sess.ID)
	if err != nil {
		eng.Close(ctx)
		return models.Session{}, err
	}
	if err := fn(eng, opened); err != nil {
		eng.Close(ctx)
		return models.Session{}, err
	}

	cur, _ := eng.Current()
	if err := eng.Close(ctx); err != nil {
		return models.Session{}, err
	}
	if err := collector.Err(); err != nil {
		return models.Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return cur, nil
}

func newSessionStartCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <template-id>",
		Short: "Start a checklist from a template",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			t, err := resolveTemplate(cmd.Context(), a.port, args[0])
			if err != nil {
				return err
			}
			eng := a.newEngine(nil)
			defer eng.Close(cmd.Context())

			sess, err := eng.Start(cmd.Context(), t.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Started %q with %d items - ID: %s\n", sess.Title, len(sess.Items), parser.ShortID(sess.ID))
			return nil
		}),
	}
}

func newSessionListCmd(flags *globalFlags) *cobra.Command {
	var (
		since      string
		limit      int
		jsonOutput bool
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List checklists, newest first",
		Args:    cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			ss, err := a.port.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			if since != "" {
				from, err := parser.ParseSince(since, now)
				if err != nil {
					return err
				}
				filtered := ss[:0]
				for _, s := range ss {
					if !s.Created.Before(from) {
						filtered = append(filtered, s)
					}
				}
				ss = filtered
			}
			if limit > 0 && len(ss) > limit {
				ss = ss[:limit]
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, ss)
			}
			if len(ss) == 0 {
				fmt.Fprintln(out, "No saved checklists.")
				return nil
			}
			fmt.Fprintf(out, "%-8s  %-40s  %7s  %s\n", "ID", "TITLE", "DONE", "CREATED")
			for _, s := range ss {
				done := fmt.Sprintf("%d/%d", s.CheckedCount(), len(s.Items))
				fmt.Fprintf(out, "%-8s  %-40s  %7s  %s\n", parser.ShortID(s.ID), truncate(s.Title, 40), done, parser.FormatCreated(s.Created, now))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&since, "since", "", "only checklists created since (today, yesterday, 7d, 2w, yyyy-mm-dd)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n checklists")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	return cmd
}

func printSession(w io.Writer, s models.Session) {
	fmt.Fprintf(w, "%s  (%s)\n", s.Title, s.ID)
	fmt.Fprintf(w, "%d/%d done · created %s\n\n", s.CheckedCount(), len(s.Items), s.Created.Local().Format("2006-01-02 15:04"))
	for i, it := range s.Items {
		box := "[ ]"
		if it.Checked {
			box = "[x]"
		}
		fmt.Fprintf(w, "%s %3d. %s\n", box, i+1, it.Q)
		if it.A != "" {
			for _, line := range strings.Split(it.A, "\n") {
				fmt.Fprintf(w, "          %s\n", line)
			}
		}
	}
}

func newSessionShowCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a checklist",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			s, err := resolveSession(cmd.Context(), a.port, args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			printSession(cmd.OutOrStdout(), *s)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	return cmd
}

func newSessionNoteCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <item> <text...>",
		Short: "Set the note of an item",
		Long:  `Set the note of item <item> (1-based). An empty text clears the note.`,
		Args:  cobra.MinimumNArgs(2),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			text := strings.Join(args[2:], " ")
			_, err := editSession(cmd.Context(), a, args[0], func(eng *engine.Engine, s models.Session) error {
				i, err := parser.ParsePosition(args[1], len(s.Items))
				if err != nil {
					return err
				}
				return eng.EditNote(i, text)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ Note saved")
			return nil
		}),
	}
}

func newSessionCheckCmd(flags *globalFlags) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   "check <id> <item>",
		Short: "Check off an item",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			cur, err := editSession(cmd.Context(), a, args[0], func(eng *engine.Engine, s models.Session) error {
				i, err := parser.ParsePosition(args[1], len(s.Items))
				if err != nil {
					return err
				}
				return eng.SetChecked(i, !off)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d/%d done\n", cur.CheckedCount(), len(cur.Items))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&off, "off", false, "uncheck the item instead")
	return cmd
}

func newSessionMoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <from> <to>",
		Short: "Move an item to another position",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			cur, err := editSession(cmd.Context(), a, args[0], func(eng *engine.Engine, s models.Session) error {
				from, err := parser.ParsePosition(args[1], len(s.Items))
				if err != nil {
					return err
				}
				to, err := parser.ParsePosition(args[2], len(s.Items))
				if err != nil {
					return err
				}
				return eng.Reorder(from, to)
			})
			if err != nil {
				return err
			}
			printSession(cmd.OutOrStdout(), cur)
			return nil
		}),
	}
}

func newSessionRemoveCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a checklist permanently",
		Args:    cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			s, err := resolveSession(cmd.Context(), a.port, args[0])
			if err != nil {
				return err
			}
			if !confirm(cmd, fmt.Sprintf("Delete %q permanently? This cannot be undone.", s.Title), yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "❌ Cancelled.")
				return nil
			}
			eng := a.newEngine(nil)
			defer eng.Close(cmd.Context())
			if err := eng.Delete(cmd.Context(), s.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑  %q deleted\n", s.Title)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
