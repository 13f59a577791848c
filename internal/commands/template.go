package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/checkmaster/internal/parser"
	"github.com/balkashynov/checkmaster/internal/templatefile"
)

func newTemplateCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates", "tpl"},
		Short:   "Manage checklist templates",
	}
	cmd.AddCommand(
		newTemplateAddCmd(flags),
		newTemplateListCmd(flags),
		newTemplateShowCmd(flags),
		newTemplateEditCmd(flags),
		newTemplateRemoveCmd(flags),
		newTemplateImportCmd(flags),
		newTemplateExportCmd(flags),
	)
	return cmd
}

// readQuestions merges -q flags with the lines of --file
func readQuestions(questions []string, file string) ([]string, error) {
	out := append([]string(nil), questions...)
	if file == "" {
		return out, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	return append(out, parser.ParseQuestions(string(data))...), nil
}

func newTemplateAddCmd(flags *globalFlags) *cobra.Command {
	var (
		questions []string
		file      string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a template",
		Long: `Create a template from a title and questions.

Examples:
  checkmaster template add "Store opening" -q "Lights on" -q "Till counted"
  checkmaster template add "Release" -f release-checklist.md`,
		Args: cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			qs, err := readQuestions(questions, file)
			if err != nil {
				return err
			}
			t, err := a.port.CreateTemplate(cmd.Context(), strings.Join(args, " "), qs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Template %q created with %d questions - ID: %s\n", t.Title, len(t.Questions), parser.ShortID(t.ID))
			return nil
		}),
	}
	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "question text (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read questions from a file, one per line")
	return cmd
}

func newTemplateListCmd(flags *globalFlags) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List templates",
		Args:    cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			ts, err := a.port.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, ts)
			}
			if len(ts) == 0 {
				fmt.Fprintln(out, "No templates yet. Create one with: checkmaster template add <title> -q <question>")
				return nil
			}
			now := time.Now()
			fmt.Fprintf(out, "%-8s  %-40s  %9s  %s\n", "ID", "TITLE", "QUESTIONS", "CREATED")
			for _, t := range ts {
				fmt.Fprintf(out, "%-8s  %-40s  %9d  %s\n", parser.ShortID(t.ID), truncate(t.Title, 40), len(t.Questions), parser.FormatCreated(t.Created, now))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	return cmd
}

func newTemplateShowCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a template",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			t, err := resolveTemplate(cmd.Context(), a.port, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  (%s)\n\n", t.Title, t.ID)
			for i, q := range t.Questions {
				fmt.Fprintf(out, "%3d. %s\n", i+1, q)
			}
			return nil
		}),
	}
}

func newTemplateEditCmd(flags *globalFlags) *cobra.Command {
	var (
		title     string
		questions []string
		file      string
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a template's title or questions",
		Long: `Change a template. Questions given with -q or --file replace the whole list.
Existing sessions keep the questions they were started with.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			t, err := resolveTemplate(cmd.Context(), a.port, args[0])
			if err != nil {
				return err
			}
			newTitle := t.Title
			if cmd.Flags().Changed("title") {
				newTitle = title
			}
			newQuestions := t.Questions
			if len(questions) > 0 || file != "" {
				if newQuestions, err = readQuestions(questions, file); err != nil {
					return err
				}
			}
			if err := a.port.UpdateTemplate(cmd.Context(), t.ID, newTitle, newQuestions); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Template %s updated\n", parser.ShortID(t.ID))
			return nil
		}),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "replacement question (repeatable)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read replacement questions from a file")
	return cmd
}

func newTemplateRemoveCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a template",
		Long:    `Delete a template. Sessions started from it are kept.`,
		Args:    cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			t, err := resolveTemplate(cmd.Context(), a.port, args[0])
			if err != nil {
				return err
			}
			if !confirm(cmd, fmt.Sprintf("Delete template %q?", t.Title), yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "❌ Cancelled.")
				return nil
			}
			if err := a.port.DeleteTemplate(cmd.Context(), t.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "🗑  Template %q deleted\n", t.Title)
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newTemplateImportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create templates from an HCL file",
		Long: `Create one template per block of an HCL (or HCL JSON) file:

  template "Store opening" {
    questions = ["Lights on", "Till counted"]
  }

  template "Store closing" {
    question "Alarm set" {}
    question "Doors locked" {}
  }`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			defs, err := templatefile.ParseFile(args[0])
			if err != nil {
				return err
			}
			for _, d := range defs {
				t, err := a.port.CreateTemplate(cmd.Context(), d.Title, d.Questions)
				if err != nil {
					return fmt.Errorf("failed to create %q: %w", d.Title, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✅ %s  %s (%d questions)\n", parser.ShortID(t.ID), t.Title, len(t.Questions))
			}
			return nil
		}),
	}
}

func newTemplateExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write every template as HCL",
		Long:  `Write every template as HCL to file, or to stdout when no file is given. The output can be fed back to template import.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			ts, err := a.port.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			src := templatefile.Format(templatefile.FromTemplates(ts))
			if len(args) == 0 {
				_, err := cmd.OutOrStdout().Write(src)
				return err
			}
			if err := os.WriteFile(args[0], src, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d templates written to %s\n", len(ts), args[0])
			return nil
		}),
	}
}

// truncate shortens s to n runes with an ellipsis
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
