package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHelpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "help",
		Short: "Show comprehensive help for checkmaster",
		Long:  `Display detailed help for all checkmaster commands and flags.`,
		Args:  cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				if target, _, err := cmd.Root().Find(args); err == nil && target != cmd.Root() {
					target.Help()
					return
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), helpText)
		},
	}
}

const helpText = `
checkmaster - checklist templates and sessions

COMMANDS:

  (no command), ui        Open the interactive UI
    ↑/↓ j/k       Move the cursor
    enter         Open a checklist / write a note
    n             Start a new checklist from a template
    p             Manage templates
    space         Check or uncheck an item
    K/J           Move an item up or down
    t / c         Export the open checklist as text / CSV
    d             Delete (asks first)
    esc / q       Back / quit

  template add <title>    Create a template
    -q, --question        Question text (repeatable)
    -f, --file            Read questions from a file, one per line
  template ls             List templates (--json)
  template show <id>      Show a template's questions
  template edit <id>      Change title or questions (--title, -q, -f)
  template rm <id>        Delete a template (--yes to skip the prompt)
  template import <file>  Create templates from an HCL file
  template export [file]  Write every template as HCL

  session start <tmpl>    Start a checklist from a template
  session ls              List checklists (--since 7d, --json)
  session show <id>       Show items, notes and progress
  session note <id> <n> <text>   Set the note of item n
  session check <id> <n>         Check item n (--off to uncheck)
  session move <id> <from> <to>  Move an item
  session rm <id>                Delete a checklist (--yes)

  export txt <id>         Write a text report (-o file, --lang ko|en)
  export csv <id>         Write a CSV report
  export xlsx             Write every checklist to one Excel workbook

  backup                  Write a JSON backup of everything (-o file)
  restore <file>          Import a JSON backup (--yes)
  search <query>          Search titles, questions and notes
  serve                   Run a sync server (--addr, --store sqlite|memory|dynamodb)
  version                 Show version information

IDs can be shortened to any unique prefix. Item positions start at 1.

GLOBAL FLAGS:
  --config <file>         Config file (default ~/.checkmaster/config.yaml)
  --backend local|remote  Override the configured backend
  --debug                 Debug logging to stderr

`
