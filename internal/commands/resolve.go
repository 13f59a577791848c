package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/parser"
	"github.com/balkashynov/checkmaster/internal/store"
)

// resolveTemplate finds a template by id or unique id prefix
func resolveTemplate(ctx context.Context, port store.Port, prefix string) (*models.Template, error) {
	ts, err := port.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(ts))
	for i, t := range ts {
		ids[i] = t.ID
	}
	id, err := parser.ResolveID(prefix, ids)
	if err != nil {
		return nil, fmt.Errorf("template: %w", err)
	}
	t, _ := store.FindTemplate(ts, id)
	return &t, nil
}

// resolveSession finds a session by id or unique id prefix
func resolveSession(ctx context.Context, port store.Port, prefix string) (*models.Session, error) {
	ss, err := port.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(ss))
	for i, s := range ss {
		ids[i] = s.ID
	}
	id, err := parser.ResolveID(prefix, ids)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	s, _ := store.FindSession(ss, id)
	return &s, nil
}

// confirm asks a y/N question on the command's streams. yes skips the prompt.
func confirm(cmd *cobra.Command, prompt string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
