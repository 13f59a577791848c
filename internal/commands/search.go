package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/parser"
)

// match ranks, best first
const (
	matchExact = iota
	matchPrefix
	matchSuffix
	matchContains
	noMatch
)

// searchHit is one template or session that matched the query
type searchHit struct {
	Kind  string `json:"kind"`
	ID    string `json:"id"`
	Title string `json:"title"`
	Field string `json:"field"`
	Text  string `json:"text"`
	Item  int    `json:"item,omitempty"`

	rank int
}

type searchResult struct {
	Query string      `json:"query"`
	Count int         `json:"count"`
	Hits  []searchHit `json:"hits"`
}

func rankMatch(text, query string) int {
	t := strings.ToLower(strings.TrimSpace(text))
	switch {
	case t == "":
		return noMatch
	case t == query:
		return matchExact
	case strings.HasPrefix(t, query):
		return matchPrefix
	case strings.HasSuffix(t, query):
		return matchSuffix
	case strings.Contains(t, query):
		return matchContains
	}
	return noMatch
}

// best keeps the better of the current hit and a candidate field
func best(h *searchHit, field, text string, item int, query string) {
	if r := rankMatch(text, query); r < h.rank {
		h.rank, h.Field, h.Text, h.Item = r, field, text, item
	}
}

func searchTemplates(ts []models.Template, query string) []searchHit {
	var hits []searchHit
	for _, t := range ts {
		h := searchHit{Kind: "template", ID: t.ID, Title: t.Title, rank: noMatch}
		best(&h, "title", t.Title, 0, query)
		for i, q := range t.Questions {
			best(&h, "question", q, i+1, query)
		}
		if h.rank != noMatch {
			hits = append(hits, h)
		}
	}
	return hits
}

func searchSessions(ss []models.Session, query string) []searchHit {
	var hits []searchHit
	for _, s := range ss {
		h := searchHit{Kind: "session", ID: s.ID, Title: s.Title, rank: noMatch}
		best(&h, "title", s.Title, 0, query)
		for i, it := range s.Items {
			best(&h, "question", it.Q, i+1, query)
			best(&h, "note", it.A, i+1, query)
		}
		if h.rank != noMatch {
			hits = append(hits, h)
		}
	}
	return hits
}

// search matches query against templates and sessions. Hits are ordered by
// match rank; ties keep the store order (newest first).
func search(ts []models.Template, ss []models.Session, query string) []searchHit {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	hits := append(searchTemplates(ts, query), searchSessions(ss, query)...)
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].rank < hits[j].rank })
	return hits
}

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
		only       string
	)
	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search templates and checklists",
		Long: `Search template titles and questions, and checklist titles, questions and notes.
Exact matches are listed first, then prefix, suffix and substring matches.`,
		Args: cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, args []string, a *app) error {
			query := strings.Join(args, " ")

			var (
				ts  []models.Template
				ss  []models.Session
				err error
			)
			switch only {
			case "", "templates", "sessions":
			default:
				return fmt.Errorf("invalid --only %q: expected templates or sessions", only)
			}
			if only != "sessions" {
				if ts, err = a.port.ListTemplates(cmd.Context()); err != nil {
					return err
				}
			}
			if only != "templates" {
				if ss, err = a.port.ListSessions(cmd.Context()); err != nil {
					return err
				}
			}

			hits := search(ts, ss, query)
			if limit > 0 && len(hits) > limit {
				hits = hits[:limit]
			}
			if hits == nil {
				hits = []searchHit{}
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), searchResult{Query: query, Count: len(hits), Hits: hits})
			}
			renderSearch(cmd.OutOrStdout(), query, hits)
			return nil
		}),
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "limit number of results")
	cmd.Flags().StringVar(&only, "only", "", "restrict to templates or sessions")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	return cmd
}

func renderSearch(w io.Writer, query string, hits []searchHit) {
	fmt.Fprintf(w, "Search results for '%s' (%d found):\n", query, len(hits))
	if len(hits) == 0 {
		fmt.Fprintln(w, "Nothing matches your search.")
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-8s  %-8s  %-30s  %s\n", "KIND", "ID", "TITLE", "MATCH")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, h := range hits {
		where := h.Field
		if h.Item > 0 {
			where = fmt.Sprintf("%s #%d", h.Field, h.Item)
		}
		match := where
		if h.Field != "title" {
			match = fmt.Sprintf("%s: %s", where, truncate(firstLine(h.Text), 30))
		}
		fmt.Fprintf(w, "%-8s  %-8s  %-30s  %s\n", h.Kind, parser.ShortID(h.ID), truncate(h.Title, 30), match)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
