package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/balkashynov/checkmaster/internal/models"
)

// Lang selects the labels used in human-readable exports
type Lang string

const (
	Korean  Lang = "ko"
	English Lang = "en"
)

// ParseLang accepts "ko", "en" or empty (Korean)
func ParseLang(s string) (Lang, error) {
	switch Lang(strings.ToLower(strings.TrimSpace(s))) {
	case "", Korean:
		return Korean, nil
	case English:
		return English, nil
	default:
		return "", fmt.Errorf("unsupported language %q (use ko or en)", s)
	}
}

type labels struct {
	report, date, note string
	yes, no            string
	header             [4]string
}

var labelSets = map[Lang]labels{
	Korean: {
		report: "점검 보고서",
		date:   "날짜",
		note:   "비고",
		yes:    "예",
		no:     "아니오",
		header: [4]string{"번호", "질문", "완료여부", "비고"},
	},
	English: {
		report: "Inspection report",
		date:   "Date",
		note:   "Note",
		yes:    "Yes",
		no:     "No",
		header: [4]string{"No", "Question", "Done", "Note"},
	},
}

func labelsFor(lang Lang) labels {
	if l, ok := labelSets[lang]; ok {
		return l
	}
	return labelSets[Korean]
}

// DateLayout is used for dates in text reports and workbooks
const DateLayout = "2006-01-02 15:04:05"

// WriteText writes the plain-text report of a session
func WriteText(w io.Writer, s models.Session, lang Lang) error {
	l := labelsFor(lang)
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%s: %s\n", l.report, s.Title)
	fmt.Fprintf(bw, "%s: %s\n\n", l.date, s.Created.Local().Format(DateLayout))
	for i, it := range s.Items {
		fmt.Fprintf(bw, "%d. %s\n", i+1, it.Q)
		if it.A != "" {
			fmt.Fprintf(bw, "   %s: %s\n", l.note, it.A)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}
