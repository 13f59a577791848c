package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/balkashynov/checkmaster/internal/models"
)

const utf8BOM = "\ufeff"

// WriteCSV writes a session as CSV with a UTF-8 BOM so spreadsheet apps
// detect the encoding. Every field is quoted.
func WriteCSV(w io.Writer, s models.Session, lang Lang) error {
	l := labelsFor(lang)
	bw := bufio.NewWriter(w)

	bw.WriteString(utf8BOM)
	writeQuotedRow(bw, l.header[:]...)
	for i, it := range s.Items {
		done := l.no
		if it.Checked {
			done = l.yes
		}
		writeQuotedRow(bw, strconv.Itoa(i+1), it.Q, done, it.A)
	}
	return bw.Flush()
}

func writeQuotedRow(w *bufio.Writer, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
