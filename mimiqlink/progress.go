package mimiqlink

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
)

// progressWriter prints a single updating line with the bytes written so far.
type progressWriter struct {
	out   io.Writer
	total uint64
}

func (w *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.total += uint64(n)
	w.print()
	return n, nil
}

func (w *progressWriter) print() {
	fmt.Fprintf(w.out, "\r%s", strings.Repeat(" ", 50))
	fmt.Fprintf(w.out, "\rDownloading... %s complete", humanize.Bytes(w.total))
}

func (w *progressWriter) Finish() {
	fmt.Fprintln(w.out)
}
