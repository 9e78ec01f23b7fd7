// Package render turns parsed patch blocks into Markdown and HTML digests.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/dgallion1/patchgest/internal/patchdoc"
)

var (
	md      = goldmark.New(goldmark.WithExtensions(extension.Linkify))
	titler  = cases.Title(language.English)
	escaper = strings.NewReplacer(
		`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`,
		"[", `\[`, "]", `\]`, "<", `\<`, ">", `\>`, "#", `\#`,
	)
)

// Markdown groups blocks by category in display order. Within a category a
// heading line is written whenever the block heading changes. Consecutive
// list blocks under one heading form a single bullet list; quote blocks
// become paragraphs.
func Markdown(title string, blocks []patchdoc.Block) string {
	byCat := make(map[patchdoc.Category][]patchdoc.Block)
	for _, b := range blocks {
		byCat[b.Category] = append(byCat[b.Category], b)
	}

	w := &mdWriter{}
	if title != "" {
		w.heading(1, title)
	}
	for _, cat := range patchdoc.Categories {
		bs := byCat[cat]
		if len(bs) == 0 {
			continue
		}
		w.heading(2, titler.String(string(cat)))

		last := ""
		for _, b := range bs {
			if h := b.Heading(); h != "" && h != last {
				w.heading(3, h)
				last = h
			}
			if len(b.Lines) > 0 {
				w.list(b.Lines)
			} else {
				w.paragraph(b.Text)
			}
		}
	}
	w.endList()
	return w.sb.String()
}

type mdWriter struct {
	sb     strings.Builder
	inList bool
}

func (w *mdWriter) endList() {
	if w.inList {
		w.sb.WriteString("\n")
		w.inList = false
	}
}

func (w *mdWriter) heading(level int, text string) {
	w.endList()
	fmt.Fprintf(&w.sb, "%s %s\n\n", strings.Repeat("#", level), escaper.Replace(text))
}

func (w *mdWriter) list(lines []string) {
	for _, ln := range lines {
		fmt.Fprintf(&w.sb, "- %s\n", escaper.Replace(ln))
	}
	w.inList = true
}

func (w *mdWriter) paragraph(text string) {
	w.endList()
	for i, ln := range strings.Split(text, "\n") {
		if i > 0 {
			w.sb.WriteString("  \n")
		}
		w.sb.WriteString(escaper.Replace(ln))
	}
	w.sb.WriteString("\n\n")
}

// HTML renders the Markdown digest of blocks to an HTML fragment. Markup in
// block text is escaped, never passed through.
func HTML(title string, blocks []patchdoc.Block) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(title, blocks)), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}
