package parser

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// CleanText right-trims every line, drops blank lines at either end and
// trims the result.
func CleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRightFunc(ln, unicode.IsSpace)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// nodeText collects the text nodes under n, trims each one, drops the empty
// ones and joins the rest with sep.
func nodeText(n *html.Node, sep string) string {
	var parts []string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(parts, sep)
}

// renderBlock renders a content subtree with one text run per line.
func renderBlock(n *html.Node) string {
	return CleanText(nodeText(n, "\n"))
}

// renderInline renders a heading or list item as a single line, collapsing
// any whitespace run (including hard newlines in the source) to one space.
func renderInline(n *html.Node) string {
	return strings.Join(strings.Fields(nodeText(n, " ")), " ")
}
