package fetch

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// containerSelectors locate the patch content on a full page, most specific first.
var containerSelectors = []string{
	"#patch-notes-container",
	`[data-testid="rich-text-html"]`,
	"article",
	"main",
}

// Content is the isolated content region of a patch page.
type Content struct {
	RawHTML string
	RawText string
}

// Isolate picks the patch-notes container out of a full page. A page with
// none of the known containers yields empty Content.
func Isolate(page []byte) (Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return Content{}, fmt.Errorf("parse html: %w", err)
	}

	for _, sel := range containerSelectors {
		c := doc.Find(sel).First()
		if c.Length() == 0 {
			continue
		}
		raw, err := goquery.OuterHtml(c)
		if err != nil {
			return Content{}, fmt.Errorf("render container: %w", err)
		}
		return Content{RawHTML: raw, RawText: selectionText(c)}, nil
	}
	return Content{}, nil
}

// selectionText joins the trimmed, non-empty text nodes of s with newlines.
func selectionText(s *goquery.Selection) string {
	var parts []string
	s.Find("script, style").Remove()
	for _, n := range s.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, "\n")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// ContentHash fingerprints a page so unchanged patches can be skipped.
func ContentHash(rawText, rawHTML string) string {
	h := sha256.Sum256([]byte(rawText + "\n\n" + rawHTML))
	return hex.EncodeToString(h[:])
}
