package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/dgallion1/patchgest/internal/patchdoc"
	"golang.org/x/net/html"
)

// containerSelectors locate the patch-notes content region, most specific first.
var containerSelectors = []string{
	"#patch-notes-container",
	`[data-testid="rich-text-html"]`,
}

var (
	introSelector       = cascadia.MustCompile("blockquote.blockquote.context")
	authorNotesSelector = cascadia.MustCompile(".context-designers")
)

// walkState is the heading context and order counter for one parse call.
type walkState struct {
	major    string
	size     patchdoc.Size
	sub      string
	introIdx int // pre-order index of the intro quote, -1 if none
	builder  blockBuilder
}

func newWalkState() *walkState {
	return &walkState{size: patchdoc.SizeAll, introIdx: -1}
}

// ParseHTML runs the overview pre-pass and the main walk over one document
// and returns its blocks in order. It never fails: markup it cannot make
// sense of yields no blocks.
func ParseHTML(raw string) []patchdoc.Block {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil || len(doc.Nodes) == 0 {
		return nil
	}
	root := findContainer(doc)

	st := newWalkState()
	st.extractOverview(root)
	walkElements(root, st.visit)
	return st.builder.blocks
}

// findContainer returns the patch-notes container, or the whole document
// when none of the known containers is present.
func findContainer(doc *goquery.Document) *html.Node {
	for _, sel := range containerSelectors {
		if c := doc.Find(sel).First(); c.Length() > 0 {
			return c.Nodes[0]
		}
	}
	return doc.Nodes[0]
}

// walkElements visits the element descendants of root in document order,
// passing each one's pre-order index. When visit returns false the
// element's subtree is skipped but still counted, so indexes are the same
// for every walk over the same tree.
func walkElements(root *html.Node, visit func(idx int, n *html.Node) bool) {
	idx := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			i := idx
			idx++
			if visit(i, c) {
				walk(c)
			} else {
				idx += countElements(c)
			}
		}
	}
	walk(root)
}

func countElements(n *html.Node) int {
	total := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			total += 1 + countElements(c)
		}
	}
	return total
}

// extractOverview emits the intro quote and author notes as the overview
// block and remembers where the intro sits so the main walk skips it.
func (st *walkState) extractOverview(root *html.Node) {
	var intro, notes *html.Node
	walkElements(root, func(idx int, n *html.Node) bool {
		if intro == nil && introSelector.Match(n) {
			intro = n
			st.introIdx = idx
		}
		if notes == nil && authorNotesSelector.Match(n) {
			notes = n
		}
		return intro == nil || notes == nil
	})

	var parts []string
	for _, n := range []*html.Node{intro, notes} {
		if n == nil {
			continue
		}
		if t := renderBlock(n); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return
	}
	st.builder.add(fragment{
		category: patchdoc.CategoryOverview,
		size:     patchdoc.SizeAll,
		text:     strings.Join(parts, "\n\n"),
	})
}

// visit reacts to headings, quote blocks and lists. It returns false for
// elements whose content has been consumed.
func (st *walkState) visit(idx int, n *html.Node) bool {
	switch n.Data {
	case "h2":
		st.major = renderInline(n)
		st.size = SizeFromMajorHeading(st.major)
		return false
	case "h4":
		st.sub = renderInline(n)
		return false
	case "blockquote":
		if idx == st.introIdx {
			return false
		}
		st.emit(renderBlock(n), nil)
		return false
	case "ul", "ol":
		lines := listLines(n)
		if len(lines) == 0 {
			// No <li> children; keep whatever text the list holds.
			st.emit(renderBlock(n), nil)
			return false
		}
		st.emit(strings.Join(lines, "\n"), lines)
		return false
	}
	return true
}

// emit classifies a fragment against the current heading context.
func (st *walkState) emit(text string, lines []string) {
	cat := CategoryFromSubHeading(st.sub)
	f := fragment{
		category: cat,
		size:     st.size,
		h2:       st.major,
		h4:       st.sub,
		text:     text,
		lines:    lines,
	}
	if cat == patchdoc.CategoryChampions {
		if tier, ok := TierFromSubHeading(st.sub); ok {
			f.tier = &tier
		}
	}
	st.builder.add(f)
}

// listLines returns the text of each direct list item, skipping empty ones.
func listLines(list *html.Node) []string {
	var lines []string
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		if t := renderInline(c); t != "" {
			lines = append(lines, t)
		}
	}
	return lines
}
