package parser

import "github.com/dgallion1/patchgest/internal/patchdoc"

// fragment is a classified piece of content waiting for an order slot.
type fragment struct {
	category patchdoc.Category
	size     patchdoc.Size
	h2       string
	h4       string
	text     string
	lines    []string
	tier     *int
}

// blockBuilder hands out order values for one parse call.
type blockBuilder struct {
	next   int
	blocks []patchdoc.Block
}

// add normalizes the fragment and appends it as the next block. Empty
// fragments are dropped without consuming an order value.
func (b *blockBuilder) add(f fragment) bool {
	text := CleanText(f.text)
	if text == "" {
		return false
	}

	var lines []string
	if len(f.lines) > 0 {
		lines = make([]string, len(f.lines))
		copy(lines, f.lines)
	} else {
		lines = []string{}
	}

	var tier *int
	if f.category == patchdoc.CategoryChampions && f.tier != nil {
		t := *f.tier
		tier = &t
	}

	b.blocks = append(b.blocks, patchdoc.Block{
		Category: f.category,
		Size:     f.size,
		H2:       f.h2,
		H4:       f.h4,
		Order:    b.next,
		Text:     text,
		Lines:    lines,
		UnitTier: tier,
	})
	b.next++
	return true
}
