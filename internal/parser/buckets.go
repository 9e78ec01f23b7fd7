package parser

import (
	"sort"
	"strings"

	"github.com/dgallion1/patchgest/internal/patchdoc"
)

// Aggregate groups blocks into the six category buckets. Every category is
// present in the result, with empty strings when it has no blocks.
func Aggregate(blocks []patchdoc.Block) patchdoc.Buckets {
	type acc struct{ all, large, small []string }
	groups := make(map[patchdoc.Category]*acc, len(patchdoc.Categories))
	for _, c := range patchdoc.Categories {
		groups[c] = &acc{}
	}

	for _, b := range sortedByOrder(blocks) {
		g, ok := groups[b.Category]
		if !ok {
			continue
		}
		text := b.Display()
		g.all = append(g.all, text)
		switch b.Size {
		case patchdoc.SizeLarge:
			g.large = append(g.large, text)
		case patchdoc.SizeSmall:
			g.small = append(g.small, text)
		}
	}

	out := make(patchdoc.Buckets, len(groups))
	for c, g := range groups {
		out[c] = patchdoc.Bucket{
			All:   strings.Join(g.all, "\n\n"),
			Large: strings.Join(g.large, "\n\n"),
			Small: strings.Join(g.small, "\n\n"),
		}
	}
	return out
}

// BucketView derives the bucket view shown for a block sequence. A lone
// overview block with no heading context (the plain-text fallback shape)
// only populates the overview bucket; anything else is Aggregated.
func BucketView(blocks []patchdoc.Block) patchdoc.Buckets {
	switch {
	case len(blocks) == 0:
		return patchdoc.Buckets{}
	case len(blocks) == 1 && isFallbackShape(blocks[0]):
		return patchdoc.Buckets{patchdoc.CategoryOverview: {All: blocks[0].Text}}
	}
	return Aggregate(blocks)
}

func isFallbackShape(b patchdoc.Block) bool {
	return b.Category == patchdoc.CategoryOverview &&
		b.Size == patchdoc.SizeAll &&
		b.H2 == "" && b.H4 == "" &&
		len(b.Lines) == 0
}

// sortedByOrder returns a copy of blocks in ascending order.
func sortedByOrder(blocks []patchdoc.Block) []patchdoc.Block {
	out := make([]patchdoc.Block, len(blocks))
	copy(out, blocks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
