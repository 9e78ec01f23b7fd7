// Package parser turns the content region of a patch announcement into an
// ordered sequence of classified blocks.
package parser

import (
	"strings"

	"github.com/dgallion1/patchgest/internal/patchdoc"
)

// Parse prefers the markup and falls back to the legacy plain text when the
// markup yields nothing. With neither it returns an empty Result.
func Parse(rawHTML, fallbackText string) patchdoc.Result {
	if blocks := ParseHTML(rawHTML); len(blocks) > 0 {
		return patchdoc.Result{
			Blocks:  blocks,
			Buckets: BucketView(blocks),
		}
	}

	if strings.TrimSpace(fallbackText) != "" {
		return Fallback(fallbackText)
	}

	return patchdoc.Result{}
}

// Fallback wraps plain text in a single overview block. The text is kept
// verbatim and only the overview bucket is populated.
func Fallback(text string) patchdoc.Result {
	block := patchdoc.Block{
		Category: patchdoc.CategoryOverview,
		Size:     patchdoc.SizeAll,
		Order:    0,
		Text:     text,
		Lines:    []string{},
	}
	blocks := []patchdoc.Block{block}
	return patchdoc.Result{Blocks: blocks, Buckets: BucketView(blocks)}
}
