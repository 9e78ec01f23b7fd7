package patchdoc

// Category is the topical bucket a block belongs to.
type Category string

const (
	CategoryOverview  Category = "overview"
	CategoryChampions Category = "champions"
	CategoryItems     Category = "items"
	CategoryTraits    Category = "traits"
	CategoryAugments  Category = "augments"
	CategoryOther     Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryOverview,
	CategoryChampions,
	CategoryItems,
	CategoryTraits,
	CategoryAugments,
	CategoryOther,
}

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Size is the change-size group taken from the enclosing major heading.
type Size string

const (
	SizeAll   Size = "all"
	SizeLarge Size = "large"
	SizeSmall Size = "small"
)

// Valid reports whether s is one of the fixed sizes.
func (s Size) Valid() bool {
	return s == SizeAll || s == SizeLarge || s == SizeSmall
}

// Block is one normalized, classified, ordered unit of patch content.
type Block struct {
	Category Category `json:"category" yaml:"category"`
	Size     Size     `json:"size" yaml:"size"`
	H2       string   `json:"h2" yaml:"h2"`               // Major heading, e.g. "LARGE CHANGES"
	H4       string   `json:"h4" yaml:"h4"`               // Sub heading, e.g. "UNITS: Tier 1"
	Order    int      `json:"order" yaml:"order"`         // Position within one parse, contiguous from 0
	Text     string   `json:"text" yaml:"text"`           // Normalized body
	Lines    []string `json:"lines" yaml:"lines"`         // One entry per list item; empty for quote blocks
	UnitTier *int     `json:"unit_tier" yaml:"unit_tier"` // Only set for champions
}

// Heading returns the heading shown above the block body.
func (b Block) Heading() string {
	if b.H4 != "" {
		return b.H4
	}
	return b.H2
}

// Display returns the heading and body joined the way buckets render them.
func (b Block) Display() string {
	if h := b.Heading(); h != "" {
		return h + "\n" + b.Text
	}
	return b.Text
}

// Bucket is the per-category concatenation of block text, split by size.
type Bucket struct {
	All   string `json:"all" yaml:"all"`
	Large string `json:"large" yaml:"large"`
	Small string `json:"small" yaml:"small"`
}

// Buckets maps categories to their derived bucket view.
type Buckets map[Category]Bucket

// Result is the outcome of parsing one patch document.
type Result struct {
	Blocks  []Block `json:"blocks" yaml:"blocks"`
	Buckets Buckets `json:"buckets" yaml:"buckets"`
}

// Empty reports whether nothing could be extracted.
func (r Result) Empty() bool {
	return len(r.Blocks) == 0 && len(r.Buckets) == 0
}
