package render

import (
	"cmp"
	"fmt"
	"slices"
)

// Tier maps every output size up to and including MaxSize to an
// oversampling factor.
type Tier struct {
	MaxSize int
	Factor  int
}

// Policy chooses the oversampling factor for an output size. Small icons get
// more supersamples so thin diagonal strokes survive the downsample.
type Policy struct {
	Tiers   []Tier
	Default int
}

// DefaultPolicy oversamples 10× up to 16 px, 4× up to 48 px and 2× beyond.
func DefaultPolicy() Policy {
	return Policy{
		Tiers: []Tier{
			{MaxSize: 16, Factor: 10},
			{MaxSize: 48, Factor: 4},
		},
		Default: 2,
	}
}

// Factor returns the oversampling factor for an output of size×size
// pixels: the factor of the smallest tier that still covers size, else
// Default. The result is at least 1.
func (p Policy) Factor(size int) int {
	f := p.Default
	best := -1
	for i, t := range p.Tiers {
		if size <= t.MaxSize && (best < 0 || t.MaxSize < p.Tiers[best].MaxSize) {
			best = i
		}
	}
	if best >= 0 {
		f = p.Tiers[best].Factor
	}
	return max(1, f)
}

// Validate reports malformed tiers.
func (p Policy) Validate() error {
	if p.Default < 1 {
		return fmt.Errorf("default factor must be at least 1, got %d", p.Default)
	}
	tiers := slices.SortedFunc(slices.Values(p.Tiers), func(a, b Tier) int {
		return cmp.Compare(a.MaxSize, b.MaxSize)
	})
	for i, t := range tiers {
		if t.MaxSize < 1 {
			return fmt.Errorf("tier max_size must be at least 1, got %d", t.MaxSize)
		}
		if t.Factor < 1 {
			return fmt.Errorf("tier %d factor must be at least 1, got %d", t.MaxSize, t.Factor)
		}
		if i > 0 && tiers[i-1].MaxSize == t.MaxSize {
			return fmt.Errorf("duplicate tier max_size %d", t.MaxSize)
		}
	}
	return nil
}

// Render rasterizes cmds at size using the factor p picks for it.
func (p Policy) Render(size int, cmds []Command) []byte {
	return RenderFactor(size, p.Factor(size), cmds)
}
