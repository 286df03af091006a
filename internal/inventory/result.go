package inventory

import "sort"

// Set is a set of strings with value semantics helpers.
type Set map[string]struct{}

// NewSet returns a set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Add(item string) { s[item] = struct{}{} }

func (s Set) AddAll(other Set) {
	for it := range other {
		s[it] = struct{}{}
	}
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s Set) Len() int { return len(s) }

// Clone returns a copy that never aliases s. A nil set clones to an empty one.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	c.AddAll(s)
	return c
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// WalkResult summarizes one walk over a stage list.
type WalkResult struct {
	Infra    Set
	CIStages int
	// HasTemplate is true if at least one template stage was expanded.
	HasTemplate   bool
	TemplatesUsed Set
	// TemplateRefs counts template references in the expanded tree.
	TemplateRefs int
}

func newWalkResult() WalkResult {
	return WalkResult{Infra: Set{}, TemplatesUsed: Set{}}
}

// Merge combines two results by union, sum and or. Neither input is modified.
func (r WalkResult) Merge(o WalkResult) WalkResult {
	out := WalkResult{
		Infra:         r.Infra.Clone(),
		CIStages:      r.CIStages + o.CIStages,
		HasTemplate:   r.HasTemplate || o.HasTemplate,
		TemplatesUsed: r.TemplatesUsed.Clone(),
		TemplateRefs:  r.TemplateRefs + o.TemplateRefs,
	}
	out.Infra.AddAll(o.Infra)
	out.TemplatesUsed.AddAll(o.TemplatesUsed)
	return out
}

// absorb merges o into r in place. Only used on accumulators the caller owns.
func (r *WalkResult) absorb(o WalkResult) {
	r.Infra.AddAll(o.Infra)
	r.CIStages += o.CIStages
	r.HasTemplate = r.HasTemplate || o.HasTemplate
	r.TemplatesUsed.AddAll(o.TemplatesUsed)
	r.TemplateRefs += o.TemplateRefs
}
