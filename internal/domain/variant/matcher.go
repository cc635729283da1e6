package variant

// MatchStatus is the outcome of matching a selection to a variant.
type MatchStatus uint8

const (
	// MatchIncomplete means the selection does not name every attribute.
	MatchIncomplete MatchStatus = iota
	// MatchFound means exactly one variant has the selected assignment.
	MatchFound
	// MatchNone means the selection is complete but no variant has it.
	MatchNone
	// MatchAmbiguous means more than one variant has the selected assignment.
	MatchAmbiguous
)

func (s MatchStatus) String() string {
	switch s {
	case MatchIncomplete:
		return "incomplete"
	case MatchFound:
		return "found"
	case MatchNone:
		return "none"
	case MatchAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// IntegrityViolation reports whether a complete selection failed to resolve
// to exactly one variant. This points at bad catalog data, not at the user.
func (s MatchStatus) IntegrityViolation() bool {
	return s == MatchNone || s == MatchAmbiguous
}

// MatchResult holds the resolved variant, if any. Candidates lists the IDs of
// every variant that matched when the result is ambiguous.
type MatchResult struct {
	Status     MatchStatus
	Variant    *Variant
	Candidates []string
}

func (m MatchResult) clone() MatchResult {
	out := MatchResult{Status: m.Status}
	if m.Variant != nil {
		v := m.Variant.Clone()
		out.Variant = &v
	}
	if m.Candidates != nil {
		out.Candidates = append([]string(nil), m.Candidates...)
	}
	return out
}

// Matcher resolves complete selections to variants.
type Matcher struct {
	catalog *Catalog
}

// NewMatcher returns a Matcher over catalog.
func NewMatcher(catalog *Catalog) *Matcher {
	return &Matcher{catalog: catalog}
}

// Match returns the variant whose assignment equals sel exactly. Stock is not
// considered: a depleted variant still matches.
func (m *Matcher) Match(sel Selection) MatchResult {
	groups := m.catalog.groups
	if len(groups) == 0 || len(sel) != len(groups) {
		return MatchResult{Status: MatchIncomplete}
	}
	for a := range sel {
		if !m.catalog.HasAttribute(a) {
			return MatchResult{Status: MatchIncomplete}
		}
	}

	first := groups[0].Attribute
	var found []int
	for _, pos := range m.catalog.postings[valueKey{attribute: first, value: sel[first]}] {
		if m.catalog.satisfies(pos, sel) {
			found = append(found, pos)
		}
	}

	switch len(found) {
	case 0:
		return MatchResult{Status: MatchNone}
	case 1:
		v := m.catalog.Variant(found[0])
		return MatchResult{Status: MatchFound, Variant: &v}
	default:
		ids := make([]string, len(found))
		for i, pos := range found {
			ids[i] = m.catalog.variants[pos].ID
		}
		return MatchResult{Status: MatchAmbiguous, Candidates: ids}
	}
}
