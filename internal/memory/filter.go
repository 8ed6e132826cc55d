package memory

import (
	"strings"
	"time"
)

// SearchFilters narrows search results after the nearest-neighbor
// lookup. All populated filters must match (AND). Zero values mean
// "not filtered".
type SearchFilters struct {
	// Tags passes memories sharing at least one tag with the filter.
	// Memories without tags never match a tag filter.
	Tags []string

	// ImportanceMin and ImportanceMax bound importance inclusively.
	// Memories without an importance rank count as 0.
	ImportanceMin int
	ImportanceMax int

	// Client passes memories whose client contains this substring.
	Client string

	// DateFrom and DateTo bound the event time inclusively. Memories
	// without a parseable timestamp pass date filters.
	DateFrom time.Time
	DateTo   time.Time
}

// empty reports whether no filter is populated.
func (f *SearchFilters) empty() bool {
	return f == nil ||
		(len(f.Tags) == 0 && f.ImportanceMin == 0 && f.ImportanceMax == 0 &&
			f.Client == "" && f.DateFrom.IsZero() && f.DateTo.IsZero())
}

// matches reports whether the metadata passes every populated filter.
func (f *SearchFilters) matches(m *Metadata) bool {
	if len(f.Tags) > 0 && !intersects(m.Tags, f.Tags) {
		return false
	}

	if f.ImportanceMin > 0 && m.Importance < f.ImportanceMin {
		return false
	}
	if f.ImportanceMax > 0 && m.Importance > f.ImportanceMax {
		return false
	}

	if f.Client != "" && !strings.Contains(m.Client, f.Client) {
		return false
	}

	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		// A memory without a timestamp passes; the store predates
		// mandatory timestamps and excluding those records would hide
		// them from every dated query.
		if ts, ok := m.eventTime(); ok {
			if !f.DateFrom.IsZero() && ts.Before(f.DateFrom) {
				return false
			}
			if !f.DateTo.IsZero() && ts.After(f.DateTo) {
				return false
			}
		}
	}

	return true
}

func intersects(have, want []string) bool {
	if len(have) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
