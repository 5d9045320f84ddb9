package core

import "strings"

// DefaultPageSize is used when Paginate is called with a non-positive size.
const DefaultPageSize = 10

type (
	// Collection is the whole ledger, newest-inserted first. Order reflects
	// insertion, not the Date field.
	Collection []Expense

	// Page is one slice of a Collection plus the paging totals.
	Page struct {
		Items      Collection `json:"items"`
		Number     int        `json:"page"`
		Size       int        `json:"size"`
		TotalPages int        `json:"total_pages"`
		Total      int        `json:"total"`
	}
)

// Clone returns a copy that shares no backing array with c. It is never nil.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Paginate returns the 1-indexed page of c. Pages outside 1..TotalPages are empty.
func (c Collection) Paginate(page, size int) Page {
	if size <= 0 {
		size = DefaultPageSize
	}
	p := Page{
		Items:      Collection{},
		Number:     page,
		Size:       size,
		TotalPages: (len(c) + size - 1) / size,
		Total:      len(c),
	}
	if page < 1 || page > p.TotalPages {
		return p
	}
	start := (page - 1) * size
	end := min(start+size, len(c))
	p.Items = c[start:end].Clone()
	return p
}

// SearchByText keeps expenses whose date or description contains term,
// ignoring case and surrounding whitespace. An empty term keeps everything.
func (c Collection) SearchByText(term string) Collection {
	term = strings.ToLower(strings.TrimSpace(term))
	return c.filter(func(e Expense) bool {
		return strings.Contains(strings.ToLower(e.Date), term) ||
			strings.Contains(strings.ToLower(e.Description), term)
	})
}

// FilterByExactDate keeps expenses whose stored date string equals date.
func (c Collection) FilterByExactDate(date string) Collection {
	return c.filter(func(e Expense) bool { return e.Date == date })
}

// FilterByDateRange keeps expenses with from <= date <= to, compared lexically.
func (c Collection) FilterByDateRange(from, to string) Collection {
	if from > to {
		return Collection{}
	}
	return c.filter(func(e Expense) bool { return e.Date >= from && e.Date <= to })
}

// At returns the expenses at indices in c, once per distinct position.
// Out-of-range positions are skipped.
func (c Collection) At(indices []int) Collection {
	out := Collection{}
	seen := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(c) {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, c[i])
	}
	return out
}

// DeleteByIndices removes from c the expenses found at indices within view,
// the subset the user was shown. Each selected position removes exactly one
// record, even when ids collide.
func (c Collection) DeleteByIndices(view Collection, indices []int) Collection {
	kept, _ := c.Remove(view.At(indices))
	return kept
}

// Remove drops one matching record from c for every entry in records and
// returns what is left along with what was actually removed.
func (c Collection) Remove(records Collection) (kept, removed Collection) {
	pending := make(map[Expense]int, len(records))
	for _, r := range records {
		pending[r]++
	}
	kept, removed = Collection{}, Collection{}
	for _, e := range c {
		if pending[e] > 0 {
			pending[e]--
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, removed
}

// DeleteByIDs returns c without the expenses carrying any of ids.
func (c Collection) DeleteByIDs(ids ...int64) Collection {
	kept, _ := c.Without(ids...)
	return kept
}

// Without splits c into the expenses whose id is not in ids and those whose id is.
func (c Collection) Without(ids ...int64) (kept, removed Collection) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept, removed = Collection{}, Collection{}
	for _, e := range c {
		if _, ok := drop[e.ID]; ok {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}
	return kept, removed
}

// IDs returns the id of every expense in c, in order.
func (c Collection) IDs() []int64 {
	ids := make([]int64, 0, len(c))
	for _, e := range c {
		ids = append(ids, e.ID)
	}
	return ids
}

// Contains reports whether an expense with id is present.
func (c Collection) Contains(id int64) bool {
	for _, e := range c {
		if e.ID == id {
			return true
		}
	}
	return false
}

// MaxID returns the largest id in c, or 0 for an empty collection.
func (c Collection) MaxID() int64 {
	var maxID int64
	for _, e := range c {
		maxID = max(maxID, e.ID)
	}
	return maxID
}

func (c Collection) filter(keep func(Expense) bool) Collection {
	out := Collection{}
	for _, e := range c {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
