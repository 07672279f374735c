package market

// ListingSet accumulates listings keyed by ID. The first listing seen for an
// ID wins and insertion order is kept.
type ListingSet struct {
	index map[string]int
	items []Listing
}

// NewListingSet creates an empty set
func NewListingSet() *ListingSet {
	return &ListingSet{index: make(map[string]int)}
}

// Add inserts l unless its ID is empty or already present. It reports whether
// the listing was added.
func (s *ListingSet) Add(l Listing) bool {
	if l.ID == "" {
		return false
	}
	if _, ok := s.index[l.ID]; ok {
		return false
	}
	s.index[l.ID] = len(s.items)
	s.items = append(s.items, l)
	return true
}

// Merge adds every listing of ls in order and returns how many were new
func (s *ListingSet) Merge(ls []Listing) int {
	added := 0
	for _, l := range ls {
		if s.Add(l) {
			added++
		}
	}
	return added
}

// Contains reports whether a listing with id is present
func (s *ListingSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of distinct listings
func (s *ListingSet) Len() int {
	return len(s.items)
}

// Listings returns a copy of the listings in first-seen order
func (s *ListingSet) Listings() []Listing {
	out := make([]Listing, len(s.items))
	copy(out, s.items)
	return out
}
