package display

// Snapshot is the list on screen. While searching, Domain holds the unfiltered
// list captured when the search started and Items is the filtered view of it.
type Snapshot struct {
	Items  []string
	Domain []string

	searching bool
}

// Replace sets the displayed list from a fresh store read.
// While searching the domain stays frozen and only a release brings new data in.
func (s *Snapshot) Replace(items []string) {
	if s.searching {
		return
	}
	s.Items = items
}

// Capture freezes the current items as the filter domain
func (s *Snapshot) Capture() {
	s.Domain = append([]string(nil), s.Items...)
	s.searching = true
}

// Apply filters the domain with query
func (s *Snapshot) Apply(query string) {
	if !s.searching {
		return
	}
	s.Items = Filter(s.Domain, query)
}

// Release ends the search and restores the unfiltered domain
func (s *Snapshot) Release() {
	if !s.searching {
		return
	}
	s.Items = s.Domain
	s.Domain = nil
	s.searching = false
}

// Searching reports whether a domain is captured
func (s *Snapshot) Searching() bool {
	return s.searching
}

// Selected returns the item at cursor
func (s *Snapshot) Selected(cursor int) (string, bool) {
	if cursor < 0 || cursor >= len(s.Items) {
		return "", false
	}
	return s.Items[cursor], true
}
