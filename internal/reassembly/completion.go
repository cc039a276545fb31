package reassembly

// Done reports whether s holds exactly expectedFiles distinct file ids and
// each group is complete.
func Done(s *Store, expectedFiles int) bool {
	if s == nil || s.Len() != expectedFiles {
		return false
	}
	for _, g := range s.groups {
		if !g.Complete() {
			return false
		}
	}
	return true
}
