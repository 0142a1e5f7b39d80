package booking

// DedupResult is the outcome of a deduplication pass.
type DedupResult struct {
	Bookings   []Booking
	Duplicates int
	MissingID  int
}

// Deduplicate keeps the first booking seen for each id, in input order.
// Bookings without an id cannot be matched and are all kept.
func Deduplicate(in []Booking) DedupResult {
	res := DedupResult{Bookings: make([]Booking, 0, len(in))}
	seen := make(map[string]struct{}, len(in))
	for _, b := range in {
		if b.ID == "" {
			res.MissingID++
			res.Bookings = append(res.Bookings, b)
			continue
		}
		if _, dup := seen[b.ID]; dup {
			res.Duplicates++
			continue
		}
		seen[b.ID] = struct{}{}
		res.Bookings = append(res.Bookings, b)
	}
	return res
}
