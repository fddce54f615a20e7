package domain

// BookingResult is the terminal artifact of a successful workflow. A hold may
// span several inventory lines, so confirmation can yield several booking ids.
type BookingResult struct {
	BookingIDs  []string
	TotalAmount int64
}
