package types

// Snippet splits an overflowing line at the limit.
type Snippet struct {
	Within   string `json:"within"`   // text up to the column limit
	Overflow string `json:"overflow"` // text beyond the column limit
}
