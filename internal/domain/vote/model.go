package vote

// SelectionInput is one raw (date, value) pair as submitted by a voter,
// before trimming and case normalization.
type SelectionInput struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}
