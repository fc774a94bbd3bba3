package poll

import "time"

// OwnerView is what the organizer sees in lists and after writes: the vote
// count but not the votes themselves.
type OwnerView struct {
	ID          int64      `json:"id"`
	Token       string     `json:"token"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Dates       []string   `json:"dates"`
	VoteCount   int        `json:"voteCount"`
	IsClosed    bool       `json:"isClosed"`
	ClosedAt    *time.Time `json:"closedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// PublicView is the full tally shown to voters and to the owner's detail
// page.
type PublicView struct {
	ID          int64      `json:"id"`
	Token       string     `json:"token"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Dates       []string   `json:"dates"`
	Votes       []VoteView `json:"votes"`
	IsClosed    bool       `json:"isClosed"`
	ClosedAt    *time.Time `json:"closedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type VoteView struct {
	Name       string          `json:"name"`
	Selections []SelectionView `json:"selections"`
}

type SelectionView struct {
	Date  string `json:"date"`
	Value Value  `json:"value"`
}

func NewOwnerView(p Poll, voteCount int) OwnerView {
	return OwnerView{
		ID:          p.ID,
		Token:       p.Token,
		Title:       p.Title,
		Description: p.Description,
		Dates:       nonNil(p.Dates),
		VoteCount:   voteCount,
		IsClosed:    p.IsClosed,
		ClosedAt:    p.ClosedAt,
		CreatedAt:   p.CreatedAt,
	}
}

func NewPublicView(p Poll, votes []Vote) PublicView {
	views := make([]VoteView, 0, len(votes))
	for _, v := range votes {
		sel := make([]SelectionView, 0, len(v.Selections))
		for _, s := range v.Selections {
			sel = append(sel, SelectionView{Date: s.Date, Value: s.Value})
		}
		views = append(views, VoteView{Name: v.VoterName, Selections: sel})
	}
	return PublicView{
		ID:          p.ID,
		Token:       p.Token,
		Title:       p.Title,
		Description: p.Description,
		Dates:       nonNil(p.Dates),
		Votes:       views,
		IsClosed:    p.IsClosed,
		ClosedAt:    p.ClosedAt,
		CreatedAt:   p.CreatedAt,
	}
}

func nonNil(dates []string) []string {
	if dates == nil {
		return []string{}
	}
	return dates
}
