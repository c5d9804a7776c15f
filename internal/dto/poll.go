package dto

import (
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
)

// PollOptionDTO is an option with its vote count
type PollOptionDTO struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	Position int    `json:"position"`
	Votes    int64  `json:"votes"`
}

// PollDTO represents a poll as seen by the requesting user
type PollDTO struct {
	ID         uint64                      `json:"id"`
	EventID    uint64                      `json:"event_id"`
	Question   string                      `json:"question"`
	Type       models.PollType             `json:"type"`
	Category   models.ContributionCategory `json:"category"`
	IsClosed   bool                        `json:"is_closed"`
	ClosedAt   *time.Time                  `json:"closed_at"`
	Creator    *PublicUserDTO              `json:"creator,omitempty"`
	Options    []PollOptionDTO             `json:"options"`
	TotalVotes int64                       `json:"total_votes"`
	MyVotes    []uint64                    `json:"my_votes"`
	CreatedAt  time.Time                   `json:"created_at"`
}

// ToPollDTO converts a PollView to PollDTO
func ToPollDTO(view services.PollView) PollDTO {
	p := view.Poll
	options := make([]PollOptionDTO, len(view.Options))
	for i, o := range view.Options {
		options[i] = PollOptionDTO{ID: o.ID, Label: o.Label, Position: o.Position, Votes: o.Votes}
	}
	myVotes := view.MyVotes
	if myVotes == nil {
		myVotes = []uint64{}
	}

	return PollDTO{
		ID:         p.ID,
		EventID:    p.EventID,
		Question:   p.Question,
		Type:       p.Type,
		Category:   p.Category,
		IsClosed:   p.IsClosed,
		ClosedAt:   p.ClosedAt,
		Creator:    ToPublicUserDTO(&p.Creator),
		Options:    options,
		TotalVotes: view.TotalVotes,
		MyVotes:    myVotes,
		CreatedAt:  p.CreatedAt,
	}
}

// ToPollDTOs converts a slice of PollView to PollDTOs
func ToPollDTOs(views []services.PollView) []PollDTO {
	result := make([]PollDTO, len(views))
	for i, v := range views {
		result[i] = ToPollDTO(v)
	}
	return result
}
