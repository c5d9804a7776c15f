package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrPollNotFound      = errors.New("poll not found")
	ErrPollClosed        = errors.New("poll is closed")
	ErrPollQuestion      = errors.New("poll question is required")
	ErrPollOptions       = errors.New("a poll needs between 2 and 20 distinct options")
	ErrInvalidPollType   = errors.New("poll type must be single or multiple")
	ErrInvalidPollOption = errors.New("option does not belong to this poll")
	ErrSingleChoiceOnly  = errors.New("this poll accepts a single option")
	ErrNotPollCloser     = errors.New("only the poll creator or an admin can close this poll")
)

// PollService handles polls, votes and closing.
type PollService struct {
	pollRepo repository.PollRepository
	notifier Notifier
	clock    clockwork.Clock
}

// NewPollService creates a new PollService.
func NewPollService(pollRepo repository.PollRepository, notifier Notifier, clock clockwork.Clock) *PollService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PollService{
		pollRepo: pollRepo,
		notifier: notifierOrNoop(notifier),
		clock:    clock,
	}
}

// OptionResult is an option with its vote count.
type OptionResult struct {
	models.PollOption
	Votes int64 `json:"votes"`
}

// PollView is a poll as seen by one user.
type PollView struct {
	Poll       models.Poll    `json:"poll"`
	Options    []OptionResult `json:"options"`
	TotalVotes int64          `json:"total_votes"`
	MyVotes    []uint64       `json:"my_votes"`
}

// CreatePollInput holds a new poll definition.
type CreatePollInput struct {
	Question string
	Type     models.PollType
	Category models.ContributionCategory
	Options  []string
}

// List returns the polls of an event with tallies and the viewer's votes.
func (s *PollService) List(eventID, viewerID uint64) ([]PollView, error) {
	polls, err := s.pollRepo.ListByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list polls: %w", err)
	}
	return s.views(polls, viewerID)
}

// Get returns one poll view.
func (s *PollService) Get(eventID, pollID, viewerID uint64) (*PollView, error) {
	poll, err := s.find(eventID, pollID)
	if err != nil {
		return nil, err
	}
	views, err := s.views([]models.Poll{*poll}, viewerID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create creates a poll with its options.
func (s *PollService) Create(eventID uint64, actor Actor, input CreatePollInput) (*models.Poll, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, ErrPollQuestion
	}

	if input.Type == "" {
		input.Type = models.PollTypeSingle
	}
	if input.Type != models.PollTypeSingle && input.Type != models.PollTypeMultiple {
		return nil, ErrInvalidPollType
	}
	if input.Category == "" {
		input.Category = models.CategoryFood
	}
	if !input.Category.Valid() {
		return nil, ErrInvalidCategory
	}

	options := make([]models.PollOption, 0, len(input.Options))
	seen := make(map[string]struct{}, len(input.Options))
	for _, label := range input.Options {
		label = strings.TrimSpace(label)
		key := strings.ToLower(label)
		if label == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		options = append(options, models.PollOption{Label: label, Position: len(options)})
	}
	if len(options) < constants.MinPollOptions || len(options) > constants.MaxPollOptions {
		return nil, ErrPollOptions
	}

	poll := &models.Poll{
		EventID:   eventID,
		CreatorID: actor.ID,
		Question:  question,
		Type:      input.Type,
		Category:  input.Category,
		Options:   options,
	}
	if err := s.pollRepo.Create(poll); err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimePollUpdate, change{Action: "created", ID: poll.ID})
	return poll, nil
}

// Vote sets the actor's choice. Single polls accept at most one option and
// replace the previous vote; multiple polls take the full set of selected
// options. An empty selection withdraws the vote.
func (s *PollService) Vote(eventID, pollID uint64, actor Actor, optionIDs []uint64) (*PollView, error) {
	poll, err := s.find(eventID, pollID)
	if err != nil {
		return nil, err
	}
	if poll.IsClosed {
		return nil, ErrPollClosed
	}

	optionIDs = uniqueUint64(optionIDs)
	if poll.Type == models.PollTypeSingle && len(optionIDs) > 1 {
		return nil, ErrSingleChoiceOnly
	}

	valid := make(map[uint64]struct{}, len(poll.Options))
	for _, o := range poll.Options {
		valid[o.ID] = struct{}{}
	}
	for _, id := range optionIDs {
		if _, ok := valid[id]; !ok {
			return nil, ErrInvalidPollOption
		}
	}

	if err := s.pollRepo.ReplaceVotes(poll.ID, actor.ID, optionIDs); err != nil {
		return nil, fmt.Errorf("failed to record vote: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimePollUpdate, change{Action: "voted", ID: poll.ID})

	views, err := s.views([]models.Poll{*poll}, actor.ID)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Delete removes a poll; only its creator or an admin may do so.
func (s *PollService) Delete(eventID, pollID uint64, actor Actor) error {
	poll, err := s.find(eventID, pollID)
	if err != nil {
		return err
	}
	if !actor.CanModify(poll.CreatorID) {
		return ErrForbidden
	}

	if err := s.pollRepo.Delete(poll.ID); err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimePollUpdate, change{Action: "deleted", ID: poll.ID})
	return nil
}

// ClosePollResult reports what closing produced.
type ClosePollResult struct {
	Poll          *PollView             `json:"poll"`
	Contributions []models.Contribution `json:"contributions"`
}

// Close tallies the votes, closes the poll and turns the winning options into
// contributions owned by the actor.
func (s *PollService) Close(eventID, pollID uint64, actor Actor) (*ClosePollResult, error) {
	poll, err := s.find(eventID, pollID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(poll.CreatorID) {
		return nil, ErrNotPollCloser
	}
	if poll.IsClosed {
		return nil, ErrPollClosed
	}

	tally, err := s.pollRepo.Tally([]uint64{poll.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}

	winners := SelectWinners(poll.Options, tally, constants.PollWinnerCount)
	contributions := make([]models.Contribution, len(winners))
	for i, option := range winners {
		contributions[i] = models.Contribution{
			EventID:  poll.EventID,
			UserID:   actor.ID,
			Title:    option.Label,
			Category: poll.Category,
			Note:     fmt.Sprintf("Chosen by poll: %s", poll.Question),
		}
	}

	now := s.clock.Now()
	if err := s.pollRepo.Close(poll.ID, now, contributions); err != nil {
		if errors.Is(err, repository.ErrAlreadyClosed) {
			return nil, ErrPollClosed
		}
		return nil, fmt.Errorf("failed to close poll: %w", err)
	}

	poll.IsClosed = true
	poll.ClosedAt = &now

	s.notifier.Notify(eventID, constants.RealtimePollUpdate, change{Action: "closed", ID: poll.ID})
	if len(contributions) > 0 {
		s.notifier.Notify(eventID, constants.RealtimeContributionUpdate, change{Action: "created"})
	}

	views, err := s.views([]models.Poll{*poll}, actor.ID)
	if err != nil {
		return nil, err
	}
	return &ClosePollResult{Poll: &views[0], Contributions: contributions}, nil
}

// SelectWinners keeps options with at least one vote, orders them by vote
// count descending with ties in original option order, and returns the first n.
func SelectWinners(options []models.PollOption, tally map[uint64]int64, n int) []models.PollOption {
	ordered := make([]models.PollOption, len(options))
	copy(ordered, options)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	voted := ordered[:0]
	for _, o := range ordered {
		if tally[o.ID] > 0 {
			voted = append(voted, o)
		}
	}

	sort.SliceStable(voted, func(i, j int) bool {
		return tally[voted[i].ID] > tally[voted[j].ID]
	})

	if len(voted) > n {
		voted = voted[:n]
	}
	return voted
}

func (s *PollService) views(polls []models.Poll, viewerID uint64) ([]PollView, error) {
	ids := make([]uint64, len(polls))
	for i, p := range polls {
		ids[i] = p.ID
	}

	tally, err := s.pollRepo.Tally(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to tally votes: %w", err)
	}
	mine, err := s.pollRepo.VotesByUser(ids, viewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}

	views := make([]PollView, len(polls))
	for i, p := range polls {
		view := PollView{Poll: p, MyVotes: mine[p.ID], Options: make([]OptionResult, len(p.Options))}
		if view.MyVotes == nil {
			view.MyVotes = []uint64{}
		}
		for j, o := range p.Options {
			count := tally[o.ID]
			view.Options[j] = OptionResult{PollOption: o, Votes: count}
			view.TotalVotes += count
		}
		views[i] = view
	}
	return views, nil
}

func (s *PollService) find(eventID, pollID uint64) (*models.Poll, error) {
	poll, err := s.pollRepo.FindByID(pollID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to find poll: %w", err)
	}
	if poll.EventID != eventID {
		return nil, ErrPollNotFound
	}
	return poll, nil
}
