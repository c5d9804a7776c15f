package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/utils"
)

// PollHandler handles poll endpoints of an event.
type PollHandler struct {
	pollService *services.PollService
}

// NewPollHandler creates a new PollHandler.
func NewPollHandler(pollService *services.PollService) *PollHandler {
	return &PollHandler{pollService: pollService}
}

// ListPolls returns the polls with tallies and the caller's votes.
func (h *PollHandler) ListPolls(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	views, err := h.pollService.List(event.ID, actor.ID)
	if err != nil {
		respondPollError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"polls": dto.ToPollDTOs(views)})
}

// CreatePoll creates a poll with at least two options.
func (h *PollHandler) CreatePoll(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	type CreatePollRequest struct {
		Question string                      `json:"question" binding:"required"`
		Type     models.PollType             `json:"type"`
		Category models.ContributionCategory `json:"category"`
		Options  []string                    `json:"options" binding:"required"`
	}

	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Question and options are required")
		return
	}

	poll, err := h.pollService.Create(event.ID, actor, services.CreatePollInput{
		Question: req.Question,
		Type:     req.Type,
		Category: req.Category,
		Options:  req.Options,
	})
	if err != nil {
		respondPollError(c, err)
		return
	}

	view, err := h.pollService.Get(event.ID, poll.ID, actor.ID)
	if err != nil {
		respondPollError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPollDTO(*view))
}

// Vote replaces the caller's selection on a poll.
func (h *PollHandler) Vote(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	pollID, ok := utils.ParseIDParam(c, "pollId")
	if !ok {
		apierrors.BadRequest(c, "Invalid poll ID")
		return
	}

	type VoteRequest struct {
		OptionIDs []uint64 `json:"option_ids"`
		OptionID  *uint64  `json:"option_id"`
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	optionIDs := req.OptionIDs
	if req.OptionID != nil {
		optionIDs = append(optionIDs, *req.OptionID)
	}

	view, err := h.pollService.Vote(event.ID, pollID, actor, optionIDs)
	if err != nil {
		respondPollError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPollDTO(*view))
}

// ClosePoll closes a poll and creates contributions for its winners.
func (h *PollHandler) ClosePoll(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	pollID, ok := utils.ParseIDParam(c, "pollId")
	if !ok {
		apierrors.BadRequest(c, "Invalid poll ID")
		return
	}

	result, err := h.pollService.Close(event.ID, pollID, actor)
	if err != nil {
		respondPollError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"poll":          dto.ToPollDTO(*result.Poll),
		"contributions": dto.ToContributionDTOs(result.Contributions),
	})
}

// DeletePoll removes a poll. Creator or admin only.
func (h *PollHandler) DeletePoll(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	pollID, ok := utils.ParseIDParam(c, "pollId")
	if !ok {
		apierrors.BadRequest(c, "Invalid poll ID")
		return
	}

	if err := h.pollService.Delete(event.ID, pollID, actor); err != nil {
		respondPollError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Poll deleted successfully"})
}

func respondPollError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPollNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrPollClosed):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrNotPollCloser):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrPollQuestion),
		errors.Is(err, services.ErrPollOptions),
		errors.Is(err, services.ErrInvalidPollType),
		errors.Is(err, services.ErrInvalidPollOption),
		errors.Is(err, services.ErrSingleChoiceOnly),
		errors.Is(err, services.ErrInvalidCategory):
		apierrors.BadRequest(c, err.Error())
	default:
		if !respondCommonError(c, err) {
			respondInternal(c, err)
		}
	}
}
