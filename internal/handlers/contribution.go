package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/export"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/utils"
)

// ContributionHandler handles contribution endpoints of an event.
type ContributionHandler struct {
	contributionService *services.ContributionService
}

// NewContributionHandler creates a new ContributionHandler.
func NewContributionHandler(contributionService *services.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributionService: contributionService}
}

type contributionRequest struct {
	Title           *string                      `json:"title"`
	Category        *models.ContributionCategory `json:"category"`
	Quantity        *string                      `json:"quantity"`
	Note            *string                      `json:"note"`
	IngredientID    *uint64                      `json:"ingredient_id"`
	ClearIngredient bool                         `json:"clear_ingredient"`
	RemoveImage     bool                         `json:"remove_image"`
}

// ListContributions returns the contributions of the event.
func (h *ContributionHandler) ListContributions(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	contributions, err := h.contributionService.List(event.ID)
	if err != nil {
		respondInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributions": dto.ToContributionDTOs(contributions)})
}

// CreateContribution accepts JSON or a multipart form with an optional image.
func (h *ContributionHandler) CreateContribution(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	input, err := bindContribution(c)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	if closer, ok := input.Image.(io.Closer); ok {
		defer closer.Close()
	}

	contribution, err := h.contributionService.Create(event.ID, actor, input)
	if err != nil {
		respondContributionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToContributionDTO(*contribution))
}

// UpdateContribution edits a contribution. Owner or admin only.
func (h *ContributionHandler) UpdateContribution(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	contributionID, ok := utils.ParseIDParam(c, "contributionId")
	if !ok {
		apierrors.BadRequest(c, "Invalid contribution ID")
		return
	}

	input, err := bindContribution(c)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	if closer, ok := input.Image.(io.Closer); ok {
		defer closer.Close()
	}

	contribution, err := h.contributionService.Update(event.ID, contributionID, actor, input)
	if err != nil {
		respondContributionError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToContributionDTO(*contribution))
}

// DeleteContribution removes a contribution and its image.
func (h *ContributionHandler) DeleteContribution(c *gin.Context) {
	actor, event, ok := requestContext(c)
	if !ok {
		return
	}

	contributionID, ok := utils.ParseIDParam(c, "contributionId")
	if !ok {
		apierrors.BadRequest(c, "Invalid contribution ID")
		return
	}

	if err := h.contributionService.Delete(event.ID, contributionID, actor); err != nil {
		respondContributionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Contribution deleted successfully"})
}

// ExportCSV streams the contributions of the event as CSV.
func (h *ContributionHandler) ExportCSV(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	contributions, err := h.contributionService.List(event.ID)
	if err != nil {
		respondInternal(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="contributions-%d.csv"`, event.ID))
	c.Status(http.StatusOK)
	if err := export.ContributionsCSV(c.Writer, contributions); err != nil {
		_ = c.Error(err)
	}
}

func bindContribution(c *gin.Context) (services.ContributionInput, error) {
	if !isMultipart(c) {
		var req contributionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return services.ContributionInput{}, errors.New("invalid request body")
		}
		return services.ContributionInput{
			Title:           req.Title,
			Category:        req.Category,
			Quantity:        req.Quantity,
			Note:            req.Note,
			IngredientID:    req.IngredientID,
			ClearIngredient: req.ClearIngredient,
			RemoveImage:     req.RemoveImage,
		}, nil
	}

	input := services.ContributionInput{
		Title:    formString(c, "title"),
		Quantity: formString(c, "quantity"),
		Note:     formString(c, "note"),
	}
	if v := formString(c, "category"); v != nil {
		category := models.ContributionCategory(*v)
		input.Category = &category
	}
	if v := formString(c, "ingredient_id"); v != nil {
		if strings.TrimSpace(*v) == "" {
			input.ClearIngredient = true
		} else {
			id, err := strconv.ParseUint(*v, 10, 64)
			if err != nil {
				return services.ContributionInput{}, errors.New("invalid ingredient_id")
			}
			input.IngredientID = &id
		}
	}
	input.RemoveImage = c.PostForm("remove_image") == "true"

	file, err := formImage(c, "image")
	if err != nil {
		return services.ContributionInput{}, errors.New("invalid image upload")
	}
	if file != nil {
		input.Image = file
	}
	return input, nil
}

func respondContributionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrContributionNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrContributionTitle),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrIngredientNotInEvent):
		apierrors.BadRequest(c, err.Error())
	default:
		if !respondCommonError(c, err) {
			respondInternal(c, err)
		}
	}
}
