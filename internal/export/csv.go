package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
)

var contributionHeader = []string{"id", "title", "category", "quantity", "note", "contributor", "ingredient", "image_url", "created_at"}

// ContributionsCSV writes contributions as CSV with a header row.
func ContributionsCSV(w io.Writer, contributions []models.Contribution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(contributionHeader); err != nil {
		return err
	}

	for _, c := range contributions {
		ingredient := ""
		if c.Ingredient != nil {
			ingredient = c.Ingredient.Name
		}
		record := []string{
			strconv.FormatUint(c.ID, 10),
			sanitizeCell(c.Title),
			string(c.Category),
			sanitizeCell(c.Quantity),
			sanitizeCell(c.Note),
			sanitizeCell(c.User.Name),
			sanitizeCell(ingredient),
			c.ImageURL,
			c.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// sanitizeCell stops spreadsheet apps from evaluating user text as a formula.
func sanitizeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}
