// Package checkin holds the guest-registration reference data required by
// the national police reporting portal (Alloggiati Web). The portal only
// accepts coded values, so the fixed code tables are imported from CSV
// sources at bootstrap and served to the frontend for check-in forms.
package checkin

import (
	"context"

	"github.com/go-faster/errors"
)

// Category identifies one of the fixed reference code tables.
type Category string

const (
	CategoryGuestType    Category = "tipo_alloggiato"
	CategoryBirthComune  Category = "comune_nascita"
	CategoryBirthCountry Category = "stato_nascita"
	CategoryDocumentType Category = "tipo_documento"
)

// Categories lists every known reference table, in import order.
var Categories = []Category{
	CategoryGuestType,
	CategoryBirthComune,
	CategoryBirthCountry,
	CategoryDocumentType,
}

// ErrUnknownCategory is returned when an import names a category outside the
// fixed set.
var ErrUnknownCategory = errors.New("unknown check-in category")

// Valid reports whether c is one of the fixed categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Choice is a single coded entry of a reference table.
type Choice struct {
	Category    Category
	Code        string
	Description string
}

// Repository defines persistence operations for reference choices.
type Repository interface {
	// CountByCategory returns how many choices are stored for the category.
	CountByCategory(ctx context.Context, c Category) (int, error)
	// InsertBatch stores choices in one round trip.
	InsertBatch(ctx context.Context, choices []Choice) error
	ListByCategory(ctx context.Context, c Category) ([]Choice, error)
}
