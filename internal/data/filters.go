package data

import (
	"strings"

	"github.com/IrSokolova/Letterboxd/internal/validator"
)

type Filters struct {
	Limit  int
	Offset int
	// Order is the sort direction for the listing, either "asc" or "desc".
	Order string
}

// sortDirection returns the SQL keyword for the requested order. Order is
// validated against a safelist before any query is built, so anything else
// here is a programming error.
func (f Filters) sortDirection() string {
	switch strings.ToLower(f.Order) {
	case "asc":
		return "ASC"
	case "desc":
		return "DESC"
	}
	panic("unsafe order parameter: " + f.Order)
}

// ValidateFilters validates the paging window and sort direction. Each
// invalid value is added as an error to v under the corresponding key.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Limit > 0, "limit", "must be greater than zero")
	v.Check(f.Limit <= 100, "limit", "must be a maximum of 100")
	v.Check(f.Offset >= 0, "offset", "must not be negative")
	v.Check(validator.In(strings.ToLower(f.Order), "asc", "desc"), "order", "must be either asc or desc")
}

// Metadata holds the paging metadata returned alongside list responses.
type Metadata struct {
	Limit        int `json:"limit,omitempty"`
	Offset       int `json:"offset"`
	TotalRecords int `json:"total_records,omitempty"`
}

// calculateMetadata builds the metadata block for a listing given the total
// number of matching records and the requested window.
func calculateMetadata(totalRecords, limit, offset int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}

	return Metadata{
		Limit:        limit,
		Offset:       offset,
		TotalRecords: totalRecords,
	}
}
