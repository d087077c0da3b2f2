// Package dataset defines the rental-listing record, corpus loading and the
// column table the feature pipeline operates on.
package dataset

import (
	"time"

	"rentsignal/pkg/errors"
)

// Interest-level class indices. The ordering matches the submission column
// order: high, medium, low.
const (
	ClassHigh = iota
	ClassMedium
	ClassLow

	NumClasses = 3
)

// ClassLabels lists the label strings in class-index order.
var ClassLabels = [NumClasses]string{"high", "medium", "low"}

// ClassIndex maps an interest-level label to its class index.
func ClassIndex(label string) (int, error) {
	switch label {
	case "high":
		return ClassHigh, nil
	case "medium":
		return ClassMedium, nil
	case "low":
		return ClassLow, nil
	default:
		return 0, errors.NewValueError("dataset.ClassIndex", "unknown interest level "+label)
	}
}

// Listing is one rental-listing record as decoded from the input JSON.
// InterestLevel is empty for test rows.
type Listing struct {
	ListingID      int64     `json:"listing_id"`
	Bedrooms       float64   `json:"bedrooms"`
	Bathrooms      float64   `json:"bathrooms"`
	Price          float64   `json:"price"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	ManagerID      string    `json:"manager_id"`
	BuildingID     string    `json:"building_id"`
	DisplayAddress string    `json:"display_address"`
	StreetAddress  string    `json:"street_address"`
	Features       []string  `json:"features"`
	Photos         []string  `json:"photos"`
	Description    string    `json:"description"`
	Created        time.Time `json:"created"`
	InterestLevel  string    `json:"interest_level,omitempty"`
}

// Labels extracts the class indices for a slice of training listings.
func Labels(listings []Listing) ([]int, error) {
	if len(listings) == 0 {
		return nil, errors.NewModelError("dataset.Labels", "no listings", errors.ErrEmptyData)
	}
	y := make([]int, len(listings))
	for i, l := range listings {
		idx, err := ClassIndex(l.InterestLevel)
		if err != nil {
			return nil, errors.Wrapf(err, "listing %d", l.ListingID)
		}
		y[i] = idx
	}
	return y, nil
}
