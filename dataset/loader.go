package dataset

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"time"

	"rentsignal/pkg/errors"
)

const createdLayout = "2006-01-02 15:04:05"

// rawListing mirrors the JSON field types before coercion. The corpus stores
// the created timestamp as a string and the listing id either as a number or
// a string depending on the export.
type rawListing struct {
	ListingID      json.Number `json:"listing_id"`
	Bedrooms       float64     `json:"bedrooms"`
	Bathrooms      float64     `json:"bathrooms"`
	Price          float64     `json:"price"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	ManagerID      string      `json:"manager_id"`
	BuildingID     string      `json:"building_id"`
	DisplayAddress string      `json:"display_address"`
	StreetAddress  string      `json:"street_address"`
	Features       []string    `json:"features"`
	Photos         []string    `json:"photos"`
	Description    string      `json:"description"`
	Created        string      `json:"created"`
	InterestLevel  string      `json:"interest_level"`
}

func (r *rawListing) toListing() (Listing, error) {
	id, err := r.ListingID.Int64()
	if err != nil {
		return Listing{}, errors.NewValueError("dataset.LoadListings", "bad listing_id "+r.ListingID.String())
	}
	created, err := time.Parse(createdLayout, r.Created)
	if err != nil {
		// Some exports use RFC 3339.
		created, err = time.Parse(time.RFC3339, r.Created)
		if err != nil {
			return Listing{}, errors.Wrapf(err, "dataset.LoadListings: bad created timestamp for listing %d", id)
		}
	}
	return Listing{
		ListingID:      id,
		Bedrooms:       r.Bedrooms,
		Bathrooms:      r.Bathrooms,
		Price:          r.Price,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		ManagerID:      r.ManagerID,
		BuildingID:     r.BuildingID,
		DisplayAddress: r.DisplayAddress,
		StreetAddress:  r.StreetAddress,
		Features:       r.Features,
		Photos:         r.Photos,
		Description:    r.Description,
		Created:        created,
		InterestLevel:  r.InterestLevel,
	}, nil
}

// LoadListings reads a listing corpus from a JSON file. Both layouts that
// occur in the wild are accepted: a plain array of records, and the
// column-oriented layout pandas writes ({"price": {"10": 3000, ...}, ...}).
func LoadListings(path string) ([]Listing, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset.LoadListings: read %s", path)
	}
	if len(raw) == 0 {
		return nil, errors.NewModelError("dataset.LoadListings", path, errors.ErrEmptyData)
	}

	var records []rawListing
	if err := json.Unmarshal(raw, &records); err == nil {
		return coerce(records)
	}

	records, err = decodeColumnar(raw)
	if err != nil {
		return nil, err
	}
	return coerce(records)
}

func coerce(records []rawListing) ([]Listing, error) {
	listings := make([]Listing, 0, len(records))
	for i := range records {
		l, err := records[i].toListing()
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// decodeColumnar converts the pandas column-oriented layout into records.
// Row keys are shared across columns; rows are emitted in ascending key
// order so repeated loads are stable.
func decodeColumnar(raw []byte) ([]rawListing, error) {
	var columns map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &columns); err != nil {
		return nil, errors.Wrap(err, "dataset.LoadListings: neither record array nor column layout")
	}
	if len(columns) == 0 {
		return nil, errors.NewModelError("dataset.LoadListings", "columnar decode", errors.ErrEmptyData)
	}

	// Collect the union of row keys.
	keySet := map[string]struct{}{}
	for _, col := range columns {
		for k := range col {
			keySet[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})

	records := make([]rawListing, len(keys))
	for i, key := range keys {
		row := map[string]json.RawMessage{}
		for name, col := range columns {
			if v, ok := col[key]; ok {
				row[name] = v
			}
		}
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return nil, errors.Wrap(err, "dataset.LoadListings: reassemble row")
		}
		if err := json.Unmarshal(rowJSON, &records[i]); err != nil {
			return nil, errors.Wrapf(err, "dataset.LoadListings: decode row %s", key)
		}
	}
	return records, nil
}
