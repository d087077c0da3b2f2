// Package features turns raw listings into the engineered feature table:
// room and price ratios, timestamp decomposition, per-group counts and
// means, and the joined tag text the count vectorizer consumes.
package features

import (
	"strings"
	"time"

	"rentsignal/dataset"
	"rentsignal/pkg/errors"
)

// Categorical column names carried through for encoding.
const (
	ColManagerID      = "manager_id"
	ColBuildingID     = "building_id"
	ColDisplayAddress = "display_address"
	ColStreetAddress  = "street_address"
	ColFeatureText    = "features"
)

// CategoricalColumns lists the label-encoded categorical fields, in the
// order the one-hot branch consumes them.
func CategoricalColumns() []string {
	return []string{ColDisplayAddress, ColManagerID, ColBuildingID, ColStreetAddress}
}

// ContinuousColumns lists the numeric columns that enter the model untouched.
func ContinuousColumns() []string {
	return []string{
		"listing_id",
		"bathrooms", "bedrooms", "latitude", "longitude", "price",
		"price_per_bed", "price_per_room",
		"num_photos", "num_features", "num_description_words",
		"created_month", "created_day", "created_hour",
		"room_dif", "room_sum",
		"listings_by_building", "listings_by_manager",
		"listings_by_display_address", "listings_by_street_address",
		"price_by_manager", "price_by_building", "price_by_display_address",
	}
}

// Engineer builds the feature table over the joined train+test corpus.
// Group statistics (counts, price means) are computed over the whole corpus,
// matching how the original run pooled both files before splitting back.
func Engineer(listings []dataset.Listing) (*dataset.Table, error) {
	n := len(listings)
	if n == 0 {
		return nil, errors.NewModelError("features.Engineer", "no listings", errors.ErrEmptyData)
	}

	t := dataset.NewTable(n)

	listingID := make([]float64, n)
	bedrooms := make([]float64, n)
	bathrooms := make([]float64, n)
	price := make([]float64, n)
	latitude := make([]float64, n)
	longitude := make([]float64, n)
	roomDif := make([]float64, n)
	roomSum := make([]float64, n)
	pricePerBed := make([]float64, n)
	pricePerRoom := make([]float64, n)
	bedPerRoomSum := make([]float64, n)
	numPhotos := make([]float64, n)
	numFeatures := make([]float64, n)
	numDescWords := make([]float64, n)

	for i, l := range listings {
		listingID[i] = float64(l.ListingID)
		bedrooms[i] = l.Bedrooms
		bathrooms[i] = l.Bathrooms
		price[i] = l.Price
		latitude[i] = l.Latitude
		longitude[i] = l.Longitude
		roomDif[i] = l.Bedrooms - l.Bathrooms
		roomSum[i] = l.Bedrooms + l.Bathrooms
		pricePerBed[i] = l.Price / l.Bedrooms
		pricePerRoom[i] = l.Price / roomSum[i]
		bedPerRoomSum[i] = l.Bedrooms / roomSum[i]
		numPhotos[i] = float64(len(l.Photos))
		numFeatures[i] = float64(len(l.Features))
		numDescWords[i] = float64(len(strings.Split(l.Description, " ")))
	}

	cols := []struct {
		name   string
		values []float64
	}{
		{"listing_id", listingID},
		{"bedrooms", bedrooms},
		{"bathrooms", bathrooms},
		{"price", price},
		{"latitude", latitude},
		{"longitude", longitude},
		{"room_dif", roomDif},
		{"room_sum", roomSum},
		{"price_per_bed", pricePerBed},
		{"price_per_room", pricePerRoom},
		{"bed_per_roomsum", bedPerRoomSum},
		{"num_photos", numPhotos},
		{"num_features", numFeatures},
		{"num_description_words", numDescWords},
	}
	for _, c := range cols {
		if err := t.SetNumeric(c.name, c.values); err != nil {
			return nil, err
		}
	}

	if err := addCreatedColumns(t, listings); err != nil {
		return nil, err
	}
	if err := addGroupStatistics(t, listings); err != nil {
		return nil, err
	}

	strCols := map[string]func(dataset.Listing) string{
		ColManagerID:      func(l dataset.Listing) string { return l.ManagerID },
		ColBuildingID:     func(l dataset.Listing) string { return l.BuildingID },
		ColDisplayAddress: func(l dataset.Listing) string { return l.DisplayAddress },
		ColStreetAddress:  func(l dataset.Listing) string { return l.StreetAddress },
		ColFeatureText:    func(l dataset.Listing) string { return JoinTags(l.Features) },
	}
	for _, name := range []string{ColManagerID, ColBuildingID, ColDisplayAddress, ColStreetAddress, ColFeatureText} {
		col := make([]string, n)
		for i, l := range listings {
			col[i] = strCols[name](l)
		}
		if err := t.SetString(name, col); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// addCreatedColumns decomposes the created timestamp and counts listings per
// created day (days since the earliest listing in the corpus).
func addCreatedColumns(t *dataset.Table, listings []dataset.Listing) error {
	n := len(listings)
	earliest := listings[0].Created
	for _, l := range listings[1:] {
		if l.Created.Before(earliest) {
			earliest = l.Created
		}
	}

	year := make([]float64, n)
	month := make([]float64, n)
	day := make([]float64, n)
	hour := make([]float64, n)
	passedDays := make([]float64, n)
	dayCount := map[int]int{}

	for i, l := range listings {
		year[i] = float64(l.Created.Year())
		month[i] = float64(int(l.Created.Month()))
		day[i] = float64(l.Created.Day())
		hour[i] = float64(l.Created.Hour())
		passed := int(l.Created.Sub(earliest) / (24 * time.Hour))
		passedDays[i] = float64(passed)
		dayCount[passed]++
	}

	byCreatedDay := make([]float64, n)
	for i := range listings {
		byCreatedDay[i] = float64(dayCount[int(passedDays[i])])
	}

	cols := []struct {
		name   string
		values []float64
	}{
		{"created_year", year},
		{"created_month", month},
		{"created_day", day},
		{"created_hour", hour},
		{"passed_days", passedDays},
		{"listings_by_created_day", byCreatedDay},
	}
	for _, c := range cols {
		if err := t.SetNumeric(c.name, c.values); err != nil {
			return err
		}
	}
	return nil
}

// addGroupStatistics adds listing counts per manager, building and address,
// and mean prices per group key. The street-address price mean is computed
// by the reference run and then discarded, so it is not emitted here.
func addGroupStatistics(t *dataset.Table, listings []dataset.Listing) error {
	n := len(listings)

	type agg struct {
		count int
		sum   float64
	}
	groups := map[string]map[string]*agg{
		ColManagerID:      {},
		ColBuildingID:     {},
		ColDisplayAddress: {},
		ColStreetAddress:  {},
	}
	keyOf := map[string]func(dataset.Listing) string{
		ColManagerID:      func(l dataset.Listing) string { return l.ManagerID },
		ColBuildingID:     func(l dataset.Listing) string { return l.BuildingID },
		ColDisplayAddress: func(l dataset.Listing) string { return l.DisplayAddress },
		ColStreetAddress:  func(l dataset.Listing) string { return l.StreetAddress },
	}

	for _, l := range listings {
		for field, group := range groups {
			key := keyOf[field](l)
			a, ok := group[key]
			if !ok {
				a = &agg{}
				group[key] = a
			}
			a.count++
			a.sum += l.Price
		}
	}

	countCols := map[string]string{
		ColManagerID:      "listings_by_manager",
		ColBuildingID:     "listings_by_building",
		ColDisplayAddress: "listings_by_display_address",
		ColStreetAddress:  "listings_by_street_address",
	}
	meanCols := map[string]string{
		ColManagerID:      "price_by_manager",
		ColBuildingID:     "price_by_building",
		ColDisplayAddress: "price_by_display_address",
	}

	for field, colName := range countCols {
		col := make([]float64, n)
		for i, l := range listings {
			col[i] = float64(groups[field][keyOf[field](l)].count)
		}
		if err := t.SetNumeric(colName, col); err != nil {
			return err
		}
	}
	for field, colName := range meanCols {
		col := make([]float64, n)
		for i, l := range listings {
			a := groups[field][keyOf[field](l)]
			col[i] = a.sum / float64(a.count)
		}
		if err := t.SetNumeric(colName, col); err != nil {
			return err
		}
	}
	return nil
}

// JoinTags joins a listing's feature tags into count-vectorizer input:
// spaces inside a tag become underscores so each tag stays one token.
func JoinTags(tags []string) string {
	joined := make([]string, len(tags))
	for i, tag := range tags {
		joined[i] = strings.Join(strings.Fields(tag), "_")
	}
	return strings.Join(joined, " ")
}
