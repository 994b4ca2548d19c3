package models

import (
	"time"
)

// ListingRecord is the denormalized output of the page extractor, one per
// bus listing. Spec fields are optional; the extractor leaves them zero
// when the detail page does not mention them.
type ListingRecord struct {
	Title                string   `json:"title"`
	SourceURL            string   `json:"sourceUrl"`
	Sold                 bool     `json:"sold"`
	Price                string   `json:"price"`
	Description          string   `json:"description"`
	AirConditioning      bool     `json:"airConditioning"`
	PassengerCapacity    int      `json:"passengerCapacity"`
	Mileage              string   `json:"mileage"`
	Engine               string   `json:"engine"`
	Transmission         string   `json:"transmission"`
	GrossWeight          string   `json:"grossWeight"`
	WheelchairAccessible bool     `json:"wheelchairAccessible"`
	LuggageCapacity      string   `json:"luggageCapacity"`
	Images               []string `json:"images"`
}

// Bus is one row of the buses table, the canonical deduplicated listing.
type Bus struct {
	ID          int64     `db:"id"`
	Fingerprint string    `db:"fingerprint"`
	Title       string    `db:"title"`
	SourceURL   string    `db:"source_url"`
	Sold        bool      `db:"sold"`
	Price       string    `db:"price"`
	FirstSeenAt time.Time `db:"first_seen_at"`
	LastSeenAt  time.Time `db:"last_seen_at"`
}

// BusOverview is the 1:1 spec attributes row for a bus. It is replaced
// wholesale on every upsert.
type BusOverview struct {
	BusID                int64  `db:"bus_id"`
	AirConditioning      bool   `db:"air_conditioning"`
	PassengerCapacity    int    `db:"passenger_capacity"`
	Mileage              string `db:"mileage"`
	Engine               string `db:"engine"`
	Transmission         string `db:"transmission"`
	GrossWeight          string `db:"gross_weight"`
	WheelchairAccessible bool   `db:"wheelchair_accessible"`
	LuggageCapacity      string `db:"luggage_capacity"`
}

// BusImage is one image URL of a bus. Position is dense and 0-based in
// extraction order; the full set is replaced on every re-crawl.
type BusImage struct {
	ID       int64  `db:"id"`
	BusID    int64  `db:"bus_id"`
	URL      string `db:"url"`
	Position int    `db:"position"`
}

// Overview builds the overview row for a record, without the bus id.
func (r *ListingRecord) Overview() BusOverview {
	return BusOverview{
		AirConditioning:      r.AirConditioning,
		PassengerCapacity:    r.PassengerCapacity,
		Mileage:              r.Mileage,
		Engine:               r.Engine,
		Transmission:         r.Transmission,
		GrossWeight:          r.GrossWeight,
		WheelchairAccessible: r.WheelchairAccessible,
		LuggageCapacity:      r.LuggageCapacity,
	}
}
