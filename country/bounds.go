package country

import (
	"strings"

	"rationsmart/backend"
)

// box is an axis-aligned latitude/longitude rectangle, inclusive.
type box struct {
	minLat, maxLat float64
	minLon, maxLon float64
}

func (b box) contains(lat, lon float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lon >= b.minLon && lon <= b.maxLon
}

// boxes are rough national extents keyed by the backend's country code. Some
// overlap (Kenya and Tanzania near the border); catalog order decides.
var boxes = map[string]box{
	"IND": {6.5, 35.7, 68.1, 97.4},
	"ETH": {3.4, 14.9, 33.0, 48.0},
	"KEN": {-4.7, 5.0, 33.9, 41.9},
	"TZA": {-11.75, -0.99, 29.3, 40.45},
	"UGA": {-1.48, 4.23, 29.57, 35.0},
	"VNM": {8.4, 23.4, 102.1, 109.5},
	"IDN": {-11.0, 6.1, 95.0, 141.0},
	"PHL": {4.6, 21.1, 116.9, 126.6},
	"BGD": {20.7, 26.6, 88.0, 92.7},
	"NPL": {26.3, 30.45, 80.0, 88.2},
}

func matchBox(countries []backend.Country, lat, lon float64) *backend.Country {
	for i := range countries {
		b, ok := boxes[strings.ToUpper(strings.TrimSpace(countries[i].Code))]
		if ok && b.contains(lat, lon) {
			return &countries[i]
		}
	}
	return nil
}
