package geo

import (
	"math"
)

const EarthRadiusKm = 6371

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BoundingBox is the rectangle handed to SQL as a cheap pre-filter; the
// exact haversine distance is applied to the rows it returns.
type BoundingBox struct {
	MinLatitude  float64 `json:"minLatitude"`
	MaxLatitude  float64 `json:"maxLatitude"`
	MinLongitude float64 `json:"minLongitude"`
	MaxLongitude float64 `json:"maxLongitude"`
}

// Distance returns the haversine distance between two points in km.
func Distance(p1, p2 Coordinates) float64 {
	lat1 := toRadians(p1.Latitude)
	lat2 := toRadians(p2.Latitude)
	dLat := toRadians(p2.Latitude - p1.Latitude)
	dLon := toRadians(p2.Longitude - p1.Longitude)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// BoxAround builds the bounding box covering radiusKm around center.
// Longitude span widens with latitude; near the poles it degrades to the
// full circle, which is acceptable for a pre-filter.
func BoxAround(center Coordinates, radiusKm float64) BoundingBox {
	latDelta := toDegrees(radiusKm / EarthRadiusKm)

	lonDelta := 180.0
	if cos := math.Cos(toRadians(center.Latitude)); cos > 1e-9 {
		lonDelta = toDegrees(radiusKm / (EarthRadiusKm * cos))
	}

	return BoundingBox{
		MinLatitude:  center.Latitude - latDelta,
		MaxLatitude:  center.Latitude + latDelta,
		MinLongitude: center.Longitude - lonDelta,
		MaxLongitude: center.Longitude + lonDelta,
	}
}

func (b BoundingBox) Contains(p Coordinates) bool {
	return p.Latitude >= b.MinLatitude && p.Latitude <= b.MaxLatitude &&
		p.Longitude >= b.MinLongitude && p.Longitude <= b.MaxLongitude
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
