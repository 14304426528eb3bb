package services

import (
	"math"

	"github.com/zatekoja/provider-browser/internal/domain/entities"
)

// GeoBounds is the box enclosing every placed marker
type GeoBounds struct {
	MinLatitude  float64           `json:"min_latitude"`
	MinLongitude float64           `json:"min_longitude"`
	MaxLatitude  float64           `json:"max_latitude"`
	MaxLongitude float64           `json:"max_longitude"`
	Center       entities.Location `json:"center"`
	// RadiusKm is the distance from Center to the farthest marker
	RadiusKm float64 `json:"radius_km"`
}

func boundsOf(points []entities.Location) *GeoBounds {
	if len(points) == 0 {
		return nil
	}

	b := &GeoBounds{
		MinLatitude:  points[0].Latitude,
		MaxLatitude:  points[0].Latitude,
		MinLongitude: points[0].Longitude,
		MaxLongitude: points[0].Longitude,
	}
	for _, p := range points[1:] {
		b.MinLatitude = math.Min(b.MinLatitude, p.Latitude)
		b.MaxLatitude = math.Max(b.MaxLatitude, p.Latitude)
		b.MinLongitude = math.Min(b.MinLongitude, p.Longitude)
		b.MaxLongitude = math.Max(b.MaxLongitude, p.Longitude)
	}
	b.Center = entities.Location{
		Latitude:  (b.MinLatitude + b.MaxLatitude) / 2,
		Longitude: (b.MinLongitude + b.MaxLongitude) / 2,
	}
	for _, p := range points {
		d := calculateDistance(b.Center.Latitude, b.Center.Longitude, p.Latitude, p.Longitude)
		b.RadiusKm = math.Max(b.RadiusKm, d)
	}
	return b
}

func calculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := degreesToRadians(lat2 - lat1)
	dLon := degreesToRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
