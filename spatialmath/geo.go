package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"
)

// GetCartesianDistance returns the north-south and east-west displacement between p and q in
// meters. It projects points on a sphere onto a plane, so it is only accurate for nearby points.
func GetCartesianDistance(p, q *geo.Point) (float64, float64) {
	mod := geo.NewPoint(p.Lat(), q.Lng())
	// haversine distances are in kilometers
	distAlongLat := 1e3 * q.GreatCircleDistance(mod)
	distAlongLng := 1e3 * p.GreatCircleDistance(mod)
	return distAlongLat, distAlongLng
}

// GeoPointToENU returns the east-north-up position of point relative to origin, in meters. The
// altitudes give the up component.
func GeoPointToENU(origin, point *geo.Point, originAlt, pointAlt float64) r3.Vector {
	north, east := GetCartesianDistance(origin, point)
	if point.Lat() < origin.Lat() {
		north = -north
	}
	if math.Mod(point.Lng()-origin.Lng()+540, 360)-180 < 0 {
		east = -east
	}
	return r3.Vector{X: east, Y: north, Z: pointAlt - originAlt}
}
