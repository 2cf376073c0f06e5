// Package features derives numeric features from raw accident fields:
// Earth-centred coordinates from latitude/longitude and cyclical encodings
// of timestamps.
package features

import (
	"math"
	"strings"

	scierrors "github.com/YuminosukeSato/severity/pkg/errors"
)

// WGS84 ellipsoid parameters.
const (
	WGS84SemiMajorAxis = 6378137.0
	WGS84ESquared      = 0.006694379990141316
)

// Axis selects one ECEF coordinate. ToECEF accepts either case ("x" or "X").
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// ECEF converts geodetic degrees to Earth-Centred Earth-Fixed metres.
func ECEF(latDeg, lonDeg float64) (x, y, z float64) {
	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180

	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	// prime vertical radius of curvature
	n := WGS84SemiMajorAxis / math.Sqrt(1-WGS84ESquared*sinLat*sinLat)

	x = n * cosLat * cosLon
	y = n * cosLat * sinLon
	z = n * (1 - WGS84ESquared) * sinLat
	return x, y, z
}

// ToECEF returns a single ECEF axis. Unknown axes are an InvalidArgumentError.
func ToECEF(latDeg, lonDeg float64, axis Axis) (float64, error) {
	x, y, z := ECEF(latDeg, lonDeg)
	switch Axis(strings.ToLower(string(axis))) {
	case AxisX:
		return x, nil
	case AxisY:
		return y, nil
	case AxisZ:
		return z, nil
	default:
		return 0, scierrors.NewInvalidArgumentError("ToECEF", "axis", string(axis))
	}
}
