package stateestimator

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	geo "github.com/kellydunn/golang-geo"

	"go.viam.com/stateestimator/referenceframe"
	"go.viam.com/stateestimator/spatialmath"
)

// StaticOffset is one static link installed above the map frame.
type StaticOffset struct {
	Parent string
	Child  string
	Pose   spatialmath.Pose
}

// A StartingPoseProvider supplies the static offsets that place the map frame in the global frame.
// The returned offsets must connect names.Global to names.Map.
type StartingPoseProvider interface {
	StaticOffsets(ctx context.Context, names referenceframe.FrameNames) ([]StaticOffset, error)
}

// FixedStartingPose places the map at a constant pose in the global frame. The zero value places
// the map at the global origin.
type FixedStartingPose struct {
	Pose spatialmath.Pose
}

// StaticOffsets returns the single global -> map link.
func (fsp FixedStartingPose) StaticOffsets(ctx context.Context, names referenceframe.FrameNames) ([]StaticOffset, error) {
	pose := fsp.Pose
	if pose == (spatialmath.Pose{}) {
		pose = spatialmath.NewZeroPose()
	}
	return []StaticOffset{{Parent: names.Global, Child: names.Map, Pose: pose}}, nil
}

// GeodeticStartingPose places the map at the agent's start point, given as latitude/longitude
// relative to a geodetic origin that the global frame is anchored to. The offset is expressed in
// east-north-up.
type GeodeticStartingPose struct {
	Origin     *geo.Point
	OriginAlt  float64
	Start      *geo.Point
	StartAlt   float64
	YawDegrees float64
}

// StaticOffsets returns the single global -> map link.
func (gsp GeodeticStartingPose) StaticOffsets(ctx context.Context, names referenceframe.FrameNames) ([]StaticOffset, error) {
	offset := spatialmath.GeoPointToENU(gsp.Origin, gsp.Start, gsp.OriginAlt, gsp.StartAlt)
	return []StaticOffset{{
		Parent: names.Global,
		Child:  names.Map,
		Pose:   spatialmath.NewPoseFromYaw(offset, gsp.YawDegrees*math.Pi/180),
	}}, nil
}

// newStartingPoseProvider builds the provider described by cfg. A nil config is the zero offset.
func newStartingPoseProvider(cfg *StartingPoseConfig) StartingPoseProvider {
	if cfg == nil {
		return FixedStartingPose{}
	}
	if cfg.Type == StartingPoseGeodetic {
		return GeodeticStartingPose{
			Origin:     geo.NewPoint(cfg.Origin.Lat, cfg.Origin.Lng),
			OriginAlt:  cfg.Origin.Alt,
			Start:      geo.NewPoint(cfg.Start.Lat, cfg.Start.Lng),
			StartAlt:   cfg.Start.Alt,
			YawDegrees: cfg.YawDegrees,
		}
	}
	translation := r3.Vector{X: cfg.Translation.X, Y: cfg.Translation.Y, Z: cfg.Translation.Z}
	return FixedStartingPose{Pose: spatialmath.NewPoseFromYaw(translation, cfg.YawDegrees*math.Pi/180)}
}
