// Package evaluation compares estimated poses against a reference trajectory.
package evaluation

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/stateestimator/localization"
	"go.viam.com/stateestimator/spatialmath"
)

// ErrNoPairs is returned when no estimate could be matched to a reference pose.
var ErrNoPairs = errors.New("no estimated pose has a reference pose to compare against")

// Pair is an estimated pose and the reference pose it is compared against.
type Pair struct {
	Estimate  localization.PoseStamped
	Reference localization.PoseStamped

	// meters
	TranslationError float64
	// radians, in [0, pi]
	YawError float64
}

// NewPair computes the errors of estimate against reference.
func NewPair(estimate, reference localization.PoseStamped) Pair {
	return Pair{
		Estimate:         estimate,
		Reference:        reference,
		TranslationError: estimate.Pose.Point.Sub(reference.Pose.Point).Norm(),
		YawError:         math.Abs(wrapAngle(spatialmath.Yaw(estimate.Pose.Orientation) - spatialmath.Yaw(reference.Pose.Orientation))),
	}
}

// Match pairs every estimate with the latest reference pose stamped at or before it. Estimates
// older than the first reference are dropped, as are estimates whose reference is more than maxAge
// older, unless maxAge is zero.
func Match(estimates, reference []localization.PoseStamped, maxAge time.Duration) []Pair {
	sorted := append([]localization.PoseStamped(nil), reference...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	pairs := make([]Pair, 0, len(estimates))
	for _, est := range estimates {
		// first reference strictly after the estimate
		idx := sort.Search(len(sorted), func(i int) bool {
			return sorted[i].Time.After(est.Time)
		})
		if idx == 0 {
			continue
		}
		ref := sorted[idx-1]
		if maxAge > 0 && est.Time.Sub(ref.Time) > maxAge {
			continue
		}
		pairs = append(pairs, NewPair(est, ref))
	}
	return pairs
}

// Summary holds error statistics over a set of pairs.
type Summary struct {
	Count int

	MeanTranslation   float64
	MedianTranslation float64
	P95Translation    float64
	MaxTranslation    float64
	RMSETranslation   float64

	MeanYaw float64
	MaxYaw  float64
}

// Summarize computes the statistics of pairs.
func Summarize(pairs []Pair) (Summary, error) {
	if len(pairs) == 0 {
		return Summary{}, ErrNoPairs
	}
	translation := make(stats.Float64Data, 0, len(pairs))
	squared := make(stats.Float64Data, 0, len(pairs))
	yaw := make(stats.Float64Data, 0, len(pairs))
	for _, p := range pairs {
		translation = append(translation, p.TranslationError)
		squared = append(squared, p.TranslationError*p.TranslationError)
		yaw = append(yaw, p.YawError)
	}

	s := Summary{Count: len(pairs)}
	var err error
	if s.MeanTranslation, err = translation.Mean(); err != nil {
		return Summary{}, errors.Wrap(err, "mean translation error")
	}
	if s.MedianTranslation, err = translation.Median(); err != nil {
		return Summary{}, errors.Wrap(err, "median translation error")
	}
	if s.P95Translation, err = translation.Percentile(95); err != nil {
		return Summary{}, errors.Wrap(err, "95th percentile translation error")
	}
	if s.MaxTranslation, err = translation.Max(); err != nil {
		return Summary{}, errors.Wrap(err, "max translation error")
	}
	meanSquared, err := squared.Mean()
	if err != nil {
		return Summary{}, errors.Wrap(err, "mean squared translation error")
	}
	s.RMSETranslation = math.Sqrt(meanSquared)
	if s.MeanYaw, err = yaw.Mean(); err != nil {
		return Summary{}, errors.Wrap(err, "mean yaw error")
	}
	if s.MaxYaw, err = yaw.Max(); err != nil {
		return Summary{}, errors.Wrap(err, "max yaw error")
	}
	return s, nil
}

// String prints the summary as a table of metric and value.
func (s Summary) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Pairs", fmt.Sprintf("%d", s.Count)})
	t.AppendRow(table.Row{"Mean translation error (m)", fmt.Sprintf("%.4f", s.MeanTranslation)})
	t.AppendRow(table.Row{"Median translation error (m)", fmt.Sprintf("%.4f", s.MedianTranslation)})
	t.AppendRow(table.Row{"P95 translation error (m)", fmt.Sprintf("%.4f", s.P95Translation)})
	t.AppendRow(table.Row{"Max translation error (m)", fmt.Sprintf("%.4f", s.MaxTranslation)})
	t.AppendRow(table.Row{"RMSE translation (m)", fmt.Sprintf("%.4f", s.RMSETranslation)})
	t.AppendRow(table.Row{"Mean yaw error (deg)", fmt.Sprintf("%.3f", radToDeg(s.MeanYaw))})
	t.AppendRow(table.Row{"Max yaw error (deg)", fmt.Sprintf("%.3f", radToDeg(s.MaxYaw))})
	return t.Render()
}

func wrapAngle(a float64) float64 {
	return math.Atan2(math.Sin(a), math.Cos(a))
}

func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
