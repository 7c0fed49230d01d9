package evaluation

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/stateestimator/localization"
)

var (
	estimateColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	referenceColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// SaveTrajectoryPlot draws the X/Y track of the estimated and reference poses and saves it to
// path. The image format follows the file extension, e.g. .png or .svg.
func SaveTrajectoryPlot(path, title string, estimates, reference []localization.PoseStamped) error {
	if len(estimates) == 0 && len(reference) == 0 {
		return errors.New("no poses to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "East (m)"
	p.Y.Label.Text = "North (m)"

	for _, track := range []struct {
		name  string
		poses []localization.PoseStamped
		color color.Color
	}{
		{"reference", reference, referenceColor},
		{"estimate", estimates, estimateColor},
	} {
		if len(track.poses) == 0 {
			continue
		}
		pts := make(plotter.XYs, 0, len(track.poses))
		for _, pose := range track.poses {
			pts = append(pts, plotter.XY{X: pose.Pose.Point.X, Y: pose.Pose.Point.Y})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "plotting %s", track.name)
		}
		line.Color = track.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(track.name, line)
	}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return errors.Wrap(err, "saving trajectory plot")
	}
	return nil
}
