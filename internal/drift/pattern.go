package drift

import "math"

// PatternDetector classifies the shape of a ratio series.
type PatternDetector interface {
	Detect(points []Point, reg Regression) Pattern
}

// SplitDetector compares the first and second halves of the series.
// A drop of more than StepThreshold between half means is a step
// change; highly dispersed point-to-point deltas are volatile; any
// other negative slope is a gradual decline.
type SplitDetector struct {
	StepThreshold float64
}

// NewSplitDetector creates the default pattern detector.
func NewSplitDetector(stepThreshold float64) *SplitDetector {
	return &SplitDetector{StepThreshold: stepThreshold}
}

// Detect implements PatternDetector.
func (d *SplitDetector) Detect(points []Point, reg Regression) Pattern {
	if len(points) < 2 {
		return PatternStable
	}

	mid := len(points) / 2
	firstMean := meanRatio(points[:mid])
	secondMean := meanRatio(points[mid:])
	if firstMean-secondMean > d.StepThreshold {
		if isAbruptDrop(points, d.StepThreshold) {
			return PatternStepChangeDown
		}
	}

	if deltaVariation(points) > 2 {
		return PatternVolatile
	}

	if reg.SlopePerSecond < 0 {
		return PatternGradualDecline
	}
	return PatternStable
}

func meanRatio(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var sum float64
	for _, p := range points {
		sum += p.Ratio
	}
	return sum / float64(len(points))
}

// isAbruptDrop reports whether a single adjacent delta accounts for the
// bulk of the half-to-half drop, distinguishing a step from a steady slide.
func isAbruptDrop(points []Point, threshold float64) bool {
	for i := 1; i < len(points); i++ {
		if points[i-1].Ratio-points[i].Ratio > threshold {
			return true
		}
	}
	return false
}

// deltaVariation is the coefficient of variation of the absolute
// point-to-point deltas.
func deltaVariation(points []Point) float64 {
	if len(points) < 3 {
		return 0
	}

	deltas := make([]float64, 0, len(points)-1)
	var sum float64
	for i := 1; i < len(points); i++ {
		d := math.Abs(points[i].Ratio - points[i-1].Ratio)
		deltas = append(deltas, d)
		sum += d
	}

	mean := sum / float64(len(deltas))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, d := range deltas {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(deltas))

	return math.Sqrt(variance) / mean
}
