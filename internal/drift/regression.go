package drift

// fitOLS runs ordinary least squares over (seconds since first point,
// ratio). The caller guarantees at least two points.
func fitOLS(points []Point) Regression {
	n := float64(len(points))
	origin := points[0].Timestamp

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := p.Timestamp.Sub(origin).Seconds()
		sumX += x
		sumY += p.Ratio
		sumXY += x * p.Ratio
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		// All points share a timestamp; no slope can be established.
		return Regression{Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	// R^2 = 1 - SS_res/SS_tot, clamped into [0,1].
	meanY := sumY / n
	var ssRes, ssTot float64
	for _, p := range points {
		x := p.Timestamp.Sub(origin).Seconds()
		predicted := intercept + slope*x
		ssRes += (p.Ratio - predicted) * (p.Ratio - predicted)
		ssTot += (p.Ratio - meanY) * (p.Ratio - meanY)
	}

	rSquared := 1.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}
	if rSquared < 0 {
		rSquared = 0
	}
	if rSquared > 1 {
		rSquared = 1
	}

	return Regression{
		SlopePerSecond: slope,
		Intercept:      intercept,
		RSquared:       rSquared,
	}
}
