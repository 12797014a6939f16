package core

import "fmt"

// AffineModel is the fit result every fitter backend produces: the predicted
// value is the intercept plus the dot product of coefficients and features.
type AffineModel struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

func (m AffineModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, fmt.Errorf("model takes %d feature(s), got %d", len(m.Coefficients), len(features))
	}
	v := m.Intercept
	for i, c := range m.Coefficients {
		v += c * features[i]
	}
	return v, nil
}
