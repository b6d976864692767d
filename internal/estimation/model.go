// model.go: the external prediction service as a sixth candidate method
package estimation

import (
	"context"

	"github.com/aquatel/hydronet-go/internal/errors"
	"github.com/aquatel/hydronet-go/internal/series"
)

// PredictFunc asks the external prediction service for a full-day value
// vector given the point's input. Implemented by the predictor client; the
// call carries its own timeout.
type PredictFunc func(ctx context.Context, in *Input) (series.HourlySeries, error)

// ExternalModelMethod delegates to the out-of-process model. It is optional
// equipment: a timeout or transport failure surfaces as ErrExternalService
// and the point proceeds with the remaining methods.
type ExternalModelMethod struct {
	Predict PredictFunc
}

// Name implements Method.
func (m *ExternalModelMethod) Name() string { return MethodExternalModel }

// Estimate implements Method.
func (m *ExternalModelMethod) Estimate(ctx context.Context, in *Input) (series.HourlySeries, Meta, error) {
	if m.Predict == nil {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	predicted, err := m.Predict(ctx, in)
	if err != nil {
		return series.Empty(), Meta{}, err
	}
	out := series.Empty()
	for h := 0; h < series.HoursPerDay; h++ {
		if predicted.Has(h) {
			out[h] = predicted[h]
		}
	}
	if out.Count() == 0 {
		return series.Empty(), Meta{}, errors.ErrInsufficientData
	}
	return out, Meta{Method: m.Name()}, nil
}
