// conf/validate.go settings validation
package conf

import (
	"errors"
	"fmt"
	"math"
)

// ValidateSettings checks the loaded settings for inconsistencies that would
// produce silently wrong engine behavior.
func ValidateSettings(settings *Settings) error {
	var errs []error

	if settings.Engine.Workers < 1 {
		errs = append(errs, fmt.Errorf("engine.workers must be at least 1, got %d", settings.Engine.Workers))
	}
	if settings.Engine.HistoryWeeks < 1 {
		errs = append(errs, fmt.Errorf("engine.historyweeks must be at least 1, got %d", settings.Engine.HistoryWeeks))
	}
	if settings.Engine.ValidWeekMinReadings < 0 {
		errs = append(errs, fmt.Errorf("engine.validweekminreadings must not be negative, got %d", settings.Engine.ValidWeekMinReadings))
	}
	if settings.Engine.ExpectedDailyReadings < 1 {
		errs = append(errs, fmt.Errorf("engine.expecteddailyreadings must be at least 1, got %d", settings.Engine.ExpectedDailyReadings))
	}
	if settings.Engine.Detection.FlatlineRunHours < 2 {
		errs = append(errs, fmt.Errorf("engine.detection.flatlinerunhours must be at least 2, got %d", settings.Engine.Detection.FlatlineRunHours))
	}
	if settings.Engine.Detection.SpikeFactor <= 1.0 {
		errs = append(errs, fmt.Errorf("engine.detection.spikefactor must be greater than 1.0, got %g", settings.Engine.Detection.SpikeFactor))
	}

	if err := validateScoringWeights(&settings.Engine.Scoring); err != nil {
		errs = append(errs, err)
	}

	if settings.Engine.Predictor.Enabled {
		if settings.Engine.Predictor.URL == "" {
			errs = append(errs, errors.New("engine.predictor.url is required when the predictor is enabled"))
		}
		if settings.Engine.Predictor.Timeout <= 0 {
			errs = append(errs, errors.New("engine.predictor.timeout must be positive"))
		}
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		errs = append(errs, errors.New("either output.sqlite or output.mysql must be enabled"))
	}
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		errs = append(errs, errors.New("output.sqlite and output.mysql are mutually exclusive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func validateScoringWeights(w *ScoringWeights) error {
	for name, v := range map[string]float64{
		"signalquality": w.SignalQuality,
		"certainty":     w.Certainty,
		"bestmethod":    w.BestMethod,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("engine.scoring.%s must be within [0,1], got %g", name, v)
		}
	}
	sum := w.SignalQuality + w.Certainty + w.BestMethod
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("engine.scoring weights must sum to 1.0, got %g", sum)
	}
	return nil
}
