package plant

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/cogen/core/model"
)

// ErrInvalidGeneratorIndex is returned for a generator that is not installed.
var ErrInvalidGeneratorIndex = errors.New("invalid generator index")

// LinearPower is the regression output before flooring. The optimizer uses it
// as the power term of its demand row.
func (g GeneratorSpec) LinearPower(admission, extraction float64) float64 {
	return g.AdmissionCoefficient*admission + g.ExtractionCoefficient*extraction + g.Intercept
}

// Power is the predicted electrical output in MW, floored at zero.
func (g GeneratorSpec) Power(admission, extraction float64) float64 {
	return math.Max(0, g.LinearPower(admission, extraction))
}

// PredictPower evaluates the power model of the given generator.
func (p Plant) PredictPower(id model.GeneratorID, admission, extraction float64) (float64, error) {
	if !id.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidGeneratorIndex, int(id))
	}
	g, err := p.Generator(id)
	if err != nil {
		return 0, err
	}
	return g.Power(admission, extraction), nil
}

// Formula renders the regression for display.
func (g GeneratorSpec) Formula() string {
	return fmt.Sprintf("P = %.4f*A %+.4f*S %+.2f", g.AdmissionCoefficient, g.ExtractionCoefficient, g.Intercept)
}
