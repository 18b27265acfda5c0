package logging

import (
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/cogen/core/model"
)

func record(i int, status model.Status, ts time.Time) LogRecord {
	total := 1000.0 + float64(i)
	if status != model.StatusOptimal {
		total = math.Inf(1)
	}
	return NewLogRecord(model.Result{
		RunID:     fmt.Sprintf("run-%d", i),
		Timestamp: ts,
		Request:   model.Request{ElectricityDemand: 60, SteamDemand: 400},
		Solution: model.Solution{
			Status:     status,
			Generators: []model.GeneratorSetpoint{{ID: 1, Admission: 100}, {ID: 2}, {ID: 3}},
			TotalCost:  total,
			Hour:       ts.Hour(),
			Period:     model.PeriodStandard,
		},
		Recommendations: []model.Recommendation{{Code: "off_peak"}},
	})
}
