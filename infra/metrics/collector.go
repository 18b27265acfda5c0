package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/cogen/core/metrics"
	"github.com/kilianp07/cogen/core/model"
	"github.com/kilianp07/cogen/infra/logger"
	"github.com/kilianp07/cogen/internal/eventbus"
)

// StartResultCollector subscribes to the result bus and forwards every run
// to sink. It stops when the context is canceled or the bus is closed.
func StartResultCollector(ctx context.Context, bus *eventbus.TypedBus[model.Result], sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	log = logger.OrNop(log)
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case res, ok := <-sub:
				if !ok {
					return
				}
				if err := sink.RecordDispatch(coremetrics.NewDispatchEvent(res)); err != nil {
					log.Errorf("collector: record %s: %v", res.RunID, err)
				}
				if r, ok := sink.(coremetrics.RecommendationRecorder); ok {
					if err := r.RecordRecommendations(coremetrics.NewRecommendationEvents(res)); err != nil {
						log.Errorf("collector: recommendations %s: %v", res.RunID, err)
					}
				}
			}
		}
	}()
}
