package metrics

// MultiSink fanouts events to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDispatch forwards the event to all sinks, returning the first error encountered.
func (m *MultiSink) RecordDispatch(ev DispatchEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordDispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRecommendations forwards recommendation events.
func (m *MultiSink) RecordRecommendations(evs []RecommendationEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(RecommendationRecorder); ok {
			if err := rec.RecordRecommendations(evs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFreeSteam forwards free steam estimates.
func (m *MultiSink) RecordFreeSteam(ev FreeSteamEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(FreeSteamRecorder); ok {
			if err := rec.RecordFreeSteam(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPublish forwards publish events.
func (m *MultiSink) RecordPublish(ev PublishEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(PublishRecorder); ok {
			if err := rec.RecordPublish(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
