package metrics

// NopRecorder discards all metrics; handy in tests.
type NopRecorder struct{}

func (NopRecorder) RecordCycle(string, float64)     {}
func (NopRecorder) RecordFitScore(string, float64)  {}
func (NopRecorder) RecordError(string)              {}
func (NopRecorder) RecordLastPrice(string, float64) {}
func (NopRecorder) RecordRetrain(string, bool)      {}
