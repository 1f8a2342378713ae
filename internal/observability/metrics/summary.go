package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// TurnSummary aggregates the turn counters for the dashboard stats panel.
type TurnSummary struct {
	Turns       uint64            `json:"turns"`
	ByOutcome   map[string]uint64 `json:"by_outcome"`
	Escalations uint64            `json:"escalations"`
	MeanSeconds float64           `json:"mean_turn_seconds"`
}

// Summarize reads the assistant collectors back out of gatherer.
func Summarize(gatherer prometheus.Gatherer) TurnSummary {
	summary := TurnSummary{ByOutcome: map[string]uint64{}}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mfs, err := gatherer.Gather()
	if err != nil {
		return summary
	}

	var durationSum float64
	var durationCount uint64
	for _, mf := range mfs {
		if mf == nil {
			continue
		}
		switch mf.GetName() {
		case namespace + "_assistant_turns_total":
			for _, metric := range mf.Metric {
				n := uint64(metric.GetCounter().GetValue())
				summary.Turns += n
				summary.ByOutcome[labelValue(metric, "outcome")] += n
			}
		case namespace + "_assistant_escalations_total":
			for _, metric := range mf.Metric {
				summary.Escalations += uint64(metric.GetCounter().GetValue())
			}
		case namespace + "_assistant_turn_duration_seconds":
			for _, metric := range mf.Metric {
				h := metric.GetHistogram()
				durationSum += h.GetSampleSum()
				durationCount += h.GetSampleCount()
			}
		}
	}
	if durationCount > 0 {
		summary.MeanSeconds = durationSum / float64(durationCount)
	}
	return summary
}

func labelValue(metric *dto.Metric, name string) string {
	for _, lp := range metric.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
