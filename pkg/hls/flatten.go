package hls

import (
	"strings"
	"time"
)

// Sample is one time/value pair extracted from a history series.
type Sample struct {
	Time  time.Time `json:"time"  yaml:"time"`
	Value string    `json:"value" yaml:"value"`
}

// AggregateSelector picks one statistic out of a history point.
type AggregateSelector func(HDBPoint) string

// Selectors for the four statistics.
var (
	SelectAvg   AggregateSelector = func(p HDBPoint) string { return p.TagValueAVG }
	SelectMin   AggregateSelector = func(p HDBPoint) string { return p.TagValueMIN }
	SelectMax   AggregateSelector = func(p HDBPoint) string { return p.TagValueMAX }
	SelectBound AggregateSelector = func(p HDBPoint) string { return p.TagValueBound }
)

// FlattenHistory maps each tag of the result to its samples for one
// statistic. Values are trimmed; the server pads them with blanks.
func FlattenHistory(result *HistoryResult, selector AggregateSelector) map[string][]Sample {
	out := make(map[string][]Sample, len(result.Data.HDBTagValueList))

	for _, series := range result.Data.HDBTagValueList {
		out[series.TagName] = FlattenSeries(series.OneTagHDBValueList, selector)
	}

	return out
}

// FlattenSeries converts one tag's points to samples.
func FlattenSeries(points []HDBPoint, selector AggregateSelector) []Sample {
	samples := make([]Sample, 0, len(points))

	for _, p := range points {
		samples = append(samples, Sample{
			Time:  p.TagValueTime.Time,
			Value: strings.TrimSpace(selector(p)),
		})
	}

	return samples
}

// FlattenLiveValues maps tag names to their trimmed current value.
func FlattenLiveValues(values []DDBTagValue) map[string]string {
	out := make(map[string]string, len(values))

	for _, v := range values {
		out[v.TagName] = strings.TrimSpace(v.TagValue)
	}

	return out
}
