package hls

import (
	"strconv"
	"time"
)

// Envelope is implemented by every typed response. The dispatch engine
// reads the code to detect rejected tokens.
type Envelope interface {
	ResultCode() int
	ResultMessage() string
}

// Result is the code/msg pair shared by all responses.
type Result struct {
	Code int    `json:"code" yaml:"code"`
	Msg  string `json:"msg"  yaml:"msg"`
}

func (r Result) ResultCode() int       { return r.Code }
func (r Result) ResultMessage() string { return r.Msg }

// State returns the code as a StateCode.
func (r Result) State() StateCode { return StateCode(r.Code) }

// Success reports whether the payload is usable.
func (r Result) Success() bool { return r.Code == int(StateSuccess) }

// TokenResult is the response of the token endpoint.
type TokenResult struct {
	Result

	Data TokenData `json:"Data" yaml:"data"`
}

// TokenData carries the issued token.
type TokenData struct {
	Token string `json:"token" yaml:"token"`
}

// TagsResult is the response of the tag listing endpoint.
type TagsResult struct {
	Result

	Data TagNameList `json:"Data" yaml:"data"`
}

// TagNameList is the payload of TagsResult.
type TagNameList struct {
	TagNameList []TagName `json:"TagNameList" yaml:"tag_name_list"`
}

// TagName describes one tag.
type TagName struct {
	TagDes  string `json:"TagDes"  yaml:"tag_des"`
	TagName string `json:"TagName" yaml:"tag_name"`
}

// Names returns the tag names in listing order.
func (r *TagsResult) Names() []string {
	names := make([]string, 0, len(r.Data.TagNameList))
	for _, t := range r.Data.TagNameList {
		names = append(names, t.TagName)
	}

	return names
}

// TagNameRequest names one tag in a request body.
type TagNameRequest struct {
	TagName string `json:"TagName" yaml:"tag_name"`
}

// TagNameListRequest is the body of the live value endpoint.
type TagNameListRequest struct {
	TagNameList []TagNameRequest `json:"TagNameList" yaml:"tag_name_list"`
}

// NewTagNameListRequest builds a request for the given tag names.
func NewTagNameListRequest(names ...string) *TagNameListRequest {
	return &TagNameListRequest{TagNameList: tagNameRequests(names)}
}

// Names returns the requested tag names in order.
func (r *TagNameListRequest) Names() []string {
	return requestNames(r.TagNameList)
}

// LiveValuesResult is the response of the live value endpoint.
type LiveValuesResult struct {
	Result

	Data LiveValueList `json:"data" yaml:"data"`
}

// LiveValueList is the payload of LiveValuesResult.
type LiveValueList struct {
	DDBTagValueList []DDBTagValue `json:"DDBTagValueList" yaml:"ddb_tag_value_list"`
}

// DDBTagValue is the current value of one tag. TagName is not sent by the
// server; the client fills it in from the request order.
type DDBTagValue struct {
	TagName      string   `json:"TagName,omitempty" yaml:"tag_name,omitempty"`
	Quality      Quality  `json:"Quality"           yaml:"quality"`
	TagSize      string   `json:"TagSize"           yaml:"tag_size"`
	TagType      TagType  `json:"TagType"           yaml:"tag_type"`
	TagValue     string   `json:"TagValue"          yaml:"tag_value"`
	TagValueTime UnixTime `json:"TagValueTime"      yaml:"tag_value_time"`
}

// Aggregates selects which statistics a history query returns.
type Aggregates struct {
	Avg   bool
	Min   bool
	Max   bool
	Bound bool
}

// Any reports whether at least one statistic is selected.
func (a Aggregates) Any() bool {
	return a.Avg || a.Min || a.Max || a.Bound
}

// Common aggregate selections.
var (
	AggregateAvg   = Aggregates{Avg: true}
	AggregateMin   = Aggregates{Min: true}
	AggregateMax   = Aggregates{Max: true}
	AggregateBound = Aggregates{Bound: true}
	AggregateAll   = Aggregates{Avg: true, Min: true, Max: true, Bound: true}
)

// HistorianRequest is the body of the history endpoint.
type HistorianRequest struct {
	StartTime      UnixTime         `json:"startTime"      yaml:"start_time"`
	EndTime        UnixTime         `json:"endTime"        yaml:"end_time"`
	Interval       int64            `json:"interval"       yaml:"interval"`
	NeedQueryMAX   bool             `json:"NeedQueryMAX"   yaml:"need_query_max"`
	NeedQueryMIN   bool             `json:"NeedQueryMIN"   yaml:"need_query_min"`
	NeedQueryAVG   bool             `json:"NeedQueryAVG"   yaml:"need_query_avg"`
	NeedQueryBound bool             `json:"NeedQueryBound" yaml:"need_query_bound"`
	TagNameList    []TagNameRequest `json:"TagNameList"    yaml:"tag_name_list"`
}

// NewHistorianRequest builds a validated history request. interval is
// rounded down to whole seconds.
func NewHistorianRequest(start, end time.Time, interval time.Duration, agg Aggregates, names ...string) (*HistorianRequest, error) {
	req := &HistorianRequest{
		StartTime:      NewUnixTime(start),
		EndTime:        NewUnixTime(end),
		Interval:       int64(interval / time.Second),
		NeedQueryMAX:   agg.Max,
		NeedQueryMIN:   agg.Min,
		NeedQueryAVG:   agg.Avg,
		NeedQueryBound: agg.Bound,
		TagNameList:    tagNameRequests(names),
	}

	err := req.Validate()
	if err != nil {
		return nil, err
	}

	return req, nil
}

// Aggregates returns the statistics selected by the request.
func (r *HistorianRequest) Aggregates() Aggregates {
	return Aggregates{Avg: r.NeedQueryAVG, Min: r.NeedQueryMIN, Max: r.NeedQueryMAX, Bound: r.NeedQueryBound}
}

// Names returns the requested tag names in order.
func (r *HistorianRequest) Names() []string {
	return requestNames(r.TagNameList)
}

// Validate rejects requests the server would refuse.
func (r *HistorianRequest) Validate() error {
	if len(r.TagNameList) == 0 {
		return &ParameterError{Position: ParamBody, Name: "TagNameList", Reason: "at least one tag name is required"}
	}

	for i, t := range r.TagNameList {
		if t.TagName == "" {
			return &ParameterError{Position: ParamBody, Name: "TagNameList", Reason: "tag name at index " + strconv.Itoa(i) + " is blank"}
		}
	}

	if !r.Aggregates().Any() {
		return &ParameterError{Position: ParamBody, Name: "NeedQuery", Reason: "at least one of avg, min, max or bound must be requested"}
	}

	if !r.StartTime.IsZero() && !r.EndTime.IsZero() && r.StartTime.After(r.EndTime.Time) {
		return &ParameterError{Position: ParamBody, Name: "startTime", Reason: "start time is after end time"}
	}

	return nil
}

// HistoryResult is the response of the history endpoint.
type HistoryResult struct {
	Result

	Data HistoryValueList `json:"data" yaml:"data"`
}

// HistoryValueList is the payload of HistoryResult.
type HistoryValueList struct {
	HDBTagValueList []HDBTagValue `json:"HDBTagValueList" yaml:"hdb_tag_value_list"`
}

// HDBTagValue is the series of one tag. Index refers to the tag's position
// in the request; TagName is filled in by the client.
type HDBTagValue struct {
	TagName            string     `json:"TagName,omitempty"  yaml:"tag_name,omitempty"`
	Index              int        `json:"Index"              yaml:"index"`
	TagType            TagType    `json:"TagType"            yaml:"tag_type"`
	OneTagHDBValueList []HDBPoint `json:"OneTagHDBValueList" yaml:"values"`
}

// HDBPoint is one aggregated sample.
type HDBPoint struct {
	QualityBound  Quality  `json:"Quality_Bound"  yaml:"quality_bound"`
	QualityMAX    Quality  `json:"Quality_MAX"    yaml:"quality_max"`
	QualityMIN    Quality  `json:"Quality_MIN"    yaml:"quality_min"`
	TagValueTime  UnixTime `json:"TagValueTime"   yaml:"time"`
	TagValueAVG   string   `json:"TagValue_AVG"   yaml:"avg"`
	TagValueBound string   `json:"TagValue_Bound" yaml:"bound"`
	TagValueMAX   string   `json:"TagValue_MAX"   yaml:"max"`
	TagValueMIN   string   `json:"TagValue_MIN"   yaml:"min"`
}

func tagNameRequests(names []string) []TagNameRequest {
	out := make([]TagNameRequest, 0, len(names))
	for _, n := range names {
		out = append(out, TagNameRequest{TagName: n})
	}

	return out
}

func requestNames(list []TagNameRequest) []string {
	out := make([]string, 0, len(list))
	for _, t := range list {
		out = append(out, t.TagName)
	}

	return out
}
