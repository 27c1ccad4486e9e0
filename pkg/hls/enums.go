package hls

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StateCode is the code carried by every response envelope.
type StateCode int

// Codes returned by the historian.
const (
	StateSuccess             StateCode = 0
	StateQueryTimeout        StateCode = 4
	StateOutOfMemory         StateCode = 5
	StateJSONFormatError     StateCode = 3014
	StateParameterError      StateCode = 3015
	StateStartAfterEnd       StateCode = 3016
	StateCompressionFailure  StateCode = 3017
	StateTooManyTags         StateCode = 3018
	StateTimeRangeTooLarge   StateCode = 3019
	StateTooManyValues       StateCode = 3020
	StateParameterTypeError  StateCode = 3021
	StateParameterValueError StateCode = 3022
	StateNoAggregateSelected StateCode = 3023
	StateEmptyTagList        StateCode = 3024
	StateTimeInFuture        StateCode = 3025
	StateNotFound            StateCode = 4001
	StateContentTypeNotJSON  StateCode = 4002
	StateTokenInvalid        StateCode = 4004
	StateReplyNotJSON        StateCode = 4005
	StateDecompressFailed    StateCode = 4006
	StateHistorianNotBound   StateCode = 4007
)

var stateDescriptions = map[StateCode]string{
	StateSuccess:             "success",
	StateQueryTimeout:        "query timeout",
	StateOutOfMemory:         "out of memory",
	StateJSONFormatError:     "malformed json",
	StateParameterError:      "parameter error, some fields do not exist",
	StateStartAfterEnd:       "start time cannot be after end time",
	StateCompressionFailure:  "data compression failed",
	StateTooManyTags:         "tag count exceeds the maximum",
	StateTimeRangeTooLarge:   "time range exceeds the maximum",
	StateTooManyValues:       "value count exceeds the maximum",
	StateParameterTypeError:  "parameter type error",
	StateParameterValueError: "parameter value error",
	StateNoAggregateSelected: "all query fields are false",
	StateEmptyTagList:        "tag list is empty",
	StateTimeInFuture:        "start or end time is later than now",
	StateNotFound:            "invalid URL",
	StateContentTypeNotJSON:  "content type is not json",
	StateTokenInvalid:        "invalid token",
	StateReplyNotJSON:        "reply is not valid json",
	StateDecompressFailed:    "reply decompression failed",
	StateHistorianNotBound:   "protocol group is not bound to a historian",
}

// Description returns the human readable meaning of the code.
func (c StateCode) Description() string {
	if d, ok := stateDescriptions[c]; ok {
		return d
	}

	return "unknown state code"
}

// Known reports whether c is one of the documented codes.
func (c StateCode) Known() bool {
	_, ok := stateDescriptions[c]

	return ok
}

// String returns the declared wire form of the code.
func (c StateCode) String() string { return strconv.Itoa(int(c)) }

func (c StateCode) MarshalJSON() ([]byte, error) { return marshalCode(int(c)) }

func (c *StateCode) UnmarshalJSON(data []byte) error {
	v, err := unmarshalCode(data)
	*c = StateCode(v)

	return err
}

// TagType is the data type of a tag.
type TagType int

const (
	TagTypeNotExist TagType = -3
	TagTypeBool     TagType = 0
	TagTypeByte     TagType = 1
	TagTypeWord     TagType = 2
	TagTypeDWord    TagType = 3
	TagTypeSByte    TagType = 4
	TagTypeSWord    TagType = 5
	TagTypeSDWord   TagType = 6
	TagTypeSingle   TagType = 7
	TagTypeDouble   TagType = 8
	TagTypeString   TagType = 18
)

var tagTypeNames = map[TagType]string{
	TagTypeNotExist: "tag name does not exist",
	TagTypeBool:     "BOOL",
	TagTypeByte:     "BYTE",
	TagTypeWord:     "WORD",
	TagTypeDWord:    "DWORD",
	TagTypeSByte:    "SBYTE",
	TagTypeSWord:    "SWORD",
	TagTypeSDWord:   "SDWORD",
	TagTypeSingle:   "SINGLE",
	TagTypeDouble:   "DOUBLE",
	TagTypeString:   "STRING",
}

// Name returns the type name, e.g. "DOUBLE".
func (t TagType) Name() string {
	if n, ok := tagTypeNames[t]; ok {
		return n
	}

	return "UNKNOWN"
}

// String returns the declared wire form of the type.
func (t TagType) String() string { return strconv.Itoa(int(t)) }

func (t TagType) MarshalJSON() ([]byte, error) { return marshalCode(int(t)) }

func (t *TagType) UnmarshalJSON(data []byte) error {
	v, err := unmarshalCode(data)
	*t = TagType(v)

	return err
}

// Quality is the quality flag attached to a value.
type Quality int

const (
	QualityBad  Quality = 0
	QualityGood Quality = 1
)

// Good reports whether the value is usable.
func (q Quality) Good() bool { return q == QualityGood }

// String returns the declared wire form of the quality.
func (q Quality) String() string { return strconv.Itoa(int(q)) }

func (q Quality) MarshalJSON() ([]byte, error) { return marshalCode(int(q)) }

func (q *Quality) UnmarshalJSON(data []byte) error {
	v, err := unmarshalCode(data)
	*q = Quality(v)

	return err
}

// Enum codes are written as strings so the wire form never depends on
// declaration order, and read back from either strings or numbers.
func marshalCode(v int) ([]byte, error) {
	return json.Marshal(strconv.Itoa(v))
}

func unmarshalCode(data []byte) (int, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == "" {
		return 0, nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string

		err := json.Unmarshal(data, &s)
		if err != nil {
			return 0, fmt.Errorf("decoding enum code: %w", err)
		}

		raw = strings.TrimSpace(s)
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("decoding enum code %q: %w", raw, err)
	}

	return v, nil
}
