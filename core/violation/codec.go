package violation

import (
	"encoding/json"
	"fmt"
)

// List is a violation slice that survives a JSON round trip. The plain
// interface slice marshals fine but cannot unmarshal, which breaks every
// consumer that replays stored audit results or repair outcomes. List tags
// each element with its kind and decodes back into the concrete variant.
type List []Violation

type taggedViolation struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

func (l List) MarshalJSON() ([]byte, error) {
	out := make([]taggedViolation, len(l))
	for i, v := range l {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = taggedViolation{Kind: v.Kind(), Data: data}
	}
	return json.Marshal(out)
}

func (l *List) UnmarshalJSON(data []byte) error {
	var tagged []taggedViolation
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	out := make(List, 0, len(tagged))
	for _, tv := range tagged {
		v, err := decodeViolation(tv)
		if err != nil {
			return err
		}
		out = append(out, v)
	}
	*l = out
	return nil
}

func decodeViolation(tv taggedViolation) (Violation, error) {
	switch tv.Kind {
	case KindUnassignedTour:
		var v UnassignedTour
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	case KindDuplicateTour:
		var v DuplicateTour
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	case KindOverlap:
		var v Overlap
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	case KindRest:
		var v InsufficientRest
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	case KindSpanRegular, KindSpanSplit:
		// Both kinds decode into SpanExceeded; Kind() re-derives the tag
		// from the block type.
		var v SpanExceeded
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	case KindSplitBreak:
		var v SplitBreakOutOfBand
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	case KindFatigue:
		var v ConsecutiveHeavyDays
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	case KindWeeklyMax:
		var v WeeklyHoursExceeded
		err := json.Unmarshal(tv.Data, &v)
		return v, err
	default:
		return nil, fmt.Errorf("unknown violation kind %q", tv.Kind)
	}
}
