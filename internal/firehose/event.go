// Package firehose adapts Kinesis Data Firehose transformation events
// to batch processing.
package firehose

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/valyala/fastjson"
)

// ErrInvalidEvent is returned for events that cannot be decoded.
var ErrInvalidEvent = errors.New("invalid firehose event")

// Event is a Firehose data transformation request.
type Event struct {
	InvocationID      string
	DeliveryStreamARN string
	Region            string
	Records           []EventRecord
}

// EventRecord is one record of an Event. Data is already base64 decoded.
type EventRecord struct {
	RecordID                    string
	ApproximateArrivalTimestamp time.Time
	Data                        []byte
}

// Response is the transformation result returned to Firehose.
type Response struct {
	Records []ResponseRecord `json:"records"`
}

// ResponseRecord is one record of a Response. Data is base64 encoded
// by encoding/json. Result is omitted unless annotation is enabled.
type ResponseRecord struct {
	RecordID string  `json:"recordId"`
	Result   *string `json:"result,omitempty"`
	Data     []byte  `json:"data"`
}

var parserPool fastjson.ParserPool

// DecodeEvent parses the JSON body of a transformation request.
func DecodeEvent(body []byte) (*Event, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrInvalidEvent, v.Type())
	}

	ev := &Event{
		InvocationID:      string(v.GetStringBytes("invocationId")),
		DeliveryStreamARN: string(v.GetStringBytes("deliveryStreamArn")),
		Region:            string(v.GetStringBytes("region")),
	}

	records := v.Get("records")
	if records == nil || records.Type() == fastjson.TypeNull {
		return ev, nil
	}
	items, err := records.Array()
	if err != nil {
		return nil, fmt.Errorf("%w: records: %v", ErrInvalidEvent, err)
	}

	ev.Records = make([]EventRecord, 0, len(items))
	for i, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, fmt.Errorf("%w: records[%d]: %v", ErrInvalidEvent, i, err)
		}
		ev.Records = append(ev.Records, rec)
	}
	return ev, nil
}

func decodeRecord(v *fastjson.Value) (EventRecord, error) {
	id := v.Get("recordId")
	if id == nil {
		return EventRecord{}, errors.New("missing recordId")
	}
	idBytes, err := id.StringBytes()
	if err != nil {
		return EventRecord{}, fmt.Errorf("recordId: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(string(v.GetStringBytes("data")))
	if err != nil {
		return EventRecord{}, fmt.Errorf("data: %w", err)
	}

	rec := EventRecord{RecordID: string(idBytes), Data: data}
	if ms := v.GetInt64("approximateArrivalTimestamp"); ms > 0 {
		rec.ApproximateArrivalTimestamp = time.UnixMilli(ms).UTC()
	}
	return rec, nil
}
