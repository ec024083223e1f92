package firehose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/juliosaraiva/firehose-log2json/internal/batch"
)

// Handler answers Firehose transformation requests.
type Handler struct {
	processor *batch.Processor
	logger    *slog.Logger
}

// NewHandler creates a Handler backed by processor.
func NewHandler(processor *batch.Processor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{processor: processor, logger: logger}
}

// Handle transforms every record of ev. The response holds exactly one
// record per event record, in the same order.
func (h *Handler) Handle(ctx context.Context, ev *Event) (*Response, error) {
	in := lo.Map(ev.Records, func(r EventRecord, _ int) batch.RawRecord {
		return batch.RawRecord{ID: r.RecordID, Data: r.Data}
	})

	out, err := h.processor.ProcessContext(ctx, in)
	if err != nil {
		return nil, err
	}

	h.logger.Info("firehose batch transformed",
		"invocation_id", ev.InvocationID,
		"stream", ev.DeliveryStreamARN,
		"records", len(out),
	)

	return &Response{
		Records: lo.Map(out, func(r batch.OutputRecord, _ int) ResponseRecord {
			rr := ResponseRecord{RecordID: r.ID, Data: r.Data}
			if r.Result != nil {
				rr.Result = lo.ToPtr(string(*r.Result))
			}
			return rr
		}),
	}, nil
}

// HandleJSON decodes a request body, handles it and encodes the response.
func (h *Handler) HandleJSON(ctx context.Context, body []byte) ([]byte, error) {
	ev, err := DecodeEvent(body)
	if err != nil {
		return nil, err
	}
	resp, err := h.Handle(ctx, ev)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return out, nil
}
