// Package batch transforms ordered batches of records concurrently.
package batch

// RawRecord is one input record. ID is opaque and copied verbatim.
type RawRecord struct {
	ID   string
	Data []byte
}

// Result annotates how an output record was produced.
type Result string

// Result values, named after the Firehose transformation results.
const (
	ResultOK               Result = "Ok"
	ResultProcessingFailed Result = "ProcessingFailed"
)

// OutputRecord is the output for the RawRecord with the same ID.
// Data is either transformed JSON or the original bytes.
type OutputRecord struct {
	ID     string
	Data   []byte
	Result *Result
}

// Transformed reports whether the annotation marks a successful
// transformation. Without annotation it returns false.
func (r OutputRecord) Transformed() bool {
	return r.Result != nil && *r.Result == ResultOK
}
