package catalog

// OutcomeKind is the terminal state of processing one asset ID.
type OutcomeKind int

const (
	// AlreadyDone means the asset's metadata marker already existed, so the
	// asset was skipped without any network calls.
	AlreadyDone OutcomeKind = iota
	// NoDetails means the detail fetch failed or returned nothing usable.
	NoDetails
	// ProcessedOK means the asset ran through the full pipeline.
	ProcessedOK
	// ProcessingError means an unexpected failure was absorbed; Reason
	// carries the cause.
	ProcessingError
)

func (k OutcomeKind) String() string {
	switch k {
	case AlreadyDone:
		return "already_done"
	case NoDetails:
		return "no_details"
	case ProcessedOK:
		return "processed_ok"
	case ProcessingError:
		return "processing_error"
	default:
		return "invalid"
	}
}

// Outcome records how processing ended for a single asset. Outcomes are
// values, never errors: one bad asset must not abort the batch.
type Outcome struct {
	AssetID string
	Kind    OutcomeKind
	Reason  string
}

// ErrorOutcome builds a ProcessingError outcome from an absorbed failure.
func ErrorOutcome(assetID string, err error) Outcome {
	return Outcome{AssetID: assetID, Kind: ProcessingError, Reason: err.Error()}
}
