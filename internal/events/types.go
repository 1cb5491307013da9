package events

// Event enumerates high-level topics inside the leverage core.
type Event string

const (
	EventCalculationSaved   Event = "calculation.saved"
	EventCalculationDeleted Event = "calculation.deleted"
	EventHistoryCleared     Event = "history.cleared"
)
