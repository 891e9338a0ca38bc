package ir

// Version constants for the journal format and the marketplace.
const (
	// JournalVersion is the entry encoding version written to the journal.
	JournalVersion = "1"

	// MarketVersion is the marketplace implementation version.
	MarketVersion = "0.1.0"
)
