package contracts

// Sink persists an ordered sequence of events as a standard MIDI file. The
// write must be atomic (temp file + rename) so a partially written file is
// never visible under its final name, and idempotent to retry on error.
type Sink interface {
	Write(events []Event, path string) error
}
