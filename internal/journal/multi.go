package journal

// MultiJournal fans one record out to several journals. A failure in one
// sink does not stop the others; the first error is returned.
type MultiJournal struct {
	journals []Journal
}

// NewMultiJournal combines journals
func NewMultiJournal(journals ...Journal) *MultiJournal {
	return &MultiJournal{journals: journals}
}

func (m *MultiJournal) Record(trade ClosedTrade) error {
	var first error
	for _, j := range m.journals {
		if err := j.Record(trade); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *MultiJournal) Close() error {
	var first error
	for _, j := range m.journals {
		if err := j.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
