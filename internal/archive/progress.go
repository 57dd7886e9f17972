package archive

// Progress receives extraction progress. Implementations own presentation;
// extractors only promise a non-decreasing current that never exceeds total.
type Progress interface {
	Update(current, total int)
	Finish(message string)
}

// NopProgress discards all updates.
type NopProgress struct{}

func (NopProgress) Update(int, int) {}
func (NopProgress) Finish(string)   {}

// counter tracks processed entries against a total and forwards clamped
// positions to a Progress.
type counter struct {
	sink  Progress
	total int
	done  int
}

func newCounter(sink Progress, total int) *counter {
	if sink == nil {
		sink = NopProgress{}
	}
	return &counter{sink: sink, total: total}
}

func (c *counter) step() {
	c.done = min(c.done+1, c.total)
	c.sink.Update(c.done, c.total)
}

func (c *counter) finish(message string) {
	c.sink.Finish(message)
}
