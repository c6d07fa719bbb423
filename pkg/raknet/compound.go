package raknet

import "sync"

// compoundEntry is the fixed-size vector of fragment slots for one
// compound-id, complete once no slot is empty (spec.md §3
// CompoundEntry).
type compoundEntry struct {
	mu       sync.Mutex
	slots    [][]byte
	filled   int
	template Frame // carries Reliability/CompoundID/CompoundSize for reassembly
}

// CompoundCollector reassembles fragmented frames into whole frames,
// grounded on the teacher-adjacent `original_source` DashMap-keyed
// collector: one lock per compound-id so concurrent inserts for
// distinct compound-ids share only the brief map lookup, never the
// slot assignment (spec.md §4.3).
type CompoundCollector struct {
	mu        sync.Mutex
	compounds map[uint16]*compoundEntry
}

// NewCompoundCollector creates an empty collector.
func NewCompoundCollector() *CompoundCollector {
	return &CompoundCollector{compounds: make(map[uint16]*compoundEntry)}
}

// Insert is the sole entry point (spec.md §4.3). It returns the
// reassembled frame once the compound identified by frame.CompoundID
// is complete, or ok=false while fragments are still outstanding. A
// fragment whose CompoundIndex is out of range for its CompoundSize is
// dropped as malformed.
func (c *CompoundCollector) Insert(frame Frame) (Frame, bool) {
	if frame.CompoundIndex >= frame.CompoundSize {
		return Frame{}, false
	}

	c.mu.Lock()
	entry, ok := c.compounds[frame.CompoundID]
	if !ok {
		entry = &compoundEntry{
			slots:    make([][]byte, frame.CompoundSize),
			template: frame,
		}
		c.compounds[frame.CompoundID] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	complete := false
	if entry.slots[frame.CompoundIndex] == nil {
		entry.slots[frame.CompoundIndex] = frame.Body
		entry.filled++
		complete = entry.filled == len(entry.slots)
	}
	var assembled Frame
	if complete {
		assembled = entry.template
		total := 0
		for _, s := range entry.slots {
			total += len(s)
		}
		body := make([]byte, 0, total)
		for _, s := range entry.slots {
			body = append(body, s...)
		}
		assembled.Body = body
		assembled.IsCompound = false
		assembled.CompoundIndex = 0
		assembled.CompoundSize = 0
	}
	entry.mu.Unlock()

	if complete {
		c.mu.Lock()
		delete(c.compounds, frame.CompoundID)
		c.mu.Unlock()
		return assembled, true
	}
	return Frame{}, false
}
