package batch

// rangeGroup represents a contiguous range of entries in the data region.
// All entries in a group can be fetched with a single ReadAt.
type rangeGroup struct {
	start   uint64   // Start byte offset in the data region
	end     uint64   // End byte offset (exclusive)
	entries []*Entry // Entries within this range
}

func (g *rangeGroup) size() uint64 { return g.end - g.start }

// groupAdjacentEntries groups entries that are adjacent in the data region.
//
// Entries must be sorted by offset before calling this function. Adjacent
// entries (where one ends exactly where the next begins) are combined into a
// single group until the group would exceed maxBytes; an entry larger than
// maxBytes always forms a group of its own.
//
// The entries slice must be non-empty.
func groupAdjacentEntries(entries []*Entry, maxBytes uint64) []rangeGroup {
	groups := make([]rangeGroup, 0, len(entries))
	current := newGroup(entries[0])

	for _, entry := range entries[1:] {
		entryEnd := entry.Offset() + entry.Size()
		if entry.Offset() == current.end && entryEnd-current.start <= maxBytes {
			current.end = entryEnd
			current.entries = append(current.entries, entry)
			continue
		}
		groups = append(groups, current)
		current = newGroup(entry)
	}
	return append(groups, current)
}

func newGroup(entry *Entry) rangeGroup {
	return rangeGroup{
		start:   entry.Offset(),
		end:     entry.Offset() + entry.Size(),
		entries: []*Entry{entry},
	}
}
