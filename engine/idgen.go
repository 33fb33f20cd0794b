package engine

// IDGenerator issues requirement and range ids. Ids are unique within a day
// and strictly increasing across the process lifetime; rollover never reuses
// them. Zero is never issued, so 0 can stand for "no id" in reasons.
type IDGenerator struct {
	lastID uint64
}

func (g *IDGenerator) NextID() uint64 {
	g.lastID++
	return g.lastID
}
