package markdown

// ListCounter numbers ordered list items per nesting depth
type ListCounter struct {
	counts map[int]int
}

func NewListCounter() *ListCounter {
	return &ListCounter{counts: map[int]int{}}
}

// Next returns the next item number at depth
func (c *ListCounter) Next(depth int) int {
	c.counts[depth]++
	return c.counts[depth]
}

// Reset restarts numbering at depth
func (c *ListCounter) Reset(depth int) {
	delete(c.counts, depth)
}
