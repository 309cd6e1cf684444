package testutil

import (
	"fmt"
	"sync"
)

// RunID returns the n-th identifier issued by a StubRunIDs. It has the same
// shape as the random UUIDs used for real runs.
func RunID(n int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}

// StubRunIDs issues RunID(1), RunID(2), ... and remembers what it issued.
type StubRunIDs struct {
	mu     sync.Mutex
	issued []string
}

func NewStubRunIDs() *StubRunIDs {
	return &StubRunIDs{}
}

func (g *StubRunIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := RunID(len(g.issued) + 1)
	g.issued = append(g.issued, id)
	return id
}

// Issued returns the identifiers handed out so far, oldest first.
func (g *StubRunIDs) Issued() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.issued...)
}
