package manager

import (
	"hash/fnv"
	"sync"

	"github.com/teranos/composr/identifier"
)

const lockStripes = 64

// keyLocks serialises store writes per (domain, id). Keys hash onto a fixed
// set of mutexes, so unrelated keys may share a stripe.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{}
}

func (l *keyLocks) lock(domain, id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier.Join(domain, id)))
	mu := &l.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}
