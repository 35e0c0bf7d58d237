package cqrs

import "sync"

const lockStripes = 256

// stripedLock serializes work per product id without keeping one mutex per
// product. Distinct ids may share a stripe.
type stripedLock struct {
	stripes [lockStripes]sync.Mutex
}

func (l *stripedLock) Lock(id uint) (unlock func()) {
	m := &l.stripes[id%lockStripes]
	m.Lock()
	return m.Unlock
}
