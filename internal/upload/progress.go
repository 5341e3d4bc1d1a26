package upload

import "sync"

// Progress maps an upload slot to its last reported percentage. Values per slot
// never decrease until Reset.
type Progress struct {
	mu        sync.Mutex
	slots     map[int]int
	listeners map[int]func(slot, percent int)
	nextID    int
}

func NewProgress() *Progress {
	return &Progress{
		slots:     make(map[int]int),
		listeners: make(map[int]func(slot, percent int)),
	}
}

// Update records percent for slot and notifies listeners. Values are clamped to
// [0, 100]; an update lower than the stored value is dropped.
func (p *Progress) Update(slot, percent int) bool {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	p.mu.Lock()
	if last, ok := p.slots[slot]; ok && percent <= last {
		p.mu.Unlock()
		return false
	}
	p.slots[slot] = percent
	listeners := p.listenersLocked()
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(slot, percent)
	}
	return true
}

func (p *Progress) Get(slot int) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	percent, ok := p.slots[slot]
	return percent, ok
}

func (p *Progress) Snapshot() map[int]int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[int]int, len(p.slots))
	for slot, percent := range p.slots {
		out[slot] = percent
	}
	return out
}

func (p *Progress) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slots = make(map[int]int)
}

// Subscribe registers fn for every accepted update and returns a function that
// removes it.
func (p *Progress) Subscribe(fn func(slot, percent int)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Progress) listenersLocked() []func(slot, percent int) {
	if len(p.listeners) == 0 {
		return nil
	}
	out := make([]func(slot, percent int), 0, len(p.listeners))
	for _, fn := range p.listeners {
		out = append(out, fn)
	}
	return out
}
