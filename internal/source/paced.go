// SPDX-License-Identifier: MIT
package source

import "time"

// Paced releases at most one frame per period, so file and synthetic sources
// run at the rate a microphone would deliver.
type Paced struct {
	src  Source
	next time.Time
	per  time.Duration
}

func NewPaced(src Source, period time.Duration) *Paced {
	return &Paced{src: src, per: period}
}

func (p *Paced) Acquire(frame []uint16) error {
	now := time.Now()
	if p.next.IsZero() || now.Sub(p.next) > p.per {
		// First frame, or we fell behind: restart the schedule.
		p.next = now
	} else if wait := p.next.Sub(now); wait > 0 {
		time.Sleep(wait)
	}
	p.next = p.next.Add(p.per)
	return p.src.Acquire(frame)
}

// Initialize forwards to the wrapped source.
func (p *Paced) Initialize() error { return initialize(p.src) }

func initialize(src Source) error {
	if i, ok := src.(Initializer); ok {
		return i.Initialize()
	}
	return nil
}
