// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package progress tracks per-stage counters, rates, and recent errors for
// the orchestrator's scan/ingest/optimize pipeline, and renders them for
// the CLI's progress display.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// State is a stage's position in its Uninitialized -> Running -> Ended
// lifecycle.
type State int

const (
	Uninitialized State = iota
	Running
	Ended
)

const (
	defaultSampleSize = 10
	defaultErrorSize  = 50
)

type sample struct {
	at    time.Duration
	count uint64
}

// Info tracks one stage's state, element count, rolling rate samples, and
// the most recent errors recorded against it.
type Info struct {
	mu sync.RWMutex

	label   string
	state   State
	start   time.Time
	end     time.Time
	count   uint64
	samples []sample

	sampleSize int
	errorSize  int
	errors     []error
}

func newInfo(label string) *Info {
	return &Info{label: label, sampleSize: defaultSampleSize, errorSize: defaultErrorSize}
}

// Start transitions Uninitialized -> Running, capturing the start time.
// It is a no-op if the stage is not Uninitialized.
func (i *Info) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != Uninitialized {
		return
	}

	i.state = Running
	i.start = time.Now()
}

// End transitions Running -> Ended, capturing the end time. It is a no-op
// if the stage is not Running.
func (i *Info) End() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != Running {
		return
	}

	i.state = Ended
	i.end = time.Now()
}

// Add bumps the stage's element count by n. Silent no-op outside Running.
func (i *Info) Add(n uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != Running {
		return
	}

	i.count += n
}

// RecordError appends err to the stage's bounded error ring buffer. Silent
// no-op outside Running.
func (i *Info) RecordError(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != Running {
		return
	}

	i.errors = append(i.errors, err)
	if len(i.errors) > i.errorSize {
		i.errors = i.errors[len(i.errors)-i.errorSize:]
	}
}

// Errors returns a copy of the stage's recently recorded errors.
func (i *Info) Errors() []error {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]error, len(i.errors))
	copy(out, i.errors)

	return out
}

// Tick snapshots the current elapsed time and count into the rolling
// sample window, used to compute a recent throughput rate. Silent no-op
// outside Running.
func (i *Info) Tick() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.state != Running {
		return
	}

	i.samples = append([]sample{{at: time.Since(i.start), count: i.count}}, i.samples...)
	if len(i.samples) > i.sampleSize {
		i.samples = i.samples[:i.sampleSize]
	}
}

// Count returns the stage's current element count.
func (i *Info) Count() uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.count
}

// Rate returns the stage's most recent rolling-window throughput, in
// elements per second, and whether enough samples exist to compute one.
func (i *Info) Rate() (float64, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.samples) < 2 {
		return 0, false
	}

	first, last := i.samples[0], i.samples[len(i.samples)-1]

	elapsed := first.at.Seconds() - last.at.Seconds()
	if elapsed <= 0 {
		return 0, false
	}

	return float64(first.count-last.count) / elapsed, true
}

func (i *Info) String() string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	d := hms(i.duration())

	rate, ok := i.rateLocked()
	if !ok {
		return fmt.Sprintf("[%s %s] %10s (%6s/s)", i.label, d, "---", "---")
	}

	return fmt.Sprintf("[%s %s] %10d (%6.0f/s)", i.label, d, i.count, rate)
}

func (i *Info) duration() (time.Duration, bool) {
	switch {
	case !i.start.IsZero() && !i.end.IsZero():
		return i.end.Sub(i.start), true
	case !i.start.IsZero():
		return time.Since(i.start), true
	default:
		return 0, false
	}
}

func (i *Info) rateLocked() (float64, bool) {
	if len(i.samples) < 2 {
		return 0, false
	}

	first, last := i.samples[0], i.samples[len(i.samples)-1]

	elapsed := first.at.Seconds() - last.at.Seconds()
	if elapsed <= 0 {
		return 0, false
	}

	return float64(first.count-last.count) / elapsed, true
}

func hms(d time.Duration, ok bool) string {
	if !ok {
		return "--:--:--"
	}

	t := int64(d.Seconds())
	s := t % 60
	m := (t / 60) % 60
	h := t / 3600

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Progress tracks a fixed, ordered set of named stages.
type Progress struct {
	mu     sync.RWMutex
	stages []string
	info   map[string]*Info
}

// New seeds a Progress tracker with stages, in display order.
func New(stages ...string) *Progress {
	p := &Progress{
		stages: append([]string(nil), stages...),
		info:   make(map[string]*Info, len(stages)),
	}

	for _, s := range stages {
		p.info[s] = newInfo(s)
	}

	return p
}

// Stage returns the named stage's Info, or nil if it was never registered.
func (p *Progress) Stage(name string) *Info {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.info[name]
}

// Start starts the named stage.
func (p *Progress) Start(name string) {
	if i := p.Stage(name); i != nil {
		i.Start()
	}
}

// End ends the named stage.
func (p *Progress) End(name string) {
	if i := p.Stage(name); i != nil {
		i.End()
	}
}

// Add bumps the named stage's count by n.
func (p *Progress) Add(name string, n uint64) {
	if i := p.Stage(name); i != nil {
		i.Add(n)
	}
}

// Tick snapshots every registered stage's rolling rate sample; the
// orchestrator's monitor task calls this once a second.
func (p *Progress) Tick() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, s := range p.stages {
		p.info[s].Tick()
	}
}

func (p *Progress) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var b strings.Builder

	for _, s := range p.stages {
		b.WriteString(p.info[s].String())
		b.WriteByte('\n')
	}

	return b.String()
}
