// SPDX-License-Identifier: MIT
/*
Package monitor manages named, independently activatable detector instances.
The Manager is the single owner of every instance it spawns: transports and
the TUI only ever see snapshot copies, never live detector state.
*/
package monitor

import (
	"fmt"
	"sync"

	"tempo/internal/config"
	"tempo/internal/detect"
)

// Entry is a read-only snapshot of one managed monitor. Copies are handed to
// callers; mutating one has no effect on the manager.
type Entry struct {
	ID     uint32                 `json:"id"`
	Name   string                 `json:"name"`
	Active bool                   `json:"active"`
	Result detect.DetectionResult `json:"result"`
}

// pendingReporter is implemented by buffered inputs that can report how many
// captured samples are waiting. UpdateAll drains at most that many, so a slow
// cycle never reads past real data.
type pendingReporter interface {
	Pending() int
}

type monitorEntry struct {
	id     uint32
	name   string
	active bool
	det    *detect.Detector
}

// Manager owns zero or more detector instances keyed by a stable numeric ID.
// IDs increase monotonically and are never reused within a process lifetime,
// so a removed monitor's ID stays dead.
//
// All methods are safe for concurrent use. The expected shape is still one
// writer (the run loop calling UpdateAll) with transports reading snapshots;
// the mutex makes that shape safe rather than load-bearing.
type Manager struct {
	mu    sync.Mutex
	opts  config.Options
	input detect.AudioInput
	clock detect.Clock

	nextID           uint32
	order            []uint32
	monitors         map[uint32]*monitorEntry
	samplesPerUpdate int
}

// NewManager returns a manager that constructs every spawned detector with
// the given options, input, and clock. pollIntervalMS is the cadence UpdateAll
// is called at; the per-cycle drain budget is sized to consume exactly that
// much audio, so the capture ring neither backlogs nor runs dry. A value <= 0
// falls back to the default cadence. The options are validated once here;
// Spawn never re-validates.
func NewManager(opts config.Options, input detect.AudioInput, clock detect.Clock, pollIntervalMS int64) (*Manager, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if input == nil {
		return nil, fmt.Errorf("monitor manager requires an audio input")
	}
	if clock == nil {
		clock = detect.NewMonotonicClock()
	}
	if pollIntervalMS <= 0 {
		pollIntervalMS = config.DefaultPollIntervalMS
	}
	return &Manager{
		opts:     opts,
		input:    input,
		clock:    clock,
		monitors: make(map[uint32]*monitorEntry),
		samplesPerUpdate: int(opts.SampleRateHz *
			float64(pollIntervalMS) / 1000.0),
	}, nil
}

// Spawn constructs a new detector instance and returns its ID. An empty name
// gets a generated one. New monitors start active.
func (m *Manager) Spawn(name string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	det, err := detect.NewDetector(m.opts, m.input, m.clock)
	if err != nil {
		return 0, err
	}

	m.nextID++
	id := m.nextID
	if name == "" {
		name = fmt.Sprintf("monitor-%d", id)
	}
	m.monitors[id] = &monitorEntry{id: id, name: name, active: true, det: det}
	m.order = append(m.order, id)
	return id, nil
}

// Remove destroys the monitor with the given ID. Returns false for an
// unknown ID. The ID is retired permanently.
func (m *Manager) Remove(id uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.monitors[id]; !ok {
		return false
	}
	delete(m.monitors, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the latest result for an active monitor. Unknown and inactive
// IDs both report not-found; inactive monitors hold stale results that must
// not be served as current.
func (m *Manager) Get(id uint32) (detect.DetectionResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.monitors[id]
	if !ok || !e.active {
		return detect.DetectionResult{}, false
	}
	return e.det.Result(), true
}

// SetActive activates or deactivates a monitor. Returns false for an
// unknown ID. Deactivation freezes the instance; it stops receiving samples
// until reactivated.
func (m *Manager) SetActive(id uint32, active bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.monitors[id]
	if !ok {
		return false
	}
	e.active = active
	return true
}

// Rename changes a monitor's display name. Returns false for an unknown ID
// or an empty name.
func (m *Manager) Rename(id uint32, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.monitors[id]
	if !ok || name == "" {
		return false
	}
	e.name = name
	return true
}

// Reset clears the detector history of one monitor, keeping its
// configuration, name, and active flag. Returns false for an unknown ID.
func (m *Manager) Reset(id uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.monitors[id]
	if !ok {
		return false
	}
	e.det.Reset()
	return true
}

// List returns snapshots of every monitor in spawn order, including inactive
// ones (their Result is the last one computed while active).
func (m *Manager) List() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Count returns the number of managed monitors.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.monitors)
}

// UpdateAll runs one processing cycle: it drains pending input samples into
// every active monitor, refreshes each active monitor's result, and returns
// snapshots of all monitors. Inactive monitors cost nothing. Skipping a
// cycle is always safe; state only changes through explicit feeding.
func (m *Manager) UpdateAll() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := false
	for _, e := range m.monitors {
		if e.active {
			active = true
			break
		}
	}

	if active && m.input.IsInitialized() {
		n := m.samplesPerUpdate
		if p, ok := m.input.(pendingReporter); ok {
			if pending := p.Pending(); pending < n {
				n = pending
			}
		}
		for i := 0; i < n; i++ {
			v := m.input.ReadSample()
			for _, id := range m.order {
				if e := m.monitors[id]; e.active {
					e.det.Feed(v)
				}
			}
		}
	}

	for _, id := range m.order {
		if e := m.monitors[id]; e.active {
			e.det.Detect()
		}
	}
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, id := range m.order {
		e := m.monitors[id]
		out = append(out, Entry{
			ID:     e.id,
			Name:   e.name,
			Active: e.active,
			Result: e.det.Result(),
		})
	}
	return out
}
