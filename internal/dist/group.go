package dist

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/born-ml/ascent/internal/tensor"
)

// Group is an in-process collective over a fixed number of workers, each
// running in its own goroutine. It serves tests and single-host
// multi-worker training; a transport-backed Reducer slots into the same
// interface for multi-host runs.
//
// Each collective call blocks until all members of the group have made the
// matching call. A member whose cycle state diverges will block its peers
// forever; the group does not try to detect that.
type Group struct {
	size    int
	mu      sync.Mutex
	cond    *sync.Cond
	handed  int
	gen     uint64
	arrived int

	accTensors map[string]*tensor.Dense
	accInt     int
	accErr     error

	resTensors map[string]*tensor.Dense
	resInt     int
	resErr     error
}

// NewGroup creates a collective group for size workers.
func NewGroup(size int) (*Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be >= 1, got %d", size)
	}
	g := &Group{size: size}
	g.cond = sync.NewCond(&g.mu)
	return g, nil
}

// Member hands out the next member handle. Calling it more than size times
// returns an error.
func (g *Group) Member() (*Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.handed >= g.size {
		return nil, fmt.Errorf("group already has %d members", g.size)
	}
	m := &Member{id: uuid.New(), rank: g.handed, group: g}
	g.handed++
	return m, nil
}

// exchange runs one barrier round: merge folds this member's contribution
// into the accumulator under the group lock; once all members have merged,
// the accumulator is published and everyone wakes with the same result.
func (g *Group) exchange(merge func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	gen := g.gen
	merge()
	g.arrived++

	if g.arrived == g.size {
		g.resTensors, g.resInt, g.resErr = g.accTensors, g.accInt, g.accErr
		g.accTensors, g.accInt, g.accErr = nil, 0, nil
		g.arrived = 0
		g.gen++
		g.cond.Broadcast()
		return
	}
	for gen == g.gen {
		g.cond.Wait()
	}
}

// Member is one worker's handle on the group. It implements Reducer.
type Member struct {
	id    uuid.UUID
	rank  int
	group *Group
}

// ID returns the member's identity tag, used in diagnostics.
func (m *Member) ID() string {
	return m.id.String()
}

// Rank returns the member's position within the group.
func (m *Member) Rank() int {
	return m.rank
}

// Size returns the group size.
func (m *Member) Size() int {
	return m.group.size
}

// AllreduceSum sums the named tensors across all members.
func (m *Member) AllreduceSum(grads map[string]*tensor.Dense) (map[string]*tensor.Dense, error) {
	g := m.group
	g.exchange(func() {
		if g.accErr != nil {
			return
		}
		if g.accTensors == nil {
			g.accTensors = make(map[string]*tensor.Dense, len(grads))
			for name, t := range grads {
				g.accTensors[name] = t.Clone()
			}
			return
		}
		if len(g.accTensors) != len(grads) {
			g.accErr = fmt.Errorf("worker %s contributed %d tensors, peers contributed %d",
				m.id, len(grads), len(g.accTensors))
			return
		}
		for name, t := range grads {
			acc, ok := g.accTensors[name]
			if !ok {
				g.accErr = fmt.Errorf("worker %s contributed unknown tensor %q", m.id, name)
				return
			}
			if err := tensor.AddInto(acc, t); err != nil {
				g.accErr = fmt.Errorf("worker %s: %w", m.id, err)
				return
			}
		}
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resErr != nil {
		return nil, g.resErr
	}
	// Every member gets its own copy of the agreed result.
	out := make(map[string]*tensor.Dense, len(g.resTensors))
	for name, t := range g.resTensors {
		out[name] = t.Clone()
	}
	return out, nil
}

// AllreduceInt sums an integer across all members.
func (m *Member) AllreduceInt(v int) (int, error) {
	g := m.group
	g.exchange(func() {
		g.accInt += v
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resInt, nil
}
