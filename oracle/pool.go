package oracle

import (
	"context"
	"fmt"
)

// Pool is a fixed set of thread-owned oracle instances, one per worker,
// mirroring preendgame.Solver.Init's one-endgame-solver-per-thread
// ownership model: workers never share an Oracle.
type Pool struct {
	oracles []Oracle
}

// NewPipePool starts n independent oracle subprocesses, one per worker,
// all invoked with the same cmdline. If starting any of them fails, the
// ones already started are torn down and the error is returned.
func NewPipePool(ctx context.Context, cmdline string, n int) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("oracle: pool size must be positive, got %d", n)
	}
	oracles := make([]Oracle, 0, n)
	for i := 0; i < n; i++ {
		o, err := NewPipeOracle(ctx, cmdline)
		if err != nil {
			for _, started := range oracles {
				_ = started.Close()
			}
			return nil, fmt.Errorf("oracle: starting worker %d: %w", i, err)
		}
		oracles = append(oracles, o)
	}
	return &Pool{oracles: oracles}, nil
}

// NewStubPool wraps n StubOracle instances built by newOracle, useful for
// tests that want one independent stub per simulated worker thread.
func NewStubPool(n int, newOracle func(worker int) Oracle) *Pool {
	oracles := make([]Oracle, n)
	for i := 0; i < n; i++ {
		oracles[i] = newOracle(i)
	}
	return &Pool{oracles: oracles}
}

// Size returns the number of oracles in the pool.
func (p *Pool) Size() int {
	return len(p.oracles)
}

// At returns the oracle owned by worker thread i.
func (p *Pool) At(i int) Oracle {
	return p.oracles[i]
}

// Close tears down every oracle in the pool, collecting the first error
// encountered but always attempting to close all of them.
func (p *Pool) Close() error {
	var firstErr error
	for _, o := range p.oracles {
		if err := o.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
