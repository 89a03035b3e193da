// Package bfs drives the ply-by-ply frontier census: it owns the two
// ping-pong frontier tables, a pool of thread-owned oracles, and the
// parallel scan/drain cycle that turns H[cur] into H[nxt] one ply at a
// time.
package bfs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/c4proof/board"
	"github.com/domino14/c4proof/expand"
	"github.com/domino14/c4proof/hashtable"
	"github.com/domino14/c4proof/oracle"
	"github.com/domino14/c4proof/report"
	"github.com/domino14/c4proof/roles"
)

// MaxDepth is the last ply the census reports a row for; the main loop
// runs plies 0..MaxDepth-1, each producing the row for the next depth.
const MaxDepth = 42

// defaultChunkSize is the granularity at which a worker checks for
// cancellation while scanning a table partition.
const defaultChunkSize = 1 << 20

// childPack is one child produced during the parallel scan, buffered
// thread-locally until the single-threaded drain.
type childPack struct {
	board    board.Board49
	value2   uint8
	roleMask roles.Mask
}

// Driver owns the two frontier tables and the oracle pool, and runs the
// full 0..MaxDepth census.
type Driver struct {
	tables    [2]*hashtable.Table
	pool      *oracle.Pool
	writer    *report.Writer
	chunkSize uint64
	maxDepth  int

	shardTables [2][]*hashtable.Table
	shards      int
}

// NewDriver builds a Driver over two freshly cleared tables, a pool with
// one oracle per worker thread, and a report.Writer. tables[0] and
// tables[1] must have equal capacity; pool.Size() is the thread count.
func NewDriver(tables [2]*hashtable.Table, pool *oracle.Pool, writer *report.Writer) *Driver {
	return &Driver{
		tables:    tables,
		pool:      pool,
		writer:    writer,
		chunkSize: defaultChunkSize,
		maxDepth:  MaxDepth,
	}
}

// SetChunkSize overrides the default scan chunk size (2^20 slots).
func (d *Driver) SetChunkSize(n uint64) {
	if n > 0 {
		d.chunkSize = n
	}
}

// SetMaxDepth overrides the number of plies the main loop runs, mainly
// useful for tests that want a short, bounded census instead of the
// full 42-ply run.
func (d *Driver) SetMaxDepth(n int) {
	d.maxDepth = n
}

// SetShardedDrain switches the drain step from one single-threaded
// critical section to shards concurrent shard tables, indexed by a hash
// of the board key mod shards. It allocates two generations of shards
// partial tables, each holding 1/shards of the main tables' capacity and
// reused across plies, in addition to the two main tables, for a drain
// phase that no longer serializes every worker behind one goroutine. Passing
// shards <= 1 restores the default single critical-section drain.
func (d *Driver) SetShardedDrain(shards int) {
	d.shards = shards
}

// Run executes the depth-0 seed and the full 0..MaxDepth-1 main loop,
// emitting one report row per depth through d.writer. It returns the
// first fatal error encountered (oracle loss, table exhaustion, board
// corruption), per the fatal-condition list workers and the drain step
// can raise.
func (d *Driver) Run(ctx context.Context) error {
	sharded := d.shards > 1
	if !sharded {
		d.tables[0].Clear()
		d.tables[1].Clear()
	}

	seedOracle := d.pool.At(0)
	seedResp, err := seedOracle.Query(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("bfs: seeding depth 0: %w", err)
	}
	if seedResp.Terminal {
		return fmt.Errorf("bfs: oracle reports the empty board as terminal")
	}
	v0, err := expand.ParentValue(seedResp)
	if err != nil {
		return fmt.Errorf("bfs: seeding depth 0: %w", err)
	}
	seedValue2 := uint8(v0 + 1)
	seedValue := hashtable.PackValue(seedValue2, uint8(roles.RoleP))
	if sharded {
		if err := d.seedSharded(0, seedValue); err != nil {
			return fmt.Errorf("bfs: seeding depth 0: %w", err)
		}
	} else if err := d.tables[0].InsertMerge(0, seedValue); err != nil {
		return fmt.Errorf("bfs: seeding depth 0: %w", err)
	}

	var sol0, proof0 uint64
	if sharded {
		sol0, proof0 = d.classifySharded(0)
	} else {
		sol0, proof0 = d.classify(d.tables[0])
	}
	if err := d.writer.WriteRow(0, sol0, proof0); err != nil {
		return err
	}

	for depth := 0; depth < d.maxDepth; depth++ {
		cur := depth % 2
		nxt := (depth + 1) % 2

		var sol, proof uint64
		if d.shards > 1 {
			sol, proof, err = d.runShardedPly(ctx, depth, cur, nxt)
		} else {
			sol, proof, err = d.runPly(ctx, depth, cur, nxt)
		}
		if err != nil {
			return fmt.Errorf("bfs: ply %d: %w", depth, err)
		}
		log.Info().Int("ply", depth+1).Uint64("solution", sol).Uint64("proof", proof).
			Uint64("nodes", sol+proof).Msg("ply-complete")
		if err := d.writer.WriteRow(depth+1, sol, proof); err != nil {
			return err
		}
	}

	return nil
}

// runPly executes one ply using the default single-threaded drain.
func (d *Driver) runPly(ctx context.Context, depth, cur, nxt int) (sol, proof uint64, err error) {
	d.tables[nxt].Clear()

	threads := d.pool.Size()
	bounds := partitionBounds(d.tables[cur].Capacity(), uint64(threads))
	buffers := make([][]childPack, threads)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < threads; w++ {
		w := w
		g.Go(func() error {
			o := d.pool.At(w)
			buf, err := d.scanRangeChunked(gctx, o, d.tables[cur], depth, bounds[w].start, bounds[w].end)
			if err != nil {
				return err
			}
			buffers[w] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	for _, buf := range buffers {
		for _, c := range buf {
			packed := hashtable.PackValue(c.value2, uint8(c.roleMask))
			if err := d.tables[nxt].InsertMerge(uint64(c.board), packed); err != nil {
				return 0, 0, err
			}
		}
	}

	sol, proof = d.classify(d.tables[nxt])
	return sol, proof, nil
}

// scanRangeChunked walks [start, end) in chunkSize-sized sub-ranges,
// checking for cancellation between chunks so a lost oracle or a
// cancelled run doesn't have to wait for one worker's entire partition
// to finish scanning before unwinding.
func (d *Driver) scanRangeChunked(ctx context.Context, o oracle.Oracle, cur *hashtable.Table, depth int, start, end uint64) ([]childPack, error) {
	var buf []childPack
	for s := start; s < end; s += d.chunkSize {
		e := s + d.chunkSize
		if e > end {
			e = end
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := d.scanRange(ctx, o, cur, depth, s, e)
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}
	return buf, nil
}

// scanRange walks one worker's static slice of cur's slot array, calling
// expand.Expand for every occupied slot and accumulating children in a
// thread-local buffer. cur is never written to during the scan.
func (d *Driver) scanRange(ctx context.Context, o oracle.Oracle, cur *hashtable.Table, depth int, start, end uint64) ([]childPack, error) {
	var buf []childPack
	var scanErr error
	cur.EachRange(start, end, func(key uint64, value uint16) {
		if scanErr != nil {
			return
		}
		_, roleMask := hashtable.UnpackValue(value)
		children, err := expand.Expand(ctx, o, board.Board49(key), depth, roles.Mask(roleMask))
		if err != nil {
			scanErr = err
			return
		}
		for _, c := range children {
			buf = append(buf, childPack{board: c.Board, value2: c.Value2, roleMask: c.RoleMask})
		}
	})
	if scanErr != nil {
		return nil, scanErr
	}
	return buf, nil
}

// classify walks t once, splitting occupied slots into solution
// artifacts (role mask intersects the solution mask) and proof
// certificates (everything else).
func (d *Driver) classify(t *hashtable.Table) (sol, proof uint64) {
	t.Each(func(key uint64, value uint16) bool {
		_, roleMask := hashtable.UnpackValue(value)
		if roles.IsSolution(roles.Mask(roleMask)) {
			sol++
		} else {
			proof++
		}
		return true
	})
	return sol, proof
}

// partitionBounds splits [0, capacity) into n contiguous, disjoint,
// roughly equal index ranges, one per worker, biasing the first
// capacity%n ranges by one extra slot.
func partitionBounds(capacity, n uint64) []struct{ start, end uint64 } {
	if n == 0 {
		n = 1
	}
	bounds := make([]struct{ start, end uint64 }, n)
	chunk := capacity / n
	rem := capacity % n
	var start uint64
	for i := uint64(0); i < n; i++ {
		end := start + chunk
		if i < rem {
			end++
		}
		bounds[i] = struct{ start, end uint64 }{start, end}
		start = end
	}
	return bounds
}
