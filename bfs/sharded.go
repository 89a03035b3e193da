package bfs

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/domino14/c4proof/board"
	"github.com/domino14/c4proof/hashtable"
)

// ensureShardTables lazily allocates the two shard-table generations the
// first time sharded drain is used, each holding d.shards tables sized
// to an even split of totalCapacity.
func (d *Driver) ensureShardTables(totalCapacity uint64) error {
	if d.shardTables[0] != nil {
		return nil
	}
	perShard := totalCapacity / uint64(d.shards)
	for gen := 0; gen < 2; gen++ {
		tables := make([]*hashtable.Table, d.shards)
		for s := 0; s < d.shards; s++ {
			t, err := hashtable.New(perShard)
			if err != nil {
				return err
			}
			tables[s] = t
		}
		d.shardTables[gen] = tables
	}
	return nil
}

// shardOf picks a shard from a splitmix64 mix of key, so that boards
// differing only in high columns still spread evenly across shards.
func shardOf(key uint64, shards int) int {
	x := key + 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x ^= x >> 31
	return int(x % uint64(shards))
}

// runShardedPly is the sharded-drain alternative to runPly: instead of a
// single critical section draining every worker's buffer into one
// table, each shard of H[nxt] is its own hashtable.Table, drained by its
// own goroutine, so no two drain goroutines ever touch the same table.
func (d *Driver) runShardedPly(ctx context.Context, depth, cur, nxt int) (sol, proof uint64, err error) {
	if err := d.ensureShardTables(d.tables[0].Capacity()); err != nil {
		return 0, 0, err
	}
	for _, t := range d.shardTables[nxt] {
		t.Clear()
	}

	threads := d.pool.Size()
	curShards := d.shardTables[cur]
	bounds := partitionBounds(uint64(len(curShards)), uint64(threads))

	buffers := make([][]childPack, threads)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < threads; w++ {
		w := w
		g.Go(func() error {
			o := d.pool.At(w)
			var buf []childPack
			for shardIdx := bounds[w].start; shardIdx < bounds[w].end; shardIdx++ {
				shardBuf, err := d.scanRangeChunked(gctx, o, curShards[shardIdx], depth, 0, curShards[shardIdx].Capacity())
				if err != nil {
					return err
				}
				buf = append(buf, shardBuf...)
			}
			buffers[w] = buf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}

	// Redistribute every buffered child by destination shard, then drain
	// each shard concurrently: distinct shard tables, so no contention.
	perShardBuckets := make([][]childPack, d.shards)
	for _, buf := range buffers {
		for _, c := range buf {
			shard := shardOf(uint64(c.board), d.shards)
			perShardBuckets[shard] = append(perShardBuckets[shard], c)
		}
	}

	dg, _ := errgroup.WithContext(ctx)
	nxtShards := d.shardTables[nxt]
	for s := 0; s < d.shards; s++ {
		s := s
		dg.Go(func() error {
			for _, c := range perShardBuckets[s] {
				packed := hashtable.PackValue(c.value2, uint8(c.roleMask))
				if err := nxtShards[s].InsertMerge(uint64(c.board), packed); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := dg.Wait(); err != nil {
		return 0, 0, err
	}

	for _, t := range nxtShards {
		s, p := d.classify(t)
		sol += s
		proof += p
	}
	return sol, proof, nil
}

// seedSharded inserts the depth-0 root into its shard of generation 0
// instead of d.tables[0], used when sharded drain is active from the
// start of the run.
func (d *Driver) seedSharded(key board.Board49, value uint16) error {
	if err := d.ensureShardTables(d.tables[0].Capacity()); err != nil {
		return err
	}
	shard := shardOf(uint64(key), d.shards)
	return d.shardTables[0][shard].InsertMerge(uint64(key), value)
}

func (d *Driver) classifySharded(gen int) (sol, proof uint64) {
	for _, t := range d.shardTables[gen] {
		s, p := d.classify(t)
		sol += s
		proof += p
	}
	return sol, proof
}
