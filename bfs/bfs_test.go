package bfs

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/c4proof/board"
	"github.com/domino14/c4proof/hashtable"
	"github.com/domino14/c4proof/oracle"
	"github.com/domino14/c4proof/report"
)

func newTestTables(t *testing.T, capacity uint64) [2]*hashtable.Table {
	t.Helper()
	var tables [2]*hashtable.Table
	for i := range tables {
		tbl, err := hashtable.New(capacity)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		tables[i] = tbl
	}
	return tables
}

func rowsOf(buf *bytes.Buffer) []string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return nil
	}
	return lines[1:] // drop header
}

// S1: depth-0 seeding on a non-terminal empty board produces exactly one
// entry in H[0], a solution artifact.
func TestRunSeedsDepthZero(t *testing.T) {
	is := is.New(t)
	tables := newTestTables(t, 1024)
	pool := oracle.NewStubPool(1, func(worker int) oracle.Oracle {
		return &oracle.StubOracle{
			Respond: func(b board.Board49, depth int) (oracle.Response, error) {
				return oracle.Response{Values: [7]oracle.Value{0, 0, 0, 0, 0, 0, 0}}, nil
			},
		}
	})
	var buf bytes.Buffer
	w := report.NewWriter(&buf, "")
	d := NewDriver(tables, pool, w)
	d.SetMaxDepth(0)

	is.NoErr(d.Run(context.Background()))
	rows := rowsOf(&buf)
	is.Equal(len(rows), 1)
	is.Equal(rows[0], "0,1,0,1")
}

// S2: principal-only expansion. One ply from the seeded root with a
// unique winning move at column 3 produces 7 children, one staying on
// the principal line.
func TestRunPrincipalOnlyExpansionOnePly(t *testing.T) {
	is := is.New(t)
	tables := newTestTables(t, 1024)
	pool := oracle.NewStubPool(1, func(worker int) oracle.Oracle {
		return &oracle.StubOracle{
			Respond: func(b board.Board49, depth int) (oracle.Response, error) {
				return oracle.Response{
					Values: [7]oracle.Value{0, -1, -1, 1, -1, -1, 0},
				}, nil
			},
		}
	})
	var buf bytes.Buffer
	w := report.NewWriter(&buf, "")
	d := NewDriver(tables, pool, w)
	d.SetMaxDepth(1)

	is.NoErr(d.Run(context.Background()))
	rows := rowsOf(&buf)
	is.Equal(len(rows), 2)
	is.Equal(rows[0], "0,1,0,1")
	// All 7 children are in the solution mask (P or A'), so every one
	// of them counts as a solution artifact.
	is.Equal(rows[1], "1,7,0,7")
}

// An empty board the oracle reports as terminal cannot be seeded, so Run
// fails instead of producing an empty census.
func TestRunTerminalSeedIsFatal(t *testing.T) {
	is := is.New(t)
	tables := newTestTables(t, 1024)
	pool := oracle.NewStubPool(1, func(worker int) oracle.Oracle {
		return &oracle.StubOracle{
			Respond: func(b board.Board49, depth int) (oracle.Response, error) {
				return oracle.Response{Terminal: true}, nil
			},
		}
	})
	var buf bytes.Buffer
	w := report.NewWriter(&buf, "")
	d := NewDriver(tables, pool, w)
	d.SetMaxDepth(1)

	err := d.Run(context.Background())
	is.True(err != nil)
}

// Sharded drain produces the same counts as the default drain for the
// same scenario.
func TestRunShardedDrainMatchesDefault(t *testing.T) {
	is := is.New(t)
	makeResp := func(b board.Board49, depth int) (oracle.Response, error) {
		return oracle.Response{
			Values: [7]oracle.Value{0, -1, -1, 1, -1, -1, 0},
		}, nil
	}

	tables1 := newTestTables(t, 4096)
	pool1 := oracle.NewStubPool(2, func(worker int) oracle.Oracle {
		return &oracle.StubOracle{Respond: makeResp}
	})
	var buf1 bytes.Buffer
	w1 := report.NewWriter(&buf1, "")
	d1 := NewDriver(tables1, pool1, w1)
	d1.SetMaxDepth(1)
	is.NoErr(d1.Run(context.Background()))

	tables2 := newTestTables(t, 4096)
	pool2 := oracle.NewStubPool(2, func(worker int) oracle.Oracle {
		return &oracle.StubOracle{Respond: makeResp}
	})
	var buf2 bytes.Buffer
	w2 := report.NewWriter(&buf2, "")
	d2 := NewDriver(tables2, pool2, w2)
	d2.SetMaxDepth(1)
	d2.SetShardedDrain(2)
	is.NoErr(d2.Run(context.Background()))

	is.Equal(rowsOf(&buf1), rowsOf(&buf2))
}
