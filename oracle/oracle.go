// Package oracle implements the client side of the WDL oracle protocol:
// one stdio-pipe session per worker, sending a compact query line and
// parsing a compact reply. The oracle's own process -- its precomputed
// strong-solution artifacts and game-rule logic -- is an external
// collaborator, entirely out of scope here.
package oracle

import (
	"context"
	"errors"

	"github.com/domino14/c4proof/board"
)

// Value is a WDL evaluation from the side-to-move's perspective, or the
// absence of one (an illegal/full column).
type Value int8

const (
	// ValueLoss is a forced loss for the side to move.
	ValueLoss Value = -1
	// ValueDraw is a forced draw.
	ValueDraw Value = 0
	// ValueWin is a forced win for the side to move.
	ValueWin Value = 1
	// ValueIllegal marks an absent (illegal-move) entry in a Response.
	ValueIllegal Value = 127
)

// Present reports whether v is a real WDL value, as opposed to
// ValueIllegal.
func (v Value) Present() bool {
	return v != ValueIllegal
}

// Response is the oracle's answer to one Query.
type Response struct {
	// Terminal is true when the queried position has no legal moves;
	// Values is entirely absent in that case.
	Terminal bool
	// Values[i] is the WDL value, from the parent's perspective, of the
	// position after playing column i, or ValueIllegal if column i is
	// full.
	Values [7]Value
}

var (
	// ErrOracleLost is returned when the oracle process or pipe ends
	// before a matching reply line is ever read.
	ErrOracleLost = errors.New("oracle: lost connection to oracle process")
	// ErrOracleProtocol is returned when a line matches the expected
	// shape but fails to parse as a valid response.
	ErrOracleProtocol = errors.New("oracle: malformed response line")
)

// Oracle is one sequential query/response session: at most one in-flight
// Query at a time. Workers each own a distinct instance; instances never
// share state.
type Oracle interface {
	// Query asks the oracle to evaluate board at the given (advisory)
	// depth. The oracle derives the true depth from the board itself;
	// callers must not depend on depth round-tripping.
	Query(ctx context.Context, b board.Board49, depth int) (Response, error)
	// Close releases any resources (subprocess, pipes) the instance owns.
	Close() error
}
