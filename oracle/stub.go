package oracle

import (
	"context"
	"fmt"

	"github.com/domino14/c4proof/board"
)

// StubOracle is an in-memory, deterministic Oracle backed by a caller
// supplied responder function. It lets expansion and census scenarios
// run without a subprocess.
type StubOracle struct {
	// Respond computes the Response for a query. It is called once for
	// every Query made before Close, including repeated queries of the
	// same (board, depth) pair, so it may also be used to assert on the
	// sequence of queries received.
	Respond func(b board.Board49, depth int) (Response, error)
	closed  bool
}

// NewStubOracleFromMap builds a StubOracle that answers fixed responses
// keyed by board, ignoring depth, and errors on any unmapped board.
func NewStubOracleFromMap(responses map[board.Board49]Response) *StubOracle {
	return &StubOracle{
		Respond: func(b board.Board49, depth int) (Response, error) {
			resp, ok := responses[b]
			if !ok {
				return Response{}, fmt.Errorf("oracle: stub has no response for board %d", b)
			}
			return resp, nil
		},
	}
}

// Query implements Oracle.
func (s *StubOracle) Query(ctx context.Context, b board.Board49, depth int) (Response, error) {
	if s.closed {
		return Response{}, ErrOracleLost
	}
	return s.Respond(b, depth)
}

// Close implements Oracle.
func (s *StubOracle) Close() error {
	s.closed = true
	return nil
}
