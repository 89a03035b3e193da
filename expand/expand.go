// Package expand implements the child-expansion rule: given one frontier
// entry's board, depth, and role mask, it queries an oracle and produces
// the 0..7 children that belong in the proof tree, with the role bits
// they inherit.
package expand

import (
	"context"
	"errors"
	"fmt"

	"github.com/domino14/c4proof/board"
	"github.com/domino14/c4proof/oracle"
	"github.com/domino14/c4proof/roles"
)

// moveOrder is the fixed move-preference order used to break ties among
// moves sharing the parent's best WDL value, taken unchanged from the
// original experiment's MOVE_ORDERING.
var moveOrder = [7]int{3, 2, 4, 1, 5, 0, 6}

// Child is one position produced by expanding a frontier entry.
type Child struct {
	Board    board.Board49
	Value2   uint8
	RoleMask roles.Mask
}

// ErrOracleDisagreement wraps a board.ErrIllegalMove encountered while
// applying a move the oracle reported as legal; it indicates the oracle
// and the board codec disagree about the position, a fatal inconsistency.
var ErrOracleDisagreement = errors.New("expand: oracle and board codec disagree on move legality")

// Expand produces the children of (b, depth) under parentMask, querying
// o exactly once. It returns no children (and no error) when the oracle
// reports the position as terminal.
func Expand(ctx context.Context, o oracle.Oracle, b board.Board49, depth int, parentMask roles.Mask) ([]Child, error) {
	resp, err := o.Query(ctx, b, depth)
	if err != nil {
		return nil, err
	}
	if resp.Terminal {
		return nil, nil
	}

	parentValue, err := bestValue(resp)
	if err != nil {
		return nil, err
	}
	bestMove, err := chooseBestMove(resp, parentValue)
	if err != nil {
		return nil, err
	}

	var children []Child
	// Emit in ascending column order for reproducible output; the
	// tie-break above already used moveOrder to pick bestMove.
	for m := 0; m < 7; m++ {
		if !resp.Values[m].Present() {
			continue
		}
		isBest := m == bestMove

		if parentMask == roles.RoleC && !isBest {
			continue
		}
		if parentMask&^(roles.RoleC|roles.RoleA|roles.RoleAPrime) == 0 &&
			parentValue == oracle.ValueWin && !isBest {
			continue
		}

		childMask := roles.ChildMask(parentMask, isBest)
		childBoard, err := board.ApplyMove(b, m, depth)
		if err != nil {
			if errors.Is(err, board.ErrIllegalMove) {
				return nil, fmt.Errorf("%w: column %d at depth %d: %v", ErrOracleDisagreement, m, depth, err)
			}
			return nil, err
		}
		childValue2 := uint8(-resp.Values[m] + 1)

		children = append(children, Child{
			Board:    childBoard,
			Value2:   childValue2,
			RoleMask: childMask,
		})
	}

	return children, nil
}

// ParentValue computes a position's own WDL value from the oracle's
// per-move response: the maximum value among the moves it reports as
// legal. It is exposed so callers seeding a root position (which has no
// parent to inherit a value from) can derive value2 the same way Expand
// derives it internally.
func ParentValue(resp oracle.Response) (oracle.Value, error) {
	return bestValue(resp)
}

func bestValue(resp oracle.Response) (oracle.Value, error) {
	best := oracle.ValueLoss
	found := false
	for _, v := range resp.Values {
		if !v.Present() {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	if !found {
		return 0, errors.New("expand: non-terminal position reported no legal moves")
	}
	return best, nil
}

func chooseBestMove(resp oracle.Response, value oracle.Value) (int, error) {
	for _, m := range moveOrder {
		if resp.Values[m].Present() && resp.Values[m] == value {
			return m, nil
		}
	}
	return 0, errors.New("expand: no move attains the parent's value")
}

