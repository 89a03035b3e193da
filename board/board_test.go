package board

import (
	"testing"

	"github.com/matryer/is"
)

func TestColumnHeightThresholds(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		code uint64
		h    int
	}{
		{0, 0},
		{1, 1}, {2, 1},
		{3, 2}, {6, 2},
		{7, 3}, {14, 3},
		{15, 4}, {30, 4},
		{31, 5}, {62, 5},
		{63, 6}, {126, 6},
	}
	for _, c := range cases {
		h, err := ColumnHeight(c.code)
		is.NoErr(err)
		is.Equal(h, c.h)
	}
}

func TestColumnHeightCorrupt(t *testing.T) {
	is := is.New(t)
	_, err := ColumnHeight(127)
	is.Equal(err, ErrCorruptBoard)
}

func TestApplyMoveEmptyColumn(t *testing.T) {
	is := is.New(t)
	b, err := ApplyMove(0, 3, 0)
	is.NoErr(err)
	is.Equal(b.columnCode(3), uint64(1))
	for c := 0; c < numColumns; c++ {
		if c == 3 {
			continue
		}
		is.Equal(b.columnCode(c), uint64(0))
	}
}

func TestApplyMoveAlternatesSides(t *testing.T) {
	is := is.New(t)
	var b Board49
	var err error
	b, err = ApplyMove(b, 0, 0) // first mover
	is.NoErr(err)
	is.Equal(b.columnCode(0), uint64(1)) // h=1, pattern=0
	b, err = ApplyMove(b, 0, 1)          // second mover
	is.NoErr(err)
	is.Equal(b.columnCode(0), uint64(5)) // h=2 base 3, pattern=0b10=2 -> 3+2=5
}

func TestApplyMoveFullColumnIsIllegal(t *testing.T) {
	is := is.New(t)
	var b Board49
	var err error
	for d := 0; d < maxHeight; d++ {
		b, err = ApplyMove(b, 2, d)
		is.NoErr(err)
	}
	_, err = ApplyMove(b, 2, maxHeight)
	is.Equal(err, ErrIllegalMove)
}

func TestApplyMoveOtherColumnsUntouched(t *testing.T) {
	is := is.New(t)
	b, err := ApplyMove(0, 1, 0)
	is.NoErr(err)
	b, err = ApplyMove(b, 5, 1)
	is.NoErr(err)
	is.Equal(b.columnCode(1), uint64(1))
	is.Equal(b.columnCode(5), uint64(2))
	is.Equal(b.columnCode(0), uint64(0))
}

func TestApplyMoveCorruptColumn(t *testing.T) {
	is := is.New(t)
	b := Board49(127) // col 0 has code 127, out of range
	_, err := ApplyMove(b, 0, 0)
	is.Equal(err, ErrCorruptBoard)
}

func TestUndoRecoversOriginalBoard(t *testing.T) {
	is := is.New(t)
	var b Board49
	var err error
	moves := []int{3, 2, 3, 4, 0, 6}
	history := []Board49{b}
	for d, col := range moves {
		b, err = ApplyMove(b, col, d)
		is.NoErr(err)
		history = append(history, b)
	}
	for d := len(moves) - 1; d >= 0; d-- {
		undone, err := Undo(history[d+1], moves[d], d+1)
		is.NoErr(err)
		is.Equal(undone, history[d])
	}
}

func TestDepthSumsColumnHeights(t *testing.T) {
	is := is.New(t)
	var b Board49
	var err error
	moves := []int{0, 1, 2, 3, 4}
	for d, col := range moves {
		b, err = ApplyMove(b, col, d)
		is.NoErr(err)
	}
	depth, err := b.Depth()
	is.NoErr(err)
	is.Equal(depth, len(moves))
}

func TestApplyMoveInvalidColumn(t *testing.T) {
	is := is.New(t)
	_, err := ApplyMove(0, 7, 0)
	is.Equal(err, ErrIllegalMove)
	_, err = ApplyMove(0, -1, 0)
	is.Equal(err, ErrIllegalMove)
}
