package roles

import (
	"testing"

	"github.com/matryer/is"
)

func TestChildMaskSingleRoleTable(t *testing.T) {
	is := is.New(t)
	cases := []struct {
		parent Mask
		best   bool
		want   Mask
	}{
		{RoleP, true, RoleP},
		{RoleP, false, RoleAPrime},
		{RoleAPrime, true, RolePPrime},
		{RoleAPrime, false, RoleC},
		{RolePPrime, true, RoleAPrime},
		{RolePPrime, false, RoleAPrime},
		{RoleC, true, RoleA},
		{RoleC, false, RoleA},
		{RoleA, true, RoleC},
		{RoleA, false, RoleC},
	}
	for _, c := range cases {
		is.Equal(ChildMask(c.parent, c.best), c.want)
	}
}

func TestChildMaskUnionsOverParentBits(t *testing.T) {
	is := is.New(t)
	// S5: parent {C, A'}, best move -> {A, P'}.
	got := ChildMask(RoleC|RoleAPrime, true)
	is.Equal(got, RoleA|RolePPrime)
}

func TestChildMaskTotalOverAllMasks(t *testing.T) {
	is := is.New(t)
	for mask := Mask(0); mask < 32; mask++ {
		for _, best := range []bool{false, true} {
			// must not panic, and empty parent mask yields empty child mask.
			got := ChildMask(mask, best)
			if mask == 0 {
				is.Equal(got, Mask(0))
			}
			is.True(got < 32)
		}
	}
}

func TestIsSolution(t *testing.T) {
	is := is.New(t)
	is.True(IsSolution(RoleP))
	is.True(IsSolution(RoleAPrime))
	is.True(IsSolution(RolePPrime))
	is.True(!IsSolution(RoleC))
	is.True(!IsSolution(RoleA))
	is.True(!IsSolution(RoleC | RoleA))
	is.True(IsSolution(RoleC | RoleP))
}

func TestNames(t *testing.T) {
	is := is.New(t)
	is.Equal(Names(RoleP), []string{"P"})
	is.Equal(Names(RoleC|RoleAPrime), []string{"A'", "C"})
	is.Equal(len(Names(0)), 0)
}
