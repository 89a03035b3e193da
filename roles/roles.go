// Package roles implements the 5-bit node-role algebra of the proof tree:
// which role(s) a position plays in the strong-solution proof, and how a
// parent's roles propagate to a child depending on whether the move
// taken was the parent's most-promising move.
package roles

import "github.com/samber/lo"

// Mask is a 5-bit union of node roles.
type Mask uint8

const (
	RoleP      Mask = 1 << iota // principal
	RoleAPrime                  // A': alternative on the principal line
	RolePPrime                  // P': principal refutation
	RoleC                       // C: confirmation
	RoleA                       // A: alternative
)

// SolutionMask is the set of roles that make a position a solution
// artifact, as opposed to a proof certificate.
const SolutionMask = RoleP | RoleAPrime | RolePPrime

// ProofMask is the complementary set of roles.
const ProofMask = RoleC | RoleA

// AllRoles enumerates the 5 single-bit roles in a fixed order, used to
// drive the total child-mask table and role-name rendering.
var AllRoles = [5]Mask{RoleP, RoleAPrime, RolePPrime, RoleC, RoleA}

var roleNames = map[Mask]string{
	RoleP:      "P",
	RoleAPrime: "A'",
	RolePPrime: "P'",
	RoleC:      "C",
	RoleA:      "A",
}

// childOfSingleRole maps a single parent role bit and a best-move flag to
// the single child role bit it contributes:
//
//	parent  best move -> child   other move -> child
//	P       P                    A'
//	A'      P'                   C
//	P'      A'                   A'
//	C       A                    A
//	A       C                    C
var childOfSingleRole = map[Mask][2]Mask{
	RoleP:      {RoleAPrime, RoleP},
	RoleAPrime: {RoleC, RolePPrime},
	RolePPrime: {RoleAPrime, RoleAPrime},
	RoleC:      {RoleA, RoleA},
	RoleA:      {RoleC, RoleC},
}

// idx 0 = other move, idx 1 = best move, matching the [2]Mask layout above.
func bestIdx(isBest bool) int {
	if isBest {
		return 1
	}
	return 0
}

// childMaskTable is a total 64-entry (32 masks x 2 bool) lookup built once
// from childOfSingleRole, trading a small amount of init-time work for
// branch-free lookups on every expansion.
var childMaskTable [32][2]Mask

func init() {
	for mask := Mask(0); mask < 32; mask++ {
		for _, best := range [2]bool{false, true} {
			var out Mask
			for _, bit := range AllRoles {
				if mask&bit == 0 {
					continue
				}
				out |= childOfSingleRole[bit][bestIdx(best)]
			}
			childMaskTable[mask][bestIdx(best)] = out
		}
	}
}

// ChildMask returns the role mask a child inherits from a parent role
// mask, given whether the move to the child was the parent's
// most-promising move. It is a total pure function on (0..31) x {false,true}.
func ChildMask(parentMask Mask, isBestMove bool) Mask {
	return childMaskTable[parentMask&31][bestIdx(isBestMove)]
}

// IsSolution reports whether mask intersects SolutionMask, i.e. whether
// the position is a solution artifact rather than a proof certificate.
func IsSolution(mask Mask) bool {
	return mask&SolutionMask != 0
}

// Names renders the set bits of mask as role-name strings, e.g. for
// structured-log fields.
func Names(mask Mask) []string {
	return lo.FilterMap(AllRoles[:], func(bit Mask, _ int) (string, bool) {
		if mask&bit == 0 {
			return "", false
		}
		return roleNames[bit], true
	})
}
