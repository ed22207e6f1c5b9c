package fund

import (
	"fmt"
	"time"

	"CharityFund/internal/model"
)

// Move is one pairwise step of an allocation pass: Amount moved between the
// allocated entity and Counterpart.
type Move struct {
	Counterpart *model.Fundable
	Amount      int64
}

// Allocate spreads the remaining capacity of x across open counterparts in the
// order given, mutating both sides in place. Counterparts must be open, have a
// positive remainder and be ordered oldest first. Allocation stops as soon as x
// is fully invested; if the counterparts run out first x stays open with
// whatever it collected. Every closed entity gets now as its close date.
//
// Allocate performs no I/O. The caller persists x and every Move.Counterpart.
func Allocate(x *model.Fundable, open []*model.Fundable, now time.Time) []Move {
	if !x.IsOpen() || x.Remaining() <= 0 {
		return nil
	}

	var moves []Move
	for _, c := range open {
		if !x.IsOpen() {
			break
		}
		need := c.Remaining()
		if !c.IsOpen() || need <= 0 {
			panic(fmt.Sprintf("fund: counterpart %d has no remaining capacity", c.ID))
		}
		have := x.Remaining()

		switch {
		case have > need:
			x.InvestedAmount += need
			c.Close(now)
			moves = append(moves, Move{Counterpart: c, Amount: need})
		case have == need:
			x.Close(now)
			c.Close(now)
			moves = append(moves, Move{Counterpart: c, Amount: need})
		default:
			c.InvestedAmount += have
			x.Close(now)
			moves = append(moves, Move{Counterpart: c, Amount: have})
		}
	}
	return moves
}
