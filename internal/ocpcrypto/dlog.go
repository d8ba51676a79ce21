package ocpcrypto

import (
	"fmt"
	"sync"
)

// BabySteps is the size of the precomputed baby-step table.
const BabySteps = 1 << 14

var (
	babyOnce  sync.Once
	babyTable map[[PointBytes]byte]uint64
	giantStep Point
)

func initBabySteps() {
	babyTable = make(map[[PointBytes]byte]uint64, BabySteps)
	acc := PointZero()
	g := PointBase()
	for j := uint64(0); j < BabySteps; j++ {
		var k [PointBytes]byte
		copy(k[:], acc.Bytes())
		babyTable[k] = j
		acc = PointAdd(acc, g)
	}
	giantStep = acc // BabySteps*G
}

// DiscreteLog returns m with m*G == p for m < bound, using baby-step
// giant-step over a shared table.
func DiscreteLog(p Point, bound uint64) (uint64, error) {
	babyOnce.Do(initBabySteps)
	if bound == 0 {
		return 0, fmt.Errorf("dlog: bound must be > 0")
	}
	giants := bound / BabySteps
	if bound%BabySteps != 0 {
		giants++
	}
	cur := p
	var k [PointBytes]byte
	for i := uint64(0); i < giants; i++ {
		copy(k[:], cur.Bytes())
		if j, ok := babyTable[k]; ok {
			m := i*BabySteps + j
			if m >= bound {
				break
			}
			return m, nil
		}
		cur = PointSub(cur, giantStep)
	}
	return 0, fmt.Errorf("dlog: value not found below %d", bound)
}
