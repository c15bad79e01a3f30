package orders

import (
	"fmt"
	"math/rand/v2"
)

// IDGenerator produces candidate order ids.
type IDGenerator func() string

// RandomID returns ids of the form <prefix>NNNN with NNNN in 1000..9999.
func RandomID(prefix string) IDGenerator {
	return func() string {
		return fmt.Sprintf("%s%d", prefix, 1000+rand.IntN(9000))
	}
}
