package domain

import "net"

// WeightedAddress is a single (peer address, weight) pair as emitted by a resolver.
// Weight is finite and non-negative; a resolved set's weights are normalised by the
// resolver so that they sum to 1.0 before the balancer ever sees them.
type WeightedAddress struct {
	Addr   *net.TCPAddr
	Weight float64
}

func NewWeightedAddress(addr *net.TCPAddr, weight float64) WeightedAddress {
	return WeightedAddress{Addr: addr, Weight: weight}
}

// NormaliseWeights divides every weight by the sum of all weights so they sum to
// 1.0. Entries with an absent weight should already default to 1.0 by the caller.
// A slice with zero total weight is left untouched (caller decides how to treat it).
func NormaliseWeights(addrs []WeightedAddress) {
	var sum float64
	for _, a := range addrs {
		sum += a.Weight
	}
	if sum <= 0 {
		return
	}
	for i := range addrs {
		addrs[i].Weight /= sum
	}
}
