package update

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/consensus-gate/internal/agent"
	"github.com/danielpatrickdp/consensus-gate/internal/vector"
)

// #region compromise
// CompromiseOffer computes agent self's offer from a round snapshot.
// snapshot holds every agent's vector at round start, in roster order; self
// is the index of the offering agent. For each dimension d:
//
//	offer[d] = (1 - relativity)*own[d] + relativity*mean(others[d])
//
// which is a convex combination for relativity in [0, 1].
func CompromiseOffer(snapshot []vector.PriorityVector, self int, relativity float64, dims vector.Dimensions, mode PeerExclusion) (Offer, error) {
	if self < 0 || self >= len(snapshot) {
		return Offer{}, fmt.Errorf("compromise offer: agent index %d out of range", self)
	}
	own := snapshot[self]

	others := make([]vector.PriorityVector, 0, len(snapshot)-1)
	for i, v := range snapshot {
		if i == self {
			continue
		}
		if mode == PeerExclusionValue && vector.Equal(v, own, dims) {
			continue
		}
		others = append(others, v)
	}
	if len(others) == 0 {
		return Offer{}, fmt.Errorf("compromise offer for agent %d: %w", self, agent.ErrInsufficientPeers)
	}

	peerMean := vector.Mean(others, dims)
	offer := make(vector.PriorityVector, len(dims))
	var sumSq float64
	for _, d := range dims {
		offer[d] = vector.Clamp((1-relativity)*own[d] + relativity*peerMean[d])
		diff := offer[d] - own[d]
		sumSq += diff * diff
	}

	return Offer{
		Vector:    offer,
		PeerMean:  peerMean,
		PeerCount: len(others),
		DeltaNorm: math.Sqrt(sumSq),
	}, nil
}

// #endregion compromise

// #region evolution
// ProposeEvolution moves own toward env on the single dimension with the
// largest absolute gap. Ties go to the first dimension in declared order.
// All other dimensions are left untouched and the result is clamped.
func ProposeEvolution(own, env vector.PriorityVector, dims vector.Dimensions, rate float64) Proposal {
	bestDim, bestAbs, bestGap := "", -1.0, 0.0
	for _, d := range dims {
		gap := env[d] - own[d]
		if math.Abs(gap) > bestAbs {
			bestDim, bestAbs, bestGap = d, math.Abs(gap), gap
		}
	}

	next := own.Clone()
	if bestDim != "" {
		next[bestDim] = vector.Clamp(own[bestDim] + rate*bestGap)
	}
	return Proposal{
		Vector:    next,
		Dimension: bestDim,
		Gap:       bestGap,
		Step:      next[bestDim] - own[bestDim],
	}
}

// #endregion evolution
