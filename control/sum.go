package control

// WeightedSum combines a fixed number of named terms, each contributing
// term*weight to the total. It is the scalar building block the angular
// control law is assembled from: the follow branch's angular increment is a
// WeightedSum of the clipped cross-track error, the heading error, and the
// angular-rate error, each with its own signed gain (spec §4.D step 9).
type WeightedSum struct {
	terms []weightedTerm
}

type weightedTerm struct {
	value  float64
	weight float64
}

// Add appends value*weight to the sum and returns the receiver, so calls can
// be chained.
func (s *WeightedSum) Add(value, weight float64) *WeightedSum {
	s.terms = append(s.terms, weightedTerm{value: value, weight: weight})
	return s
}

// Total returns the accumulated weighted sum.
func (s *WeightedSum) Total() float64 {
	var total float64
	for _, t := range s.terms {
		total += t.value * t.weight
	}
	return total
}

// AngularUpdate computes the follow branch's angular increment:
// -distErrClip*kDist - angle*kAngEff - (wCurrent-wRef)*kAvel.
func AngularUpdate(distErrClip, kDist, angle float64, kAngEff Gain, wCurrent, wRef, kAvel float64) float64 {
	sum := (&WeightedSum{}).
		Add(distErrClip, -kDist).
		Add(angle, -kAngEff.Factor).
		Add(wCurrent-wRef, -kAvel)
	return sum.Total()
}
