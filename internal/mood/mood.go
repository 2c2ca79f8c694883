// Package mood classifies a listener's genres into an energy label.
package mood

import (
	"github.com/satindergrewal/tailortune/internal/preference"
)

// Label is the coarse mood of a listener.
type Label string

const (
	HighEnergy Label = "high-energy"
	Relaxing   Label = "relaxing"
	Balanced   Label = "balanced"
)

// Valid reports whether l is one of the three known labels.
func (l Label) Valid() bool {
	switch l {
	case HighEnergy, Relaxing, Balanced:
		return true
	}
	return false
}

// Partition is the energy group a genre belongs to.
type Partition int

const (
	Neutral Partition = iota
	High
	Calm
)

func (p Partition) String() string {
	switch p {
	case High:
		return "high"
	case Calm:
		return "calm"
	default:
		return "neutral"
	}
}

var highEnergyGenres = map[string]bool{
	"deep house":                    true,
	"indie":                         true,
	"electronics":                   true,
	"electronic dance":              true,
	"goth rock":                     true,
	"progressive instrumental rock": true,
}

var calmGenres = map[string]bool{
	"ambient":               true,
	"soft jazz":             true,
	"new age":               true,
	"hindustani classical":  true,
	"indian semi-classical": true,
}

// PartitionOf returns the group of a normalized genre. Unknown genres are
// neutral.
func PartitionOf(genre string) Partition {
	switch {
	case highEnergyGenres[genre]:
		return High
	case calmGenres[genre]:
		return Calm
	default:
		return Neutral
	}
}

// Sums holds the weight totals per partition.
type Sums struct {
	High    float64
	Calm    float64
	Neutral float64
}

// Aggregate sums record weights per partition. Non-positive weights are
// ignored.
func Aggregate(records []preference.Record) Sums {
	var s Sums
	for _, r := range records {
		if !(r.Weight > 0) {
			continue
		}
		switch PartitionOf(r.Genre) {
		case High:
			s.High += r.Weight
		case Calm:
			s.Calm += r.Weight
		default:
			s.Neutral += r.Weight
		}
	}
	return s
}

// Weighted picks the dominant partition. An exact tie between the high and
// calm totals that beats the neutral total is balanced; otherwise high wins
// ties against neutral and calm wins ties against neutral.
func Weighted(s Sums) Label {
	switch {
	case s.High == s.Calm && s.High > s.Neutral:
		return Balanced
	case s.High >= s.Calm && s.High >= s.Neutral && s.High > 0:
		return HighEnergy
	case s.Calm >= s.High && s.Calm >= s.Neutral && s.Calm > 0:
		return Relaxing
	default:
		return Balanced
	}
}

// ClassifyRecords is Weighted(Aggregate(records)).
func ClassifyRecords(records []preference.Record) Label {
	return Weighted(Aggregate(records))
}

// Pairwise classifies two genres by counting memberships. Strictly more high
// memberships is high-energy, strictly more calm is relaxing, anything else
// is balanced.
func Pairwise(g1, g2 string) Label {
	var high, calm int
	for _, g := range [2]string{g1, g2} {
		switch PartitionOf(g) {
		case High:
			high++
		case Calm:
			calm++
		}
	}
	switch {
	case high > calm:
		return HighEnergy
	case calm > high:
		return Relaxing
	default:
		return Balanced
	}
}
