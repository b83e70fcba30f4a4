// Package synth drives population synthesis across geographies: it
// runs the per-geography fitting pipeline (zero-guard, proportional
// fitting, category namespacing, weight fitting, drawing) and stitches
// the per-geography outputs into one globally consistent dataset with
// unique, monotonically increasing household ids.
package synth

import (
	"context"
	"hash/fnv"

	"github.com/sells-group/synthpop/internal/census"
)

// Recipe supplies per-geography synthesis inputs.
type Recipe interface {
	GeographyIDs(ctx context.Context) ([]census.GeographyID, error)
	HouseholdMarginal(ctx context.Context, g census.GeographyID) (census.Marginal, error)
	PersonMarginal(ctx context.Context, g census.GeographyID) (census.Marginal, error)
	// HouseholdJointDist returns the household sample table and joint
	// distribution for a geography; likewise PersonJointDist for
	// persons.
	HouseholdJointDist(ctx context.Context, g census.GeographyID) (census.Sample, census.JointDist, error)
	PersonJointDist(ctx context.Context, g census.GeographyID) (census.Sample, census.JointDist, error)
}

// ConstraintFitter fits a constraint vector from a marginal and a
// joint distribution (proportional fitting).
type ConstraintFitter interface {
	FitConstraints(m census.Marginal, jd census.JointDist) (census.Constraint, error)
}

// Tabulator builds household and person frequency tables from
// categorized samples.
type Tabulator interface {
	FrequencyTables(pPums, hPums census.Sample, pCatIDs, hCatIDs []int) (
		census.FrequencyTable, census.FrequencyTable, error)
}

// WeightFitter fits per-household-sample weights against both
// constraint vectors (proportional updating). Exhausting
// maxIterations is not an error; implementations return their best
// weights with iterations equal to the budget.
type WeightFitter interface {
	HouseholdWeights(hFreq, pFreq census.FrequencyTable, hCon, pCon census.Constraint,
		maxIterations int) (weights []float64, fit float64, iterations int, err error)
}

// Drawer draws synthetic households and persons from weighted samples.
type Drawer interface {
	DrawHouseholds(numHouseholds int, hPums, pPums census.Sample,
		hFreq, pFreq census.FrequencyTable, hCon, pCon census.Constraint,
		weights []float64, hhIndexStart int64, seed int64) (
		census.HouseholdTable, census.PersonTable, census.FitQuality, error)
}

// Options tune the synthesis pipeline.
type Options struct {
	// MarginalZeroSub replaces exact-zero marginal cells before
	// fitting. Default 0.01.
	MarginalZeroSub float64
	// JDZeroSub replaces exact-zero joint-distribution frequencies.
	// Default 0.001.
	JDZeroSub float64
	// MaxIterations bounds the weight-fitting solver. Default 20000.
	MaxIterations int
	// Seed makes drawing reproducible. Each geography derives its own
	// stream from this and its geography id, so results do not depend
	// on processing order.
	Seed int64
	// Workers bounds the parallel driver's pool. <=0 means GOMAXPROCS.
	Workers int
	// MaxGeographies caps how many geographies are processed. <=0
	// means all.
	MaxGeographies int
}

func (o Options) withDefaults() Options {
	if o.MarginalZeroSub == 0 {
		o.MarginalZeroSub = 0.01
	}
	if o.JDZeroSub == 0 {
		o.JDZeroSub = 0.001
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = 20000
	}
	return o
}

// Synthesizer runs population synthesis with pluggable solvers.
type Synthesizer struct {
	fitter  ConstraintFitter
	tab     Tabulator
	weigher WeightFitter
	drawer  Drawer
	opts    Options
}

// New wires a Synthesizer from its collaborators.
func New(fitter ConstraintFitter, tab Tabulator, weigher WeightFitter, drawer Drawer, opts Options) *Synthesizer {
	return &Synthesizer{
		fitter:  fitter,
		tab:     tab,
		weigher: weigher,
		drawer:  drawer,
		opts:    opts.withDefaults(),
	}
}

// geogSeed derives a per-geography draw seed from the run seed, stable
// under processing order.
func (s *Synthesizer) geogSeed(g census.GeographyID) int64 {
	h := fnv.New64a()
	h.Write([]byte(g.String()))
	return s.opts.Seed ^ int64(h.Sum64())
}
