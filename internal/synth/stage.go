package synth

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/synthpop/internal/census"
)

// Inputs bundles everything one geography's synthesis stage needs.
type Inputs struct {
	Geog              census.GeographyID
	HouseholdMarginal census.Marginal
	PersonMarginal    census.Marginal
	HouseholdSample   census.Sample
	HouseholdJD       census.JointDist
	PersonSample      census.Sample
	PersonJD          census.JointDist
}

// fetchInputs pulls one geography's tables from the recipe.
func fetchInputs(ctx context.Context, rec Recipe, g census.GeographyID) (Inputs, error) {
	hMarg, err := rec.HouseholdMarginal(ctx, g)
	if err != nil {
		return Inputs{}, eris.Wrapf(err, "synth: household marginal for %s", g)
	}
	pMarg, err := rec.PersonMarginal(ctx, g)
	if err != nil {
		return Inputs{}, eris.Wrapf(err, "synth: person marginal for %s", g)
	}
	hPums, hJD, err := rec.HouseholdJointDist(ctx, g)
	if err != nil {
		return Inputs{}, eris.Wrapf(err, "synth: household joint distribution for %s", g)
	}
	pPums, pJD, err := rec.PersonJointDist(ctx, g)
	if err != nil {
		return Inputs{}, eris.Wrapf(err, "synth: person joint distribution for %s", g)
	}
	return Inputs{
		Geog:              g,
		HouseholdMarginal: hMarg,
		PersonMarginal:    pMarg,
		HouseholdSample:   hPums,
		HouseholdJD:       hJD,
		PersonSample:      pPums,
		PersonJD:          pJD,
	}, nil
}

// Synthesize runs the full fitting pipeline for one geography and
// draws its synthetic population, assigning household ids starting at
// hhIndexStart. A failure in any step aborts this geography only; no
// partial output is returned.
func (s *Synthesizer) Synthesize(in Inputs, hhIndexStart int64) (
	census.HouseholdTable, census.PersonTable, census.FitQuality, error) {

	log := zap.L().With(zap.Stringer("geog", in.Geog))
	var none census.FitQuality

	// Zero marginal cells and zero joint-distribution cells make the
	// ratio-based solvers blow up; lift them to small substitutes.
	hMarg := in.HouseholdMarginal.ReplaceZeros(s.opts.MarginalZeroSub)
	pMarg := in.PersonMarginal.ReplaceZeros(s.opts.MarginalZeroSub)
	hJD := in.HouseholdJD.ReplaceZeroFrequencies(s.opts.JDZeroSub)
	pJD := in.PersonJD.ReplaceZeroFrequencies(s.opts.JDZeroSub)

	log.Debug("running ipf for households")
	hCon, err := s.fitter.FitConstraints(hMarg, hJD)
	if err != nil {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.Wrapf(err, "synth: household constraints for %s", in.Geog)
	}

	log.Debug("running ipf for persons")
	pCon, err := s.fitter.FitConstraints(pMarg, pJD)
	if err != nil {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.Wrapf(err, "synth: person constraints for %s", in.Geog)
	}

	// Person cat ids must not collide with household cat ids when the
	// two are fit jointly; shift them past the household range.
	offset := hJD.MaxCatID() + 1
	pJD = pJD.ShiftCatIDs(offset)
	pPums := in.PersonSample.ShiftCatIDs(offset)
	pCon = pCon.ShiftCatIDs(offset)

	hFreq, pFreq, err := s.tab.FrequencyTables(pPums, in.HouseholdSample, pJD.CatIDs(), hJD.CatIDs())
	if err != nil {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.Wrapf(err, "synth: frequency tables for %s", in.Geog)
	}

	log.Debug("running ipu")
	weights, fit, iterations, err := s.weigher.HouseholdWeights(hFreq, pFreq, hCon, pCon, s.opts.MaxIterations)
	if err != nil {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.Wrapf(err, "synth: household weights for %s", in.Geog)
	}
	if iterations >= s.opts.MaxIterations {
		log.Warn("ipu exhausted its iteration budget, using best weights found",
			zap.Int("iterations", iterations),
			zap.Float64("fit_quality", fit),
		)
	} else {
		log.Debug("ipu converged",
			zap.Int("iterations", iterations),
			zap.Float64("fit_quality", fit),
		)
	}

	numHouseholds := hMarg.NumHouseholds()

	households, persons, fq, err := s.drawer.DrawHouseholds(
		numHouseholds, in.HouseholdSample, pPums, hFreq, pFreq, hCon, pCon,
		weights, hhIndexStart, s.geogSeed(in.Geog))
	if err != nil {
		return census.HouseholdTable{}, census.PersonTable{}, none,
			eris.Wrapf(err, "synth: draw for %s", in.Geog)
	}

	return households, persons, fq, nil
}
