package synth

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/synthpop/internal/census"
)

// SynthesizeAllParallel is the parallel counterpart of SynthesizeAll.
// It splits the work into three phases: a concurrent input-fetch
// fan-out, a concurrent synthesis fan-out with household ids starting
// at zero, and a single-threaded reassembly that walks the geographies
// in original submission order, shifting each geography's ids by the
// running offset. Reassembling in submission order, not completion
// order, keeps the id sequence reproducible across runs.
//
// A failure in either fan-out phase is confined to its geography: the
// reassembly reports it in Result.Failures and the failed geography
// contributes no rows and no offset change.
func (s *Synthesizer) SynthesizeAllParallel(ctx context.Context, rec Recipe, geogs []census.GeographyID) (*Result, error) {
	geogs, err := s.resolveGeogs(ctx, rec, geogs)
	if err != nil {
		return nil, err
	}

	workers := s.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	zap.L().Info("synthesizing geographies in parallel",
		zap.Int("geographies", len(geogs)),
		zap.Int("workers", workers),
	)

	type slot struct {
		in  Inputs
		hh  census.HouseholdTable
		pp  census.PersonTable
		fq  census.FitQuality
		err error
	}
	slots := make([]slot, len(geogs))

	// Phase 1: fetch every geography's inputs concurrently. Completion
	// order does not matter; each task writes only its own slot.
	g1, ctx1 := errgroup.WithContext(ctx)
	g1.SetLimit(workers)
	for i, geog := range geogs {
		g1.Go(func() error {
			in, err := fetchInputs(ctx1, rec, geog)
			if err != nil {
				slots[i].err = err
				return nil // keep fetching the other geographies
			}
			slots[i].in = in
			return nil
		})
	}
	if err := g1.Wait(); err != nil {
		return nil, err
	}

	// Phase 2: run the synthesis stage concurrently for every
	// geography whose inputs are ready. Household ids start at zero
	// because the running offset is not known until reassembly.
	var g2 errgroup.Group
	g2.SetLimit(workers)
	for i := range slots {
		if slots[i].err != nil {
			continue
		}
		g2.Go(func() error {
			hh, pp, fq, err := s.Synthesize(slots[i].in, 0)
			if err != nil {
				slots[i].err = err
				return nil
			}
			slots[i].hh, slots[i].pp, slots[i].fq = hh, pp, fq
			return nil
		})
	}
	if err := g2.Wait(); err != nil {
		return nil, err
	}

	// Phase 3: single-threaded reassembly in submission order. This is
	// the only place the running offset and result tables are touched,
	// so no locking is needed.
	res := newResult()
	var offset int64
	for i, geog := range geogs {
		if err := slots[i].err; err != nil {
			res.Failures = append(res.Failures, GeographyError{Geog: geog, Err: err})
			zap.L().Error("skipping geography", zap.Stringer("geog", geog), zap.Error(err))
			continue
		}
		if last, ok := res.add(geog, slots[i].hh, slots[i].pp, slots[i].fq, offset); ok {
			offset = last + 1
		}
	}

	zap.L().Info("parallel synthesis complete",
		zap.Int("households", len(res.Households.Rows)),
		zap.Int("persons", len(res.Persons.Rows)),
		zap.Int("failed_geographies", len(res.Failures)),
	)

	return res, nil
}
