package synth

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/synthpop/internal/census"
)

// SynthesizeAll processes geographies one at a time, in order,
// threading the running household-id offset through successive stage
// calls so ids are globally unique and increasing. geogs may be nil, in
// which case the recipe enumerates them. A failed geography is
// reported in Result.Failures and contributes no rows and no offset
// change; the run continues.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, rec Recipe, geogs []census.GeographyID) (*Result, error) {
	geogs, err := s.resolveGeogs(ctx, rec, geogs)
	if err != nil {
		return nil, err
	}

	zap.L().Info("synthesizing geographies sequentially", zap.Int("geographies", len(geogs)))

	res := newResult()
	var offset int64

	for _, g := range geogs {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "synth: cancelled")
		}

		in, err := fetchInputs(ctx, rec, g)
		if err != nil {
			res.Failures = append(res.Failures, GeographyError{Geog: g, Err: err})
			zap.L().Error("skipping geography: input fetch failed", zap.Stringer("geog", g), zap.Error(err))
			continue
		}

		hh, pp, fq, err := s.Synthesize(in, offset)
		if err != nil {
			res.Failures = append(res.Failures, GeographyError{Geog: g, Err: err})
			zap.L().Error("skipping geography: synthesis failed", zap.Stringer("geog", g), zap.Error(err))
			continue
		}

		// Ids were assigned from the running offset inside the stage;
		// no further shift is needed here.
		if last, ok := res.add(g, hh, pp, fq, 0); ok {
			offset = last + 1
		}
	}

	zap.L().Info("synthesis complete",
		zap.Int("households", len(res.Households.Rows)),
		zap.Int("persons", len(res.Persons.Rows)),
		zap.Int("failed_geographies", len(res.Failures)),
	)

	return res, nil
}

// resolveGeogs fills in the geography list from the recipe when the
// caller did not supply one, and applies the MaxGeographies cap.
func (s *Synthesizer) resolveGeogs(ctx context.Context, rec Recipe, geogs []census.GeographyID) ([]census.GeographyID, error) {
	if geogs == nil {
		var err error
		geogs, err = rec.GeographyIDs(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "synth: enumerate geographies")
		}
	}
	if s.opts.MaxGeographies > 0 && len(geogs) > s.opts.MaxGeographies {
		geogs = geogs[:s.opts.MaxGeographies]
	}
	return geogs, nil
}
