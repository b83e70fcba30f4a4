// Package recipe provides the input side of population synthesis:
// implementations that enumerate geographies and serve marginal,
// joint-distribution, and sample tables for each one.
package recipe

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/synthpop/internal/census"
	"github.com/sells-group/synthpop/internal/fetcher"
)

// Expected files inside a CSV recipe directory. Marginals are keyed
// per geography; the joint distributions and samples are shared across
// all geographies, as PUMS data is published at a coarser level.
const (
	geographiesFile = "geographies.csv"
	hhMarginalsFile = "household_marginals.csv"
	pMarginalsFile  = "person_marginals.csv"
	hhJointFile     = "household_joint_dist.csv"
	pJointFile      = "person_joint_dist.csv"
	hhSamplesFile   = "household_samples.csv"
	pSamplesFile    = "person_samples.csv"
)

var geogColumns = []string{"state", "county", "tract", "block_group"}

// CSV serves synthesis inputs from a directory of CSV files, loaded
// eagerly on open and read-only afterwards, so it is safe for
// concurrent use by the parallel driver.
type CSV struct {
	geogs      []census.GeographyID
	hMarginals map[census.GeographyID]census.Marginal
	pMarginals map[census.GeographyID]census.Marginal
	hSample    census.Sample
	pSample    census.Sample
	hJD        census.JointDist
	pJD        census.JointDist
}

// OpenCSV loads a recipe directory.
func OpenCSV(ctx context.Context, dir string) (*CSV, error) {
	r := &CSV{
		hMarginals: make(map[census.GeographyID]census.Marginal),
		pMarginals: make(map[census.GeographyID]census.Marginal),
	}

	if err := r.loadGeographies(ctx, filepath.Join(dir, geographiesFile)); err != nil {
		return nil, err
	}
	if err := r.loadMarginals(ctx, filepath.Join(dir, hhMarginalsFile), r.hMarginals); err != nil {
		return nil, err
	}
	if err := r.loadMarginals(ctx, filepath.Join(dir, pMarginalsFile), r.pMarginals); err != nil {
		return nil, err
	}

	var err error
	if r.hSample, err = loadSample(ctx, filepath.Join(dir, hhSamplesFile)); err != nil {
		return nil, err
	}
	if r.pSample, err = loadSample(ctx, filepath.Join(dir, pSamplesFile)); err != nil {
		return nil, err
	}
	if r.hJD, err = loadJointDist(ctx, filepath.Join(dir, hhJointFile)); err != nil {
		return nil, err
	}
	if r.pJD, err = loadJointDist(ctx, filepath.Join(dir, pJointFile)); err != nil {
		return nil, err
	}

	zap.L().Info("loaded csv recipe",
		zap.String("dir", dir),
		zap.Int("geographies", len(r.geogs)),
		zap.Int("household_samples", len(r.hSample.Records)),
		zap.Int("person_samples", len(r.pSample.Records)),
	)

	return r, nil
}

// GeographyIDs returns the geographies in file order.
func (r *CSV) GeographyIDs(ctx context.Context) ([]census.GeographyID, error) {
	return r.geogs, nil
}

// HouseholdMarginal returns the household marginal for a geography.
func (r *CSV) HouseholdMarginal(ctx context.Context, g census.GeographyID) (census.Marginal, error) {
	m, ok := r.hMarginals[g]
	if !ok {
		return census.Marginal{}, eris.Errorf("recipe: no household marginal for %s", g)
	}
	return m, nil
}

// PersonMarginal returns the person marginal for a geography.
func (r *CSV) PersonMarginal(ctx context.Context, g census.GeographyID) (census.Marginal, error) {
	m, ok := r.pMarginals[g]
	if !ok {
		return census.Marginal{}, eris.Errorf("recipe: no person marginal for %s", g)
	}
	return m, nil
}

// HouseholdJointDist returns the shared household sample and joint
// distribution.
func (r *CSV) HouseholdJointDist(ctx context.Context, g census.GeographyID) (census.Sample, census.JointDist, error) {
	return r.hSample, r.hJD, nil
}

// PersonJointDist returns the shared person sample and joint
// distribution.
func (r *CSV) PersonJointDist(ctx context.Context, g census.GeographyID) (census.Sample, census.JointDist, error) {
	return r.pSample, r.pJD, nil
}

func openTable(ctx context.Context, path string) (fetcher.CSVTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return fetcher.CSVTable{}, eris.Wrapf(err, "recipe: open %s", path)
	}
	defer f.Close()

	table, err := fetcher.ReadCSV(ctx, f, fetcher.CSVOptions{TrimSpace: true})
	if err != nil {
		return fetcher.CSVTable{}, eris.Wrapf(err, "recipe: parse %s", path)
	}
	return table, nil
}

func geogFromRow(table fetcher.CSVTable, row []string) (census.GeographyID, error) {
	var g census.GeographyID
	fields := []*string{&g.State, &g.County, &g.Tract, &g.BlockGroup}
	for i, col := range geogColumns {
		idx := table.Column(col)
		if idx < 0 || idx >= len(row) {
			return census.GeographyID{}, eris.Errorf("recipe: missing column %q", col)
		}
		*fields[i] = row[idx]
	}
	return g, nil
}

func (r *CSV) loadGeographies(ctx context.Context, path string) error {
	table, err := openTable(ctx, path)
	if err != nil {
		return err
	}
	for _, row := range table.Rows {
		g, err := geogFromRow(table, row)
		if err != nil {
			return eris.Wrapf(err, "recipe: %s", path)
		}
		r.geogs = append(r.geogs, g)
	}
	return nil
}

// loadMarginals reads rows of (geography, control, category, count)
// into per-geography marginals, preserving control and category order
// of first appearance.
func (r *CSV) loadMarginals(ctx context.Context, path string, dst map[census.GeographyID]census.Marginal) error {
	table, err := openTable(ctx, path)
	if err != nil {
		return err
	}

	controlCol := table.Column("control")
	categoryCol := table.Column("category")
	countCol := table.Column("count")
	if controlCol < 0 || categoryCol < 0 || countCol < 0 {
		return eris.Errorf("recipe: %s must have control, category and count columns", path)
	}

	for _, row := range table.Rows {
		g, err := geogFromRow(table, row)
		if err != nil {
			return eris.Wrapf(err, "recipe: %s", path)
		}
		count, err := strconv.ParseFloat(row[countCol], 64)
		if err != nil {
			return eris.Wrapf(err, "recipe: %s: bad count %q", path, row[countCol])
		}

		m := dst[g]
		ci := -1
		for i, c := range m.Controls {
			if c.Name == row[controlCol] {
				ci = i
				break
			}
		}
		if ci == -1 {
			m.Controls = append(m.Controls, census.Control{Name: row[controlCol]})
			ci = len(m.Controls) - 1
		}
		m.Controls[ci].Categories = append(m.Controls[ci].Categories, census.CategoryCount{
			Category: row[categoryCol],
			Count:    count,
		})
		dst[g] = m
	}
	return nil
}

// loadSample reads rows of (serialno, cat_id, attr...) where every
// column beyond the two keys becomes a record attribute.
func loadSample(ctx context.Context, path string) (census.Sample, error) {
	table, err := openTable(ctx, path)
	if err != nil {
		return census.Sample{}, err
	}

	serialCol := table.Column("serialno")
	catCol := table.Column("cat_id")
	if serialCol < 0 || catCol < 0 {
		return census.Sample{}, eris.Errorf("recipe: %s must have serialno and cat_id columns", path)
	}

	var s census.Sample
	for _, row := range table.Rows {
		serial, err := strconv.ParseInt(row[serialCol], 10, 64)
		if err != nil {
			return census.Sample{}, eris.Wrapf(err, "recipe: %s: bad serialno %q", path, row[serialCol])
		}
		catID, err := strconv.Atoi(row[catCol])
		if err != nil {
			return census.Sample{}, eris.Wrapf(err, "recipe: %s: bad cat_id %q", path, row[catCol])
		}
		attrs := make(map[string]string)
		for i, h := range table.Header {
			if i == serialCol || i == catCol || i >= len(row) {
				continue
			}
			attrs[h] = row[i]
		}
		s.Records = append(s.Records, census.SampleRecord{SerialNo: serial, CatID: catID, Attrs: attrs})
	}
	return s, nil
}

// loadJointDist reads rows of (cat_id, frequency, level...) where
// every column beyond the two keys becomes a level assignment.
func loadJointDist(ctx context.Context, path string) (census.JointDist, error) {
	table, err := openTable(ctx, path)
	if err != nil {
		return census.JointDist{}, err
	}

	catCol := table.Column("cat_id")
	freqCol := table.Column("frequency")
	if catCol < 0 || freqCol < 0 {
		return census.JointDist{}, eris.Errorf("recipe: %s must have cat_id and frequency columns", path)
	}

	var jd census.JointDist
	seen := make(map[int]bool)
	for _, row := range table.Rows {
		catID, err := strconv.Atoi(row[catCol])
		if err != nil {
			return census.JointDist{}, eris.Wrapf(err, "recipe: %s: bad cat_id %q", path, row[catCol])
		}
		if seen[catID] {
			return census.JointDist{}, eris.Errorf("recipe: %s: duplicate cat_id %d", path, catID)
		}
		seen[catID] = true

		freq, err := strconv.ParseFloat(row[freqCol], 64)
		if err != nil {
			return census.JointDist{}, eris.Wrapf(err, "recipe: %s: bad frequency %q", path, row[freqCol])
		}
		levels := make(map[string]string)
		for i, h := range table.Header {
			if i == catCol || i == freqCol || i >= len(row) {
				continue
			}
			levels[h] = row[i]
		}
		jd.Rows = append(jd.Rows, census.JointCell{CatID: catID, Levels: levels, Frequency: freq})
	}
	return jd, nil
}
