package recipe

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rotisserie/eris"

	"github.com/sells-group/synthpop/internal/census"
	"github.com/sells-group/synthpop/internal/fetcher"
)

// HTTP serves synthesis inputs from a census-style JSON API. Request
// pacing is handled by the fetcher's rate limiter, so the parallel
// driver can fan out fetches without hammering the upstream.
type HTTP struct {
	base    string
	fetcher *fetcher.HTTPFetcher
}

// NewHTTP creates an HTTP recipe rooted at base.
func NewHTTP(base string, f *fetcher.HTTPFetcher) *HTTP {
	return &HTTP{base: base, fetcher: f}
}

type marginalDTO struct {
	Controls []struct {
		Name       string `json:"name"`
		Categories []struct {
			Category string  `json:"category"`
			Count    float64 `json:"count"`
		} `json:"categories"`
	} `json:"controls"`
}

type jointDistDTO struct {
	Sample []struct {
		SerialNo int64             `json:"serialno"`
		CatID    int               `json:"cat_id"`
		Attrs    map[string]string `json:"attrs"`
	} `json:"sample"`
	JointDist []struct {
		CatID     int               `json:"cat_id"`
		Levels    map[string]string `json:"levels"`
		Frequency float64           `json:"frequency"`
	} `json:"joint_dist"`
}

// GeographyIDs enumerates the available geographies.
func (r *HTTP) GeographyIDs(ctx context.Context) ([]census.GeographyID, error) {
	var geogs []census.GeographyID
	if err := r.fetcher.GetJSON(ctx, r.base+"/geographies", &geogs); err != nil {
		return nil, eris.Wrap(err, "recipe: list geographies")
	}
	return geogs, nil
}

func geogQuery(g census.GeographyID) string {
	q := url.Values{}
	q.Set("state", g.State)
	q.Set("county", g.County)
	q.Set("tract", g.Tract)
	q.Set("block_group", g.BlockGroup)
	return q.Encode()
}

func (r *HTTP) marginal(ctx context.Context, level string, g census.GeographyID) (census.Marginal, error) {
	var dto marginalDTO
	u := fmt.Sprintf("%s/marginals/%s?%s", r.base, level, geogQuery(g))
	if err := r.fetcher.GetJSON(ctx, u, &dto); err != nil {
		return census.Marginal{}, eris.Wrapf(err, "recipe: %s marginal for %s", level, g)
	}

	var m census.Marginal
	for _, c := range dto.Controls {
		ctl := census.Control{Name: c.Name}
		for _, cc := range c.Categories {
			ctl.Categories = append(ctl.Categories, census.CategoryCount{Category: cc.Category, Count: cc.Count})
		}
		m.Controls = append(m.Controls, ctl)
	}
	if len(m.Controls) == 0 {
		return census.Marginal{}, eris.Errorf("recipe: empty %s marginal for %s", level, g)
	}
	return m, nil
}

func (r *HTTP) jointDist(ctx context.Context, level string, g census.GeographyID) (census.Sample, census.JointDist, error) {
	var dto jointDistDTO
	u := fmt.Sprintf("%s/jointdist/%s?%s", r.base, level, geogQuery(g))
	if err := r.fetcher.GetJSON(ctx, u, &dto); err != nil {
		return census.Sample{}, census.JointDist{}, eris.Wrapf(err, "recipe: %s joint distribution for %s", level, g)
	}

	var s census.Sample
	for _, rec := range dto.Sample {
		s.Records = append(s.Records, census.SampleRecord{SerialNo: rec.SerialNo, CatID: rec.CatID, Attrs: rec.Attrs})
	}
	var jd census.JointDist
	seen := make(map[int]bool)
	for _, row := range dto.JointDist {
		if seen[row.CatID] {
			return census.Sample{}, census.JointDist{}, eris.Errorf(
				"recipe: duplicate cat_id %d in %s joint distribution for %s", row.CatID, level, g)
		}
		seen[row.CatID] = true
		jd.Rows = append(jd.Rows, census.JointCell{CatID: row.CatID, Levels: row.Levels, Frequency: row.Frequency})
	}
	return s, jd, nil
}

// HouseholdMarginal fetches the household marginal for a geography.
func (r *HTTP) HouseholdMarginal(ctx context.Context, g census.GeographyID) (census.Marginal, error) {
	return r.marginal(ctx, "household", g)
}

// PersonMarginal fetches the person marginal for a geography.
func (r *HTTP) PersonMarginal(ctx context.Context, g census.GeographyID) (census.Marginal, error) {
	return r.marginal(ctx, "person", g)
}

// HouseholdJointDist fetches the household sample and joint
// distribution for a geography.
func (r *HTTP) HouseholdJointDist(ctx context.Context, g census.GeographyID) (census.Sample, census.JointDist, error) {
	return r.jointDist(ctx, "household", g)
}

// PersonJointDist fetches the person sample and joint distribution for
// a geography.
func (r *HTTP) PersonJointDist(ctx context.Context, g census.GeographyID) (census.Sample, census.JointDist, error) {
	return r.jointDist(ctx, "person", g)
}
