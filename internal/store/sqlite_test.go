package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/synthpop/internal/census"
	"github.com/sells-group/synthpop/internal/synth"
)

func testResult() *synth.Result {
	g1 := census.GeographyID{State: "06", County: "075", Tract: "010100", BlockGroup: "1"}
	g2 := census.GeographyID{State: "06", County: "075", Tract: "010100", BlockGroup: "2"}
	return &synth.Result{
		Households: census.HouseholdTable{Rows: []census.Household{
			{ID: 0, CatID: 0, Attrs: map[string]string{"tenure": "own"}, Geog: g1},
			{ID: 1, CatID: 1, Attrs: map[string]string{"tenure": "rent"}, Geog: g2},
		}},
		Persons: census.PersonTable{Rows: []census.Person{
			{HHID: 0, CatID: 2, Attrs: map[string]string{"age": "adult"}},
			{HHID: 0, CatID: 3, Attrs: map[string]string{"age": "child"}},
			{HHID: 1, CatID: 2, Attrs: map[string]string{"age": "adult"}},
		}},
		FitQuality: map[census.GeographyID]census.FitQuality{
			g1: {Chisq: 1.2, P: 0.55},
			g2: {Chisq: 0.4, P: 0.94},
		},
	}
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(t.TempDir() + "/synthpop.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteSaveAndQuery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	run := Run{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Result:    testResult(),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Households)
	assert.Equal(t, 3, runs[0].Persons)
	assert.Equal(t, 0, runs[0].Failures)

	fq, err := s.FitQuality(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, fq, 2)
	g1 := census.GeographyID{State: "06", County: "075", Tract: "010100", BlockGroup: "1"}
	assert.Equal(t, census.FitQuality{Chisq: 1.2, P: 0.55}, fq[g1])
}

func TestSQLiteDuplicateRunID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := openTestStore(t)

	run := Run{ID: "dup", CreatedAt: time.Now(), Result: testResult()}
	require.NoError(t, s.SaveRun(ctx, run))
	assert.Error(t, s.SaveRun(ctx, run))
}

func TestSQLiteFitQualityUnknownRun(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	fq, err := s.FitQuality(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, fq)
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "oracle", "")
	assert.ErrorContains(t, err, "unknown driver")
}
