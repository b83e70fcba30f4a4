package recipe

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/synthpop/internal/census"
)

func writeRecipeDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		geographiesFile: "state,county,tract,block_group\n" +
			"06,075,010100,1\n" +
			"06,075,010100,2\n",
		hhMarginalsFile: "state,county,tract,block_group,control,category,count\n" +
			"06,075,010100,1,size,small,12\n" +
			"06,075,010100,1,size,large,8\n" +
			"06,075,010100,2,size,small,0\n" +
			"06,075,010100,2,size,large,40\n",
		pMarginalsFile: "state,county,tract,block_group,control,category,count\n" +
			"06,075,010100,1,age,adult,30\n" +
			"06,075,010100,1,age,child,10\n" +
			"06,075,010100,2,age,adult,60\n" +
			"06,075,010100,2,age,child,20\n",
		hhJointFile: "cat_id,frequency,size\n" +
			"0,6,small\n" +
			"1,4,large\n",
		pJointFile: "cat_id,frequency,age\n" +
			"0,7,adult\n" +
			"1,3,child\n",
		hhSamplesFile: "serialno,cat_id,tenure\n" +
			"1,0,own\n" +
			"2,0,rent\n" +
			"3,1,own\n",
		pSamplesFile: "serialno,cat_id,sex\n" +
			"1,0,f\n" +
			"2,0,m\n" +
			"2,1,f\n" +
			"3,1,m\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestOpenCSV(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec, err := OpenCSV(ctx, writeRecipeDir(t))
	require.NoError(t, err)

	geogs, err := rec.GeographyIDs(ctx)
	require.NoError(t, err)
	require.Len(t, geogs, 2)
	assert.Equal(t, census.GeographyID{State: "06", County: "075", Tract: "010100", BlockGroup: "1"}, geogs[0])

	m, err := rec.HouseholdMarginal(ctx, geogs[0])
	require.NoError(t, err)
	require.Len(t, m.Controls, 1)
	assert.Equal(t, "size", m.Controls[0].Name)
	assert.Equal(t, []census.CategoryCount{
		{Category: "small", Count: 12},
		{Category: "large", Count: 8},
	}, m.Controls[0].Categories)
	assert.Equal(t, 20, m.NumHouseholds())

	pm, err := rec.PersonMarginal(ctx, geogs[1])
	require.NoError(t, err)
	assert.Equal(t, 80.0, pm.Controls[0].Categories[0].Count+pm.Controls[0].Categories[1].Count)

	hPums, hJD, err := rec.HouseholdJointDist(ctx, geogs[0])
	require.NoError(t, err)
	require.Len(t, hPums.Records, 3)
	assert.Equal(t, "own", hPums.Records[0].Attrs["tenure"])
	require.Len(t, hJD.Rows, 2)
	assert.Equal(t, "small", hJD.Rows[0].Levels["size"])
	assert.Equal(t, 6.0, hJD.Rows[0].Frequency)

	pPums, pJD, err := rec.PersonJointDist(ctx, geogs[0])
	require.NoError(t, err)
	assert.Len(t, pPums.Records, 4)
	assert.Len(t, pJD.Rows, 2)
}

func TestCSVUnknownGeography(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec, err := OpenCSV(ctx, writeRecipeDir(t))
	require.NoError(t, err)

	_, err = rec.HouseholdMarginal(ctx, census.GeographyID{State: "48"})
	assert.ErrorContains(t, err, "no household marginal")

	_, err = rec.PersonMarginal(ctx, census.GeographyID{State: "48"})
	assert.ErrorContains(t, err, "no person marginal")
}

func TestOpenCSVErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()
		_, err := OpenCSV(ctx, filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})

	t.Run("duplicate cat_id", func(t *testing.T) {
		t.Parallel()
		dir := writeRecipeDir(t)
		bad := "cat_id,frequency,size\n0,6,small\n0,4,large\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, hhJointFile), []byte(bad), 0o644))
		_, err := OpenCSV(ctx, dir)
		assert.ErrorContains(t, err, "duplicate cat_id")
	})

	t.Run("bad count", func(t *testing.T) {
		t.Parallel()
		dir := writeRecipeDir(t)
		bad := "state,county,tract,block_group,control,category,count\n06,075,010100,1,size,small,abc\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, hhMarginalsFile), []byte(bad), 0o644))
		_, err := OpenCSV(ctx, dir)
		assert.ErrorContains(t, err, "bad count")
	})
}
