package data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseFilters() Filters {
	return Filters{
		Page:         1,
		Limit:        20,
		Sort:         "-created_at",
		SortSafeList: BookSortSafeList,
	}
}

func Test_BuildBookQuery_ValuesNeverInterpolated(t *testing.T) {
	f := baseFilters()
	f.ModuleType = "PERSONAL"
	f.Status = "ACTIVE"
	f.Search = "trip"

	dataPlan, countPlan, err := BuildBookQuery(f)
	require.NoError(t, err)

	// Filter values travel as bind arguments, never in the query text.
	for _, plan := range []QueryPlan{dataPlan, countPlan} {
		assert.Contains(t, plan.SQL, "$1")
		assert.NotContains(t, plan.SQL, "PERSONAL")
		assert.NotContains(t, plan.SQL, "ACTIVE")
		assert.NotContains(t, plan.SQL, "trip")
	}

	assert.Contains(t, dataPlan.Args, "PERSONAL")
	assert.Contains(t, dataPlan.Args, "ACTIVE")
	assert.Contains(t, dataPlan.Args, "%trip%")
}

func Test_BuildBookQuery_CountSharesPredicates(t *testing.T) {
	f := baseFilters()
	f.ModuleType = "FAMILY"
	f.Search = "fund"
	f.StartDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.EndDate = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	dataPlan, countPlan, err := BuildBookQuery(f)
	require.NoError(t, err)

	// The data plan carries the same predicate arguments as the count plan,
	// plus limit and offset at the end.
	require.GreaterOrEqual(t, len(dataPlan.Args), len(countPlan.Args))
	assert.Equal(t, countPlan.Args, dataPlan.Args[:len(countPlan.Args)])
	assert.Contains(t, countPlan.SQL, "COUNT")
}

func Test_BuildBookQuery_SearchMatchesDeclaredColumnsWithOR(t *testing.T) {
	f := baseFilters()
	f.Search = "trip"
	f.ModuleType = "PERSONAL"

	dataPlan, _, err := BuildBookQuery(f)
	require.NoError(t, err)

	assert.Contains(t, dataPlan.SQL, `"name" ILIKE`)
	assert.Contains(t, dataPlan.SQL, `"description" ILIKE`)
	assert.Contains(t, dataPlan.SQL, " OR ")
	// The search OR-group is ANDed with the categorical filter.
	assert.Contains(t, dataPlan.SQL, " AND ")
}

func Test_BuildBookQuery_SortFallsBackToDefault(t *testing.T) {
	f := baseFilters()
	f.Sort = "creator_id; DROP TABLE books" // not on the safe list

	dataPlan, _, err := BuildBookQuery(f)
	require.NoError(t, err)

	assert.Contains(t, dataPlan.SQL, `"created_at" DESC`)
	assert.NotContains(t, dataPlan.SQL, "DROP TABLE")
}

func Test_BuildBookQuery_StableTiebreak(t *testing.T) {
	f := baseFilters()
	f.Sort = "name"

	dataPlan, _, err := BuildBookQuery(f)
	require.NoError(t, err)

	// Requested column first, then created_at and id so repeated requests
	// over unchanged data paginate identically.
	assert.Contains(t, dataPlan.SQL, `"name" ASC`)
	assert.Contains(t, dataPlan.SQL, `"created_at" ASC`)
	assert.Contains(t, dataPlan.SQL, `"id" ASC`)
}

func Test_BuildBookQuery_DescendingSort(t *testing.T) {
	f := baseFilters()
	f.Sort = "-updated_at"

	dataPlan, _, err := BuildBookQuery(f)
	require.NoError(t, err)
	assert.Contains(t, dataPlan.SQL, `"updated_at" DESC`)
}

func Test_BuildBookQuery_NoFilters(t *testing.T) {
	dataPlan, countPlan, err := BuildBookQuery(baseFilters())
	require.NoError(t, err)

	assert.NotContains(t, countPlan.SQL, "WHERE")
	assert.Contains(t, dataPlan.SQL, "LIMIT")
}

func Test_BuildBookQuery_PaginationOffset(t *testing.T) {
	f := baseFilters()
	f.Page = 3

	dataPlan, _, err := BuildBookQuery(f)
	require.NoError(t, err)
	assert.Contains(t, dataPlan.SQL, "OFFSET")
}

func Test_Filters_LimitClamp(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "zero_defaults_to_max", limit: 0, want: MaxPageSize},
		{name: "within_bounds", limit: 25, want: 25},
		{name: "above_hard_cap", limit: 1000, want: MaxPageSize},
		{name: "exactly_at_cap", limit: MaxPageSize, want: MaxPageSize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := Filters{Limit: tc.limit}
			assert.Equal(t, tc.want, f.EffectiveLimit())
		})
	}
}

func Test_Filters_Offset(t *testing.T) {
	f := Filters{Page: 3, Limit: 10}
	assert.Equal(t, 20, f.offset())

	// Page zero is normalized to the first page.
	f = Filters{Page: 0, Limit: 10}
	assert.Equal(t, 0, f.offset())
}

func Test_Filters_EffectiveSort(t *testing.T) {
	tests := []struct {
		name string
		sort string
		want string
	}{
		{name: "default", sort: "-created_at", want: "-created_at"},
		{name: "ascending", sort: "name", want: "name"},
		{name: "descending", sort: "-name", want: "-name"},
		{name: "unrecognized_falls_back", sort: "created_at; DROP TABLE books", want: "-created_at"},
		{name: "empty_falls_back", sort: "", want: "-created_at"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := baseFilters()
			f.Sort = tc.sort
			assert.Equal(t, tc.want, f.EffectiveSort())
		})
	}
}
