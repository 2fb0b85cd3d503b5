package split

import (
	"slices"
	"strconv"
	"testing"

	"dataingest/internal/dataset"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbered(n int) *dataset.Table {
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		rows[i] = []string{"ham", "message " + strconv.Itoa(i)}
	}
	return &dataset.Table{Columns: []string{"target", "text"}, Rows: rows}
}

func keys(t *dataset.Table) []string {
	out := make([]string, t.Len())
	for i, r := range t.Rows {
		out[i] = r[1]
	}
	return out
}

func TestSplit_TenRows(t *testing.T) {
	res, err := Split(numbered(10), 0.2, DefaultSeed)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Test.Len())
	assert.Equal(t, 8, res.Train.Len())
	assert.Equal(t, []string{"target", "text"}, res.Train.Columns)
	assert.Equal(t, []string{"target", "text"}, res.Test.Columns)

	for _, k := range keys(res.Test) {
		assert.NotContains(t, keys(res.Train), k)
	}
}

func TestSplit_PartitionsCoverInput(t *testing.T) {
	for _, n := range []int{2, 3, 7, 10, 57, 1000} {
		for _, f := range []float64{0.1, 0.2, 0.25, 0.5, 0.9} {
			in := numbered(n)
			res, err := Split(in, f, DefaultSeed)
			if err != nil {
				assert.ErrorIs(t, err, ErrSplit)
				continue
			}

			_, wantTest, _ := Sizes(n, f)
			assert.Equal(t, wantTest, res.Test.Len())
			assert.Equal(t, n, res.Train.Len()+res.Test.Len())

			union := append(keys(res.Train), keys(res.Test)...)
			slices.Sort(union)
			want := keys(in)
			slices.Sort(want)
			if diff := cmp.Diff(want, union); diff != "" {
				t.Errorf("n=%d f=%v union mismatch (-want +got):\n%s", n, f, diff)
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	a, err := Split(numbered(100), 0.2, DefaultSeed)
	require.NoError(t, err)
	b, err := Split(numbered(100), 0.2, DefaultSeed)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed gave different splits (-a +b):\n%s", diff)
	}

	c, err := Split(numbered(100), 0.2, DefaultSeed+1)
	require.NoError(t, err)
	assert.NotEqual(t, keys(a.Test), keys(c.Test))
}

func TestSizes(t *testing.T) {
	tests := []struct {
		n         int
		f         float64
		train     int
		test      int
		wantError bool
	}{
		{n: 10, f: 0.2, train: 8, test: 2},
		{n: 5572, f: 0.2, train: 4457, test: 1115},
		{n: 3, f: 0.5, train: 1, test: 2},
		{n: 1, f: 0.5, wantError: true},
		{n: 0, f: 0.2, wantError: true},
		{n: 10, f: 0, wantError: true},
		{n: 10, f: 1, wantError: true},
	}
	for _, tt := range tests {
		train, test, err := Sizes(tt.n, tt.f)
		if tt.wantError {
			assert.ErrorIs(t, err, ErrSplit, "n=%d f=%v", tt.n, tt.f)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.train, train, "n=%d f=%v", tt.n, tt.f)
		assert.Equal(t, tt.test, test, "n=%d f=%v", tt.n, tt.f)
	}
}
