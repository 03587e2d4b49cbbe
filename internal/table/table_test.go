package table

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liknorm "github.com/ieee0824/liknorm-go"
)

func TestRead(t *testing.T) {
	in := `normal_mean,normal_variance,likname,y,aphi,mean,variance
0.5,1.0,poisson,3,1.0,0.91,0.19
-2, 0.3, bernoulli , 1, -2, -1.5, 0.2
`
	rows, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, Row{
		Line: 2, NormalMean: 0.5, NormalVariance: 1, Family: "poisson",
		Y: 3, Dispersion: 1, Mean: 0.91, Variance: 0.19,
	}, rows[0])
	assert.Equal(t, "bernoulli", rows[1].Family)
	assert.Equal(t, -2.0, rows[1].Dispersion)
	assert.Equal(t, 3, rows[1].Line)

	msg := rows[0].Normal()
	assert.InDelta(t, 0.5, msg.Eta, 1e-15)
	assert.InDelta(t, 1, msg.Tau, 1e-15)

	ef, err := rows[1].ExpFam()
	require.NoError(t, err)
	assert.Equal(t, 2.0, ef.Aphi)
	assert.Equal(t, -1.0, ef.AphiSign)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"empty", "", "empty table"},
		{"short row", "h\n1,2,poisson,3\n", "line 2: want 7 columns, got 4"},
		{"bad number", "h\n1,2,poisson,x,1,0,0\n", "line 2: column 4"},
		{"bad later row", "h\n1,2,poisson,3,1,0,0\n1,2,poisson,3,1,zero,0\n", "line 3: column 6"},
	}
	for _, tt := range tests {
		_, err := Read(strings.NewReader(tt.in))
		require.Error(t, err, tt.name)
		assert.Contains(t, err.Error(), tt.want, tt.name)
	}
}

func TestUnknownFamilyRow(t *testing.T) {
	rows, err := Read(strings.NewReader("h\n0,1,not-a-family,1,1,0,0\n"))
	require.NoError(t, err)
	_, err = rows[0].ExpFam()
	assert.ErrorIs(t, err, liknorm.ErrUnknownFamily)
}

func TestReferenceFixture(t *testing.T) {
	rows, err := ReadFile(filepath.Join("..", "..", "testdata", "table.csv"))
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	m, err := liknorm.NewMachine(2000, 1e-7)
	require.NoError(t, err)
	defer m.Destroy()

	for _, row := range rows {
		ef, err := row.ExpFam()
		require.NoError(t, err, "line %d", row.Line)
		mean, variance, err := m.MeanVariance(ef, row.Normal())
		require.NoError(t, err, "line %d", row.Line)
		assert.False(t, math.IsNaN(mean) || math.IsNaN(variance))
		assert.InDelta(t, row.Mean, mean, 1e-6*math.Max(1, math.Sqrt(row.Variance)), "line %d", row.Line)
		assert.InDelta(t, row.Variance, variance, 1e-6*math.Max(1, row.Variance), "line %d", row.Line)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
