package panel

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_ParsesRequiredAndOptionalColumns(t *testing.T) {
	csv := `symbol,date,close,market_cap,net_income
AAA,2026-01-02,100.5,5000,200
AAA,2026-01-03,101.0,5050,
BBB,2026-01-02,50.0,,`

	p, err := ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())

	row, ok := p.LatestRow("AAA", time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, 101.0, row.Close)
	assert.True(t, row.NetIncome != row.NetIncome) // NaN: blank field
}

func TestReadCSV_MissingRequiredColumnErrors(t *testing.T) {
	csv := `symbol,close
AAA,100`
	_, err := ReadCSV(strings.NewReader(csv))
	require.Error(t, err)
}

func TestReadCSV_RejectsBadDate(t *testing.T) {
	csv := `symbol,date,close
AAA,not-a-date,100`
	_, err := ReadCSV(strings.NewReader(csv))
	require.Error(t, err)
}

func TestReadCSV_RejectsDuplicateKey(t *testing.T) {
	csv := `symbol,date,close
AAA,2026-01-02,100
AAA,2026-01-02,101`
	_, err := ReadCSV(strings.NewReader(csv))
	require.Error(t, err)
}
