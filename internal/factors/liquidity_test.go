package factors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarifa/internal/coreerr"
	"tarifa/internal/panel"
)

func buildCloseVolumePanel(t *testing.T, rows map[string][]panel.Row) *panel.Panel {
	t.Helper()
	b := panel.NewBuilder([]string{panel.ColClose, panel.ColVolume})
	for _, symbolRows := range rows {
		for _, r := range symbolRows {
			require.NoError(t, b.AddRow(r))
		}
	}
	return b.Build()
}

func TestAmihudIlliquidity_LiquidVsIlliquid(t *testing.T) {
	start := testDate("2024-01-01")
	day := func(i int) time.Time { return start.AddDate(0, 0, i) }

	// LIQUID: small moves, huge volume. ILLIQUID: big moves, tiny volume.
	liquid := make([]panel.Row, 0, 10)
	illiquid := make([]panel.Row, 0, 10)
	price := 100.0
	thinPrice := 100.0
	for i := 0; i < 10; i++ {
		liquid = append(liquid, panel.Row{Symbol: "LIQ", Date: day(i), Close: price, Volume: 10_000_000})
		illiquid = append(illiquid, panel.Row{Symbol: "ILL", Date: day(i), Close: thinPrice, Volume: 500})
		price *= 1.001
		thinPrice *= 1.02
	}

	p := buildCloseVolumePanel(t, map[string][]panel.Row{"LIQ": liquid, "ILL": illiquid})

	cfg := defaultConfig()
	cfg.WinsorizeEnabled = false
	f := amihudIlliquidity{winsorTail: tailFromConfig(cfg), lookback: 9}
	out, err := f.Score(p, day(9))
	require.NoError(t, err)
	require.Len(t, out, 2)

	byScore := make(map[string]float64)
	for _, s := range out {
		byScore[s.Symbol] = s.Value
	}
	assert.Greater(t, byScore["ILL"], byScore["LIQ"])
}

func TestAmihudIlliquidity_InsufficientHistoryDropsSymbol(t *testing.T) {
	start := testDate("2024-01-01")
	rows := map[string][]panel.Row{
		"AAPL": {
			{Symbol: "AAPL", Date: start, Close: 100, Volume: 1000},
			{Symbol: "AAPL", Date: start.AddDate(0, 0, 1), Close: 101, Volume: 1000},
		},
	}
	p := buildCloseVolumePanel(t, rows)

	f := NewAmihudIlliquidity(defaultConfig())
	_, err := f.Score(p, start.AddDate(0, 0, 1))
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.InsufficientData))
}

func TestAmihudIlliquidity_MissingColumn(t *testing.T) {
	b := panel.NewBuilder([]string{})
	require.NoError(t, b.AddRow(panel.Row{Symbol: "AAPL", Date: testDate("2024-01-01"), Close: 1}))
	p := b.Build()

	f := NewAmihudIlliquidity(defaultConfig())
	_, err := f.Score(p, testDate("2024-01-01"))
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.MissingColumn))
}
