package factors

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarifa/internal/coreerr"
	"tarifa/internal/panel"
)

func testDate(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func defaultConfig() Config {
	return Config{
		WinsorizeEnabled:   true,
		WinsorizePct:       0.01,
		ShortTermLookback:  21,
		MediumTermLookback: 126,
		LongTermLookback:   252,
		LongTermSkip:       21,
	}
}

func buildCloseOnlyPanel(t *testing.T, symbol string, closes []float64, start time.Time) *panel.Panel {
	t.Helper()
	b := panel.NewBuilder([]string{panel.ColClose})
	d := start
	for _, c := range closes {
		require.NoError(t, b.AddRow(panel.Row{Symbol: symbol, Date: d, Close: c}))
		d = d.AddDate(0, 0, 1)
	}
	return b.Build()
}

func TestMomentum_SeedScenario(t *testing.T) {
	closes := []float64{100, 105, 110, 115, 121}
	start := testDate("2024-01-01")
	p := buildCloseOnlyPanel(t, "AAPL", closes, start)
	lastDate := start.AddDate(0, 0, len(closes)-1)

	cfg := defaultConfig()
	cfg.WinsorizeEnabled = false
	f := momentumFactor{winsorTail: tailFromConfig(cfg), name: "test", lookback: 4}
	out, err := f.Score(p, lastDate)
	require.NoError(t, err)
	require.Len(t, out, 1)
	// single-symbol standardization degenerates (n<2) to zero, so the
	// standardized output is 0 whatever the raw momentum value is.
	assert.InDelta(t, 0.0, out[0].Value, 1e-9)
}

func TestMomentum_InsufficientHistoryDropsSymbol(t *testing.T) {
	closes := []float64{100, 105}
	start := testDate("2024-01-01")
	p := buildCloseOnlyPanel(t, "AAPL", closes, start)
	lastDate := start.AddDate(0, 0, len(closes)-1)

	f := NewShortTermMomentum(defaultConfig())
	_, err := f.Score(p, lastDate)
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.InsufficientData))
}

func TestMomentum_MissingColumn(t *testing.T) {
	b := panel.NewBuilder([]string{})
	require.NoError(t, b.AddRow(panel.Row{Symbol: "AAPL", Date: testDate("2024-01-01"), Close: 1}))
	p := b.Build()

	f := momentumFactor{name: "test", lookback: 5}
	_, err := f.Score(p, testDate("2024-01-01"))
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.MissingColumn))
}

func buildFundamentalPanel(t *testing.T) *panel.Panel {
	t.Helper()
	b := panel.NewBuilder([]string{panel.ColClose, panel.ColBookValue, panel.ColMarketCap, panel.ColNetIncome})
	rows := []panel.Row{
		{Symbol: "AAPL", Date: testDate("2024-01-01"), Close: 150, BookValue: 50, MarketCap: 2000, NetIncome: 100},
		{Symbol: "MSFT", Date: testDate("2024-01-01"), Close: 300, BookValue: 80, MarketCap: 3000, NetIncome: 150},
		{Symbol: "ZERO", Date: testDate("2024-01-01"), Close: 10, BookValue: 5, MarketCap: 0, NetIncome: 1},
	}
	for _, r := range rows {
		require.NoError(t, b.AddRow(r))
	}
	return b.Build()
}

func TestBookToPrice_DropsZeroMarketCap(t *testing.T) {
	p := buildFundamentalPanel(t)
	f := NewBookToPrice(defaultConfig())
	out, err := f.Score(p, testDate("2024-01-01"))
	require.NoError(t, err)

	symbols := out.Symbols()
	assert.NotContains(t, symbols, "ZERO")
	assert.Contains(t, symbols, "AAPL")
	assert.Contains(t, symbols, "MSFT")
}

func TestProfitMargins_RevenueEpsilon(t *testing.T) {
	b := panel.NewBuilder([]string{panel.ColNetIncome, panel.ColRevenue})
	require.NoError(t, b.AddRow(panel.Row{Symbol: "A", Date: testDate("2024-01-01"), NetIncome: 10, Revenue: 100}))
	require.NoError(t, b.AddRow(panel.Row{Symbol: "B", Date: testDate("2024-01-01"), NetIncome: 10, Revenue: 0}))
	require.NoError(t, b.AddRow(panel.Row{Symbol: "C", Date: testDate("2024-01-01"), NetIncome: 20, Revenue: 200}))
	p := b.Build()

	f := NewProfitMargins(defaultConfig(), NetMargin)
	out, err := f.Score(p, testDate("2024-01-01"))
	require.NoError(t, err)
	assert.NotContains(t, out.Symbols(), "B")
}

func TestRegistry_ResolvesAliases(t *testing.T) {
	f, err := New("mom_1m", defaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "short_term_momentum", f.Name())
}

func TestRegistry_UnknownNameIsSignalNotFound(t *testing.T) {
	_, err := New("not_a_real_signal", defaultConfig())
	require.Error(t, err)
	assert.True(t, coreerr.Is(err, coreerr.SignalNotFound))
}

func TestRegistry_AvailableSignalsNonEmptyAcrossCategories(t *testing.T) {
	infos := AvailableSignals()
	assert.NotEmpty(t, infos)

	categories := map[Category]bool{}
	for _, i := range infos {
		categories[i.Category] = true
	}
	assert.True(t, categories[CategoryMomentum])
	assert.True(t, categories[CategoryValue])
	assert.True(t, categories[CategoryQuality])
}

func TestRegistry_SignalsByCategory(t *testing.T) {
	momentum := SignalsByCategory(CategoryMomentum)
	assert.Len(t, momentum, 3)
}

func TestRegistry_GetSignalInfo(t *testing.T) {
	info, ok := GetSignalInfo("short_term_momentum")
	require.True(t, ok)
	assert.Equal(t, 21, info.TypicalLookback)

	_, ok = GetSignalInfo("nonexistent")
	assert.False(t, ok)
}

func TestFactorScore_NaNRawDropsSymbolNotWholeCall(t *testing.T) {
	b := panel.NewBuilder([]string{panel.ColNetIncome, panel.ColMarketCap})
	require.NoError(t, b.AddRow(panel.Row{Symbol: "A", Date: testDate("2024-01-01"), NetIncome: 10, MarketCap: 100}))
	require.NoError(t, b.AddRow(panel.Row{Symbol: "B", Date: testDate("2024-01-01"), NetIncome: math.NaN(), MarketCap: 100}))
	p := b.Build()

	f := NewEarningsYield(defaultConfig())
	out, err := f.Score(p, testDate("2024-01-01"))
	require.NoError(t, err)
	assert.NotContains(t, out.Symbols(), "B")
	assert.Contains(t, out.Symbols(), "A")
}
