package factors

import (
	"math"
	"time"

	"tarifa/internal/panel"
)

// amihudIlliquidity scores each symbol by the Amihud (2002) illiquidity
// measure: the average ratio of a day's absolute return to its dollar
// volume. A high score means a symbol's price moves a lot per dollar
// traded, i.e. it is illiquid; standardization then turns this into a
// cross-sectional liquidity-premium signal like any other factor.
type amihudIlliquidity struct {
	winsorTail
	lookback int
}

// NewAmihudIlliquidity builds the Amihud illiquidity factor over the
// medium-term lookback window.
func NewAmihudIlliquidity(cfg Config) Factor {
	return amihudIlliquidity{winsorTail: tailFromConfig(cfg), lookback: cfg.MediumTermLookback}
}

func (f amihudIlliquidity) Name() string { return "amihud_illiquidity" }
func (f amihudIlliquidity) Lookback() int { return f.lookback }
func (f amihudIlliquidity) RequiredColumns() []string {
	return []string{panel.ColClose, panel.ColVolume}
}

func (f amihudIlliquidity) Score(p *panel.Panel, d time.Time) (FactorScore, error) {
	if err := p.RequireColumns(panel.ColClose, panel.ColVolume); err != nil {
		return nil, err
	}

	restricted := p.AsOf(d)
	var raws []rawScore
	for _, symbol := range restricted.Symbols() {
		rows := restricted.RowSeries(symbol, d)
		n := len(rows)
		if n < f.lookback+1 {
			raws = append(raws, rawScore{symbol: symbol, ok: false})
			continue
		}

		window := rows[n-f.lookback:]
		var sum float64
		var count int
		for i := 1; i < len(window); i++ {
			prevClose := window[i-1].Close
			dollarVolume := window[i].Close * window[i].Volume
			if prevClose <= 0 || dollarVolume <= 0 {
				continue
			}
			ret := window[i].Close/prevClose - 1
			sum += math.Abs(ret) / dollarVolume
			count++
		}

		if count == 0 {
			raws = append(raws, rawScore{symbol: symbol, ok: false})
			continue
		}
		raws = append(raws, rawScore{symbol: symbol, value: sum / float64(count), ok: true})
	}

	return f.finalize(raws)
}
