package risk

import "tachyon/fixed"

// PositionTracker keeps per-instrument signed position, weighted average
// entry price, mark price, and realized P&L in flat arrays indexed by
// instrument id. All methods are O(instruments) or better and run on the
// single thread that consumes execution reports. Floating point appears
// only in the P&L arithmetic.
type PositionTracker struct {
	positions  [fixed.MaxInstruments]int64
	avgPrices  [fixed.MaxInstruments]float64
	markPrices [fixed.MaxInstruments]fixed.Price
	instPnL    [fixed.MaxInstruments]float64
	realized   float64
}

func NewPositionTracker() *PositionTracker {
	return &PositionTracker{}
}

// OnFill applies one fill. Increasing the position in its current
// direction reweights the average entry; reducing it realizes P&L on
// the closed portion; flipping through zero starts a fresh average at
// the fill price.
func (t *PositionTracker) OnFill(instrument fixed.InstrumentID, side fixed.Side,
	quantity fixed.Quantity, price fixed.Price) {

	if instrument >= fixed.MaxInstruments {
		return
	}

	signedQty := int64(quantity)
	fillPrice := fixed.ToFloat(price)
	pos := &t.positions[instrument]
	avg := &t.avgPrices[instrument]

	if side == fixed.Buy {
		if *pos >= 0 {
			totalCost := *avg*float64(*pos) + fillPrice*float64(signedQty)
			*pos += signedQty
			if *pos > 0 {
				*avg = totalCost / float64(*pos)
			}
		} else {
			coverQty := signedQty
			if -*pos < coverQty {
				coverQty = -*pos
			}
			pnl := float64(coverQty) * (*avg - fillPrice)
			t.realized += pnl
			t.instPnL[instrument] += pnl
			*pos += signedQty
			if *pos > 0 {
				*avg = fillPrice // flipped long
			} else if *pos == 0 {
				*avg = 0
			}
		}
	} else {
		if *pos <= 0 {
			totalCost := *avg*float64(-*pos) + fillPrice*float64(signedQty)
			*pos -= signedQty
			if *pos < 0 {
				*avg = totalCost / float64(-*pos)
			}
		} else {
			closeQty := signedQty
			if *pos < closeQty {
				closeQty = *pos
			}
			pnl := float64(closeQty) * (fillPrice - *avg)
			t.realized += pnl
			t.instPnL[instrument] += pnl
			*pos -= signedQty
			if *pos < 0 {
				*avg = fillPrice // flipped short
			} else if *pos == 0 {
				*avg = 0
			}
		}
	}
}

// UpdateMarkPrice records the latest market price for unrealized P&L.
func (t *PositionTracker) UpdateMarkPrice(instrument fixed.InstrumentID, price fixed.Price) {
	if instrument < fixed.MaxInstruments {
		t.markPrices[instrument] = price
	}
}

func (t *PositionTracker) Position(instrument fixed.InstrumentID) int64 {
	if instrument >= fixed.MaxInstruments {
		return 0
	}
	return t.positions[instrument]
}

func (t *PositionTracker) AvgPrice(instrument fixed.InstrumentID) float64 {
	if instrument >= fixed.MaxInstruments {
		return 0
	}
	return t.avgPrices[instrument]
}

func (t *PositionTracker) InstrumentPnL(instrument fixed.InstrumentID) float64 {
	if instrument >= fixed.MaxInstruments {
		return 0
	}
	return t.instPnL[instrument]
}

// TotalAbsolutePosition sums |position| across instruments.
func (t *PositionTracker) TotalAbsolutePosition() int64 {
	var total int64
	for _, p := range t.positions {
		if p < 0 {
			total -= p
		} else {
			total += p
		}
	}
	return total
}

func (t *PositionTracker) RealizedPnL() float64 { return t.realized }

// UnrealizedPnL marks open positions against the last known mark price.
// Instruments without a mark are skipped.
func (t *PositionTracker) UnrealizedPnL() float64 {
	var pnl float64
	for i := range t.positions {
		pos := t.positions[i]
		if pos == 0 || t.markPrices[i] == 0 {
			continue
		}
		mark := fixed.ToFloat(t.markPrices[i])
		if pos > 0 {
			pnl += float64(pos) * (mark - t.avgPrices[i])
		} else {
			pnl += float64(-pos) * (t.avgPrices[i] - mark)
		}
	}
	return pnl
}

func (t *PositionTracker) TotalPnL() float64 {
	return t.realized + t.UnrealizedPnL()
}

// CapitalUsed approximates deployed capital as |position| * price over
// open positions, preferring the mark over the entry average.
func (t *PositionTracker) CapitalUsed() float64 {
	var capital float64
	for i := range t.positions {
		pos := t.positions[i]
		if pos == 0 {
			continue
		}
		price := t.avgPrices[i]
		if t.markPrices[i] > 0 {
			price = fixed.ToFloat(t.markPrices[i])
		}
		if pos < 0 {
			pos = -pos
		}
		capital += float64(pos) * price
	}
	return capital
}

// Reset zeroes every position and P&L accumulator.
func (t *PositionTracker) Reset() {
	*t = PositionTracker{}
}
