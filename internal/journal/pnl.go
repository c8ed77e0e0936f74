package journal

// Pnl computes absolute and percentage profit-and-loss for a position
// entered at entryPrice and marked at livePrice. A zero cost basis
// yields a zero percentage rather than a division by zero.
func Pnl(entryPrice, quantity, livePrice float64) (pnl, pnlPercent float64) {
	costBasis := entryPrice * quantity
	currentValue := livePrice * quantity
	pnl = currentValue - costBasis
	if costBasis > 0 {
		pnlPercent = pnl / costBasis * 100
	}
	return pnl, pnlPercent
}
