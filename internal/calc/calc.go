// Package calc implements the pure leverage/risk calculation engine.
// CalculateMetrics is deterministic, allocates a fresh Result per call and
// never panics; every failure path is expressed as Ready:false plus warnings.
package calc

import "math"

// posFinite reports whether v is a usable positive number.
func posFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func ptr(v float64) *float64 { return &v }

// CalculateMetrics maps trade inputs to leverage, risk and reward figures.
//
// Validation short-circuits in a fixed order: entry/stop sanity first,
// then the stop distance, then mode-specific requirements. A not-ready
// result may still carry direction, price delta and theoretical leverage,
// which callers are expected to display as partial output.
func CalculateMetrics(in Inputs) Result {
	res := Result{Warnings: []Warning{}}

	// Malformed entry/stop intentionally produces no warning: the UI treats
	// "not ready, no guidance" as awaiting input.
	if !posFinite(in.EntryPrice) || !posFinite(in.StopPrice) {
		return res
	}
	if in.EntryPrice == in.StopPrice {
		res.Warnings = append(res.Warnings, WarnStopEqualsEntry)
		return res
	}

	dir := DirectionShort
	if in.StopPrice < in.EntryPrice {
		dir = DirectionLong
	}
	res.Direction = dir

	delta := math.Abs(in.EntryPrice - in.StopPrice)
	res.PriceDelta = ptr(delta)
	res.PriceDeltaPct = ptr(delta / in.EntryPrice * 100)
	if delta == 0 {
		res.Warnings = append(res.Warnings, WarnInvalidStop)
		return res
	}

	// Leverage implied purely by stop distance, valid in both exposure modes.
	res.TheoreticalMaxLeverage = ptr(in.EntryPrice / delta)

	allowedLoss := resolveAllowedLoss(in, &res)
	res.AllowedLoss = allowedLoss

	switch in.ExposureMode {
	case ExposurePosition:
		calcPositionBranch(in, &res, dir, delta, allowedLoss)
	default:
		calcMarginBranch(in, &res, dir, delta, allowedLoss)
	}
	return res
}

// resolveAllowedLoss turns the risk setting into a currency amount, or nil
// when the inputs cannot produce one. Percent-of-capital has no meaning
// without a capital base, so percent+position yields a warning instead.
func resolveAllowedLoss(in Inputs, res *Result) *float64 {
	switch in.RiskMode {
	case RiskPercent:
		if in.ExposureMode == ExposurePosition {
			res.Warnings = append(res.Warnings, WarnPercentPosition)
			return nil
		}
		if posFinite(in.MarginCapital) && posFinite(in.RiskValue) {
			return ptr(in.MarginCapital * in.RiskValue / 100)
		}
		return nil
	default: // amount
		if posFinite(in.RiskValue) {
			return ptr(in.RiskValue)
		}
		return nil
	}
}

func calcMarginBranch(in Inputs, res *Result, dir Direction, delta float64, allowedLoss *float64) {
	if !posFinite(in.MarginCapital) {
		if len(res.Warnings) == 0 {
			res.Warnings = append(res.Warnings, WarnInvalidMargin)
		}
		return
	}
	if allowedLoss == nil {
		res.Warnings = append(res.Warnings, WarnInvalidLoss)
		return
	}

	leverage := (*allowedLoss * in.EntryPrice) / (in.MarginCapital * delta)
	maxPosition := in.MarginCapital * leverage

	res.MaxLeverage = ptr(leverage)
	res.MaxPositionSize = ptr(maxPosition)
	res.RiskPercentOfCapital = ptr(*allowedLoss / in.MarginCapital * 100)
	res.LossAtStop = ptr(delta / in.EntryPrice * maxPosition)
	res.RequiredMargin = ptr(in.MarginCapital)
	res.Ready = posFinite(leverage)

	applyTakeProfit(in, res, dir, delta, maxPosition, in.MarginCapital)
}

func calcPositionBranch(in Inputs, res *Result, dir Direction, delta float64, allowedLoss *float64) {
	if !posFinite(in.PositionSize) {
		res.Warnings = append(res.Warnings, WarnInvalidPosition)
		return
	}
	if allowedLoss == nil {
		res.Warnings = append(res.Warnings, WarnInvalidLoss)
		return
	}

	lossAtStop := delta / in.EntryPrice * in.PositionSize
	res.LossAtStop = ptr(lossAtStop)

	// Informational: the chosen position exceeds the stated risk tolerance.
	// Remaining figures are still populated for display.
	if *allowedLoss < lossAtStop {
		res.Warnings = append(res.Warnings, WarnPositionTooLarge)
	}

	leverage := in.EntryPrice / delta
	res.MaxPositionSize = ptr(*allowedLoss * in.EntryPrice / delta)
	res.RequiredMargin = ptr(lossAtStop)
	res.MaxLeverage = ptr(leverage)
	res.RiskPercentOfCapital = ptr(*allowedLoss / lossAtStop * 100)
	res.Ready = *allowedLoss >= lossAtStop && !math.IsInf(leverage, 0) && !math.IsNaN(leverage)

	applyTakeProfit(in, res, dir, delta, in.PositionSize, lossAtStop)
}

// applyTakeProfit fills the reward figures against the given notional and
// capital base. A target on the wrong side of entry for the detected
// direction records the take_profit warning and leaves the figures unset.
func applyTakeProfit(in Inputs, res *Result, dir Direction, delta, baseNotional, baseCapital float64) {
	if !posFinite(in.TakeProfit) || !posFinite(baseNotional) {
		return
	}

	profitDelta := in.TakeProfit - in.EntryPrice
	if dir == DirectionShort {
		profitDelta = in.EntryPrice - in.TakeProfit
	}
	if !posFinite(profitDelta) {
		res.Warnings = append(res.Warnings, WarnTakeProfit)
		return
	}

	expectedProfit := profitDelta / in.EntryPrice * baseNotional
	res.ExpectedProfit = ptr(expectedProfit)
	if posFinite(baseCapital) {
		res.ExpectedReturnPct = ptr(expectedProfit / baseCapital * 100)
	}
	res.RiskRewardRatio = ptr(profitDelta / delta)
}
