package calc

// ExposureMode selects the capital base the leverage figure is computed against.
type ExposureMode string

const (
	ExposureMargin   ExposureMode = "margin"   // risk relative to committed capital
	ExposurePosition ExposureMode = "position" // risk relative to total notional
)

// RiskMode selects how the allowed loss is specified.
type RiskMode string

const (
	RiskAmount  RiskMode = "amount"  // absolute currency amount
	RiskPercent RiskMode = "percent" // percent of margin capital
)

// Direction of the trade, derived from the entry/stop relation.
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

// Warning identifies a validation condition detected during calculation.
// The values are stable wire identifiers; display text lives in pkg/i18n.
type Warning string

const (
	WarnStopEqualsEntry  Warning = "stop_equals_entry"
	WarnInvalidStop      Warning = "invalid_stop"
	WarnPercentPosition  Warning = "percent_position"
	WarnInvalidMargin    Warning = "invalid_margin"
	WarnInvalidLoss      Warning = "invalid_loss"
	WarnInvalidPosition  Warning = "invalid_position"
	WarnPositionTooLarge Warning = "position_too_large"
	WarnTakeProfit       Warning = "take_profit"
)

// Inputs holds the trade parameters for one calculation.
// Zero, NaN or infinite values are treated as "not provided".
type Inputs struct {
	EntryPrice    float64      `json:"entry_price"`
	StopPrice     float64      `json:"stop_price"`
	TakeProfit    float64      `json:"take_profit,omitempty"`
	ExposureMode  ExposureMode `json:"exposure_mode"`
	MarginCapital float64      `json:"margin_capital,omitempty"`
	PositionSize  float64      `json:"position_size,omitempty"`
	RiskMode      RiskMode     `json:"risk_mode"`
	RiskValue     float64      `json:"risk_value,omitempty"`
}

// Result is the derived leverage/risk/reward figures for one calculation.
// Optional figures are pointers so undefined values stay absent in JSON.
// Ready is true only when a usable leverage figure was computed.
type Result struct {
	Ready                  bool      `json:"ready"`
	Direction              Direction `json:"direction,omitempty"`
	PriceDelta             *float64  `json:"price_delta,omitempty"`
	PriceDeltaPct          *float64  `json:"price_delta_pct,omitempty"`
	TheoreticalMaxLeverage *float64  `json:"theoretical_max_leverage,omitempty"`
	MaxLeverage            *float64  `json:"max_leverage,omitempty"`
	MaxPositionSize        *float64  `json:"max_position_size,omitempty"`
	RequiredMargin         *float64  `json:"required_margin,omitempty"`
	AllowedLoss            *float64  `json:"allowed_loss,omitempty"`
	RiskPercentOfCapital   *float64  `json:"risk_percent_of_capital,omitempty"`
	LossAtStop             *float64  `json:"loss_at_stop,omitempty"`
	RiskRewardRatio        *float64  `json:"risk_reward_ratio,omitempty"`
	ExpectedProfit         *float64  `json:"expected_profit,omitempty"`
	ExpectedReturnPct      *float64  `json:"expected_return_pct,omitempty"`
	Warnings               []Warning `json:"warnings"`
}
