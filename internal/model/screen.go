package model

// RiskLevel buckets a screened wallet's overall risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskSevere   RiskLevel = "severe"
	RiskUnscored RiskLevel = "unscored"
)

// ScreenMetrics holds the numeric signals behind a screening verdict.
type ScreenMetrics struct {
	Score            float64 `json:"score"`
	TxCount          int     `json:"txCount"`
	FirstSeenDays    int     `json:"firstSeenDays"`
	SanctionedHops   int     `json:"sanctionedHops"`
	MixerInteraction bool    `json:"mixerInteraction"`
}

// ScreenResult is the per-address screening verdict. The shape is the
// contract for a future scoring backend; the current implementation only
// fills it with a placeholder profile.
type ScreenResult struct {
	Address string        `json:"address"`
	ChainID int           `json:"chainId"`
	Risk    RiskLevel     `json:"risk"`
	Labels  []string      `json:"labels"`
	Flags   []string      `json:"flags"`
	Metrics ScreenMetrics `json:"metrics"`
}
