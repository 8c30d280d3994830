package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

// Known trade types. The set is open; any non-empty token is accepted.
const (
	TradeBuy  = "buy"
	TradeSell = "sell"
	TradeExit = "exit"
)

// Record is one ingested trading event for a strategy.
type Record struct {
	ID           int64           `json:"id"`
	StrategyName string          `json:"strategy_name"`
	Timestamp    time.Time       `json:"timestamp"`
	Contract     string          `json:"contract"`
	TradeType    string          `json:"trade_type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	CreatedAt    time.Time       `json:"created_at"`
}
