// model/wallet.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerType string

const (
	LedgerDeposit       LedgerType = "DEPOSIT"
	LedgerTierCharge    LedgerType = "TIER_CHARGE"
	LedgerMonthlyCharge LedgerType = "MONTHLY_CHARGE"
	LedgerDowngrade     LedgerType = "DOWNGRADE"
)

type LedgerEntry struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	EntryType    LedgerType      `json:"entry_type"`
	Tier         Tier            `json:"tier,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedAt    time.Time       `json:"created_at"`
}
