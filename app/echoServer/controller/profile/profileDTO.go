package profile

import "github.com/shopspring/decimal"

type ChangeRoleReq struct {
	Role string `json:"role" validate:"required,oneof=Regular Publisher Writer"`
}

type ChangeTierReq struct {
	Tier string `json:"tier" validate:"required"`
}

// DepositReq takes the amount as a JSON number or string; range and scale
// are checked by the billing service.
type DepositReq struct {
	Amount decimal.Decimal `json:"amount"`
}
