package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the 1:1 subscription and role record of a user.
type Profile struct {
	UserID            int64           `json:"user_id"`
	Username          string          `json:"username,omitempty"`
	Role              Role            `json:"role"`
	Tier              Tier            `json:"tier"`
	Balance           decimal.Decimal `json:"balance"`
	SubscriptionStart *time.Time      `json:"subscription_start,omitempty"`
	LastDeductionDate *time.Time      `json:"last_deduction_date,omitempty"`
}

// ClearSubscription drops the billing dates kept for a paid tier.
func (p *Profile) ClearSubscription() {
	p.SubscriptionStart = nil
	p.LastDeductionDate = nil
}

// RegisterReq represents user registration payload
// swagger:model RegisterReq
type RegisterReq struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"omitempty,oneof=Regular Publisher Writer"`
}

// LoginReq represents login payload
// swagger:model LoginReq
type LoginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
