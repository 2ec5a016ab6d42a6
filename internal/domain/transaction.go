package domain

// Transaction kinds as stored and exported
const (
	TxDeposit  = "Deposit"
	TxWithdraw = "Withdraw"
	TxInvest   = "Invest"
)

// InvestDescription is the fixed description of every Invest transaction
const InvestDescription = "Investment"

// Transaction Model: one row per successful ledger mutation, never updated or deleted
type Transaction struct {
	ID          uint    `gorm:"primaryKey" json:"id"`                   // Primary key
	UserID      uint    `gorm:"index;not null" json:"user_id"`          // Foreign key to User
	Type        string  `gorm:"size:10;not null" json:"type"`           // Transaction type: Deposit, Withdraw, Invest
	Amount      float64 `gorm:"not null" json:"amount"`                 // Positive amount
	Description string  `gorm:"size:200" json:"description"`            // Optional free text
	CreatedAt   int64   `gorm:"autoCreateTime:milli" json:"created_at"` // Timestamp of creation in milliseconds
}
