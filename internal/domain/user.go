package domain

// User roles
const (
	RoleUser  = "user"  // Regular account holder
	RoleAdmin = "admin" // May open the admin listing
)

// User Model: identity, credentials and the ledger totals
type User struct {
	ID          uint    `gorm:"primaryKey" json:"id"`                       // Primary key
	Email       string  `gorm:"size:120;uniqueIndex;not null" json:"email"` // Unique email, case-sensitive as stored
	Name        string  `gorm:"size:100;not null" json:"name"`              // Display name
	Details     string  `gorm:"type:text;not null" json:"details"`          // Free-text details
	Password    string  `gorm:"size:200;not null" json:"-"`                 // Hashed password
	Role        string  `gorm:"size:16;not null;default:user" json:"role"`  // Role: user or admin
	Balance     float64 `gorm:"not null;default:0" json:"balance"`          // Spendable balance
	Investments float64 `gorm:"not null;default:0" json:"investments"`      // Total invested
	CreatedAt   int64   `gorm:"autoCreateTime:milli" json:"created_at"`     // Timestamp of creation in milliseconds

	// One-to-many ledger history, never preloaded by the ledger itself
	Transactions []Transaction `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"transactions,omitempty"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
