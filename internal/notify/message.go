// Package notify delivers best-effort email notifications for account events.
package notify

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Message is a plain-text email
type Message struct {
	To      string
	Subject string
	Body    string
}

func dollars(amount float64) string {
	return "$" + decimal.NewFromFloat(amount).StringFixed(2)
}

// Welcome is sent once a user has registered
func Welcome(to, name string) Message {
	return Message{To: to, Subject: "Welcome to Perfect Vault", Body: "Thanks for registering, " + name}
}

// DepositReceived is sent after a committed deposit
func DepositReceived(to string, amount float64) Message {
	return Message{To: to, Subject: "Deposit Received", Body: fmt.Sprintf("You deposited %s.", dollars(amount))}
}

// WithdrawalMade is sent after a committed withdrawal
func WithdrawalMade(to string, amount float64) Message {
	return Message{To: to, Subject: "Withdrawal Made", Body: fmt.Sprintf("You withdrew %s.", dollars(amount))}
}

// InvestmentMade is sent after a committed investment
func InvestmentMade(to string, amount float64) Message {
	return Message{To: to, Subject: "Investment Made", Body: fmt.Sprintf("You invested %s.", dollars(amount))}
}
