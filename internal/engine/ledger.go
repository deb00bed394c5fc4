package engine

import (
	"github.com/google/uuid"

	"github.com/club-kit/credit-service/internal/domain"
)

// Append returns a copy of user with tx added to the end of its history.
// The receiver's history is left untouched.
func Append(user *domain.User, tx domain.CreditTransaction) *domain.User {
	next := user.Clone()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	next.History = append(next.History, tx)
	return next
}

// Balance recomputes the credit balance from the opening balance and the ledger.
func Balance(user *domain.User) int {
	total := user.OpeningBalance
	for _, tx := range user.History {
		total += tx.Amount
	}
	return total
}

// Recent returns the ledger newest first.
func Recent(user *domain.User) []domain.CreditTransaction {
	out := make([]domain.CreditTransaction, len(user.History))
	for i, tx := range user.History {
		out[len(user.History)-1-i] = tx
	}
	return out
}
