package engine

import "github.com/club-kit/credit-service/internal/domain"

// Classification is the derived standing for a credit balance.
type Classification struct {
	Status       domain.UserStatus
	SoftDisabled bool
}

// Classify maps credits onto a status. The soft band is the half-open
// interval [threshold-buffer, threshold); anything below it is disabled.
func Classify(credits, threshold, buffer int) Classification {
	switch {
	case credits < threshold-buffer:
		return Classification{Status: domain.UserStatusDisabled}
	case credits < threshold:
		return Classification{Status: domain.UserStatusSoftDisabled, SoftDisabled: true}
	default:
		return Classification{Status: domain.UserStatusActive}
	}
}
