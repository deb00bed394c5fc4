package engine

import "github.com/club-kit/credit-service/internal/domain"

// ResolveThreshold returns the user's own minimum threshold when set, otherwise the global one.
func ResolveThreshold(user *domain.User, globalThreshold int) int {
	if user != nil && user.MinThreshold != nil {
		return *user.MinThreshold
	}
	return globalThreshold
}
