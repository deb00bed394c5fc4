package domain

import "errors"

// Settings is the club-wide credit configuration.
type Settings struct {
	GlobalThreshold int
	Buffer          int
	CreditLock      bool
}

var (
	errNegativeThreshold = errors.New("global threshold must be >= 0")
	errBufferTooSmall    = errors.New("buffer must be >= 1")
)

// Validate checks the configuration invariants.
func (s Settings) Validate() error {
	if s.GlobalThreshold < 0 {
		return errNegativeThreshold
	}
	if s.Buffer < 1 {
		return errBufferTooSmall
	}
	return nil
}
