package estimation

import "errors"

var (
	// ErrNumericalInstability is returned when a posterior row or an
	// objective turns NaN, infinite, or loses all of its mass.
	ErrNumericalInstability = errors.New("numerical instability")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid estimation config")
)
