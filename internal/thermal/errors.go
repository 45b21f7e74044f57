package thermal

import "errors"

var (
	// ErrStartOutOfRange indicates an initial temperature bin outside [0, TempBins).
	ErrStartOutOfRange = errors.New("thermal: start bin out of range")

	// ErrInvalidRates indicates a negative or non-finite rate constant.
	ErrInvalidRates = errors.New("thermal: invalid rate parameters")

	// ErrInvalidMass indicates a negative or non-finite initial mass.
	ErrInvalidMass = errors.New("thermal: invalid initial mass")
)
