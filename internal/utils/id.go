package utils

// All rows are keyed by opaque hex ids rather than auto-increment integers,
// so identifiers can be minted application-side and never leak row counts.

// NewID returns a 24-character random hex identifier for a new row. The
// error from the system RNG is deliberately fatal-by-panic: if the process
// cannot read random bytes nothing else is trustworthy either.
func NewID() string {
	id, err := randomHex(12)
	if err != nil {
		panic(err)
	}
	return id
}
