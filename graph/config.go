package graph

const (
	DefaultBeamSize  = 3
	DefaultMaxLength = 3
	DefaultGamma     = 1.0
	DefaultSeedK     = 20
)

// Config holds the beam search parameters.
type Config struct {
	// BeamSize is the number of chains kept after every step.
	BeamSize int
	// MaxLength is the maximum number of triples in a chain.
	MaxLength int
	// Gamma caps the rank used in the diversity penalty exp(-min(rank, Gamma)).
	Gamma float64
	// SeedK is the number of query-nearest triples offered as seeds.
	SeedK int
}

// DefaultConfig returns the standard GEAR parameters.
func DefaultConfig() Config {
	return Config{
		BeamSize:  DefaultBeamSize,
		MaxLength: DefaultMaxLength,
		Gamma:     DefaultGamma,
		SeedK:     DefaultSeedK,
	}
}
