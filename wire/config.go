package wire

import (
	"os"
	"strconv"
)

// Config controls decoder limits and how records react to unexpected input.
type Config struct {
	// MaxBytesLength caps the declared length of a length-delimited field.
	// Longer prefixes fail with ErrLengthTooLarge before any allocation.
	MaxBytesLength int

	// MaxGroupDepth bounds the nesting of group-encoded fields when they are
	// skipped.
	MaxGroupDepth int

	// RejectUnknownFields makes loadable records that honor it fail on tags
	// they do not define instead of skipping them.
	RejectUnknownFields bool
}

// DefaultConfig returns the built-in limits.
func DefaultConfig() Config {
	return Config{
		MaxBytesLength: 64 << 20,
		MaxGroupDepth:  100,
	}
}

var config = DefaultConfig()

// SetConfig sets the package configuration used by new decoders. Decoders
// already created keep the configuration they started with.
func SetConfig(c Config) { config = c }

// CurrentConfig returns the package configuration.
func CurrentConfig() Config { return config }

func init() {
	// Optional env toggles for test harnesses; defaults remain unchanged if unset.
	if n, err := strconv.Atoi(os.Getenv("PROTOSTREAM_MAX_BYTES_LENGTH")); err == nil && n > 0 {
		config.MaxBytesLength = n
	}
	if n, err := strconv.Atoi(os.Getenv("PROTOSTREAM_MAX_GROUP_DEPTH")); err == nil && n > 0 {
		config.MaxGroupDepth = n
	}
	if v := os.Getenv("PROTOSTREAM_REJECT_UNKNOWN"); v == "1" || v == "true" {
		config.RejectUnknownFields = true
	}
}
