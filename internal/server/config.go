package server

import "github.com/teampathfinders/vex/pkg/raknet"

// Config configures a Server. Mirrors the teacher's core/main.go
// Config/loadConfig split: a plain struct with sane defaults, no
// config file parser in scope.
type Config struct {
	Host string
	Port int

	MaxSessions int
	GUID        uint64

	Compression raknet.CompressionConfig
	Encryptor   raknet.Encryptor
	Metrics     *raknet.Metrics
}

// DefaultConfig returns the listener defaults. New falls back to the
// whole default config when MaxSessions is zero; other zero fields are
// not filled in one by one.
func DefaultConfig() Config {
	return Config{
		Host:        "0.0.0.0",
		Port:        19132,
		MaxSessions: 1000,
		GUID:        0x1234567890abcdef,
		Compression: raknet.DefaultCompressionConfig(),
	}
}
