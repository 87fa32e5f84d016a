package config

import "errors"

var (
	ErrInvalidConcurrency = errors.New("config: concurrency cap must be positive")
	ErrInvalidChunkSize   = errors.New("config: chunk size must be positive")
	ErrInvalidMemoryLimit = errors.New("config: max memory must be positive")
	ErrInvalidCPULimit    = errors.New("config: max cpu seconds must be positive")
	ErrInvalidWallClock   = errors.New("config: max wall-clock must be positive")
)
