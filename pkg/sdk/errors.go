package geotrack

import "github.com/pawa80/search-intelligence-suite/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrProjectNotFound    = domain.ErrProjectNotFound
	ErrInvalidCredential  = domain.ErrInvalidCredential
	ErrRateLimited        = domain.ErrRateLimited
	ErrEngineUnavailable  = domain.ErrEngineUnavailable
	ErrStorageUnavailable = domain.ErrStorageUnavailable
	ErrEmptyQuery         = domain.ErrEmptyQuery
)
