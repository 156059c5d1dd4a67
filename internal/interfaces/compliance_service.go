package interfaces

import (
	"context"

	"github.com/ternarybob/scimdash/internal/models"
)

// ProgressFunc receives advisory download progress as a percentage in [0, 100]
type ProgressFunc func(percent int)

// ComplianceClient invokes the remote compliance test suite
type ComplianceClient interface {
	// Execute posts the request and decodes the response. Non-2xx responses and transport
	// failures are returned as errors carrying the raw text.
	Execute(ctx context.Context, req *models.RunRequest, onProgress ProgressFunc) (*models.RunResponse, error)
}
