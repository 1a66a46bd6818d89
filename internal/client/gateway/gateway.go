package gateway

import (
	"context"

	"packtrack/internal/client/models"
)

// CreatePackageRequest is the body of POST /v1/packages.
type CreatePackageRequest struct {
	TaskID    string `json:"task_id"`
	PackageID string `json:"package_id"`
	Remarks   string `json:"remarks,omitempty"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Status    string `json:"status"`
}

// AppConfig is the operator-facing channel/courier dictionary served by the
// gateway.
type AppConfig struct {
	Channel []string `json:"channel"`
	Courier []string `json:"courier"`
}

// Client is the transport-agnostic contract with the task/package gateway.
// All methods honor context cancellation; callers decide which requests are
// cancellable (reads) and which must run to completion (scan writes).
type Client interface {
	// Login authenticates the operator and returns the bearer token together
	// with the identity the session provider exposes.
	Login(ctx context.Context, username, password string) (string, models.AuthUser, error)

	// GetTask fetches a task with its already-persisted packages.
	GetTask(ctx context.Context, id string) (*models.Task, error)

	// GetExpectedPackages fetches the expected-package manifest for a task.
	GetExpectedPackages(ctx context.Context, taskID string) ([]string, error)

	// PostExpectedPackages submits manifest identifiers and returns the echoed
	// stored set.
	PostExpectedPackages(ctx context.Context, taskID string, packageIDs []string, executive string) ([]string, error)

	// MatchExpected tells the gateway which newly expected ids should
	// retroactively mark existing scans as matched.
	MatchExpected(ctx context.Context, taskID string, packageIDs []string) error

	// CreatePackage persists one scan. created is false when the gateway
	// answered with a non-201 success, meaning the identifier already existed
	// server-side.
	CreatePackage(ctx context.Context, req CreatePackageRequest) (models.Package, bool, error)

	// PatchPackage updates the cancelled flag of a persisted package.
	PatchPackage(ctx context.Context, id string, cancelled bool) (models.Package, error)

	// DeletePackage removes a persisted package.
	DeletePackage(ctx context.Context, id string) error

	// GetConfig fetches the channel/courier dictionary.
	GetConfig(ctx context.Context) (AppConfig, error)

	// Ping checks gateway reachability. It requires no authentication.
	Ping(ctx context.Context) error

	// SetToken installs the bearer token carried on subsequent requests.
	SetToken(token string)
}
