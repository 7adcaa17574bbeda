package port

import (
	"context"
	"time"
)

const SubjectDeployCompleted = "edge.deploy.completed"

// DeployEvent describes one finished publish run.
type DeployEvent struct {
	ScriptName  string    `json:"script_name"`
	AccountID   string    `json:"account_id"`
	NamespaceID string    `json:"namespace_id"`
	AssetCount  int       `json:"asset_count"`
	AssetBytes  int64     `json:"asset_bytes"`
	CompletedAt time.Time `json:"completed_at"`
}

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}
