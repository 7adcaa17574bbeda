//go:build integration

package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dreschagin/edge-adapter/internal/application/port"
	"github.com/dreschagin/edge-adapter/pkg/logger"
)

func TestPublishDeployEvent(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}

	publisher, err := NewNATSPublisher(url, "EDGE_DEPLOYS_TEST", logger.Discard())
	if err != nil {
		t.Skipf("nats unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = publisher.js.DeleteStream("EDGE_DEPLOYS_TEST")
		_ = publisher.Close()
	})

	sub, err := publisher.js.SubscribeSync(port.SubjectDeployCompleted, nats.BindStream("EDGE_DEPLOYS_TEST"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := port.DeployEvent{ScriptName: "site", AssetCount: 3}
	if err := publisher.PublishEvent(ctx, port.SubjectDeployCompleted, event); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}

	msg, err := sub.NextMsg(5 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	if string(msg.Data) == "" || msg.Subject != port.SubjectDeployCompleted {
		t.Fatalf("unexpected message %q on %s", msg.Data, msg.Subject)
	}
}
