package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dreschagin/edge-adapter/internal/application/port"
	"github.com/dreschagin/edge-adapter/pkg/logger"
)

type mockScriptUploader struct {
	name string
	body []byte
	err  error
}

func (m *mockScriptUploader) PutScript(_ context.Context, name string, body []byte) error {
	m.name = name
	m.body = body
	return m.err
}

func TestPublishWorkerUseCase_Success(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "worker.js")
	if err := os.WriteFile(filename, []byte("addEventListener('fetch', () => {})"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	scripts := &mockScriptUploader{}
	uc := NewPublishWorkerUseCase(scripts, logger.Discard())

	res, err := uc.Execute(context.Background(), PublishWorkerCommand{Name: "my-site", Filename: filename})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if scripts.name != "my-site" || !strings.HasPrefix(string(scripts.body), "addEventListener") {
		t.Fatalf("unexpected upload: %q %q", scripts.name, scripts.body)
	}
	if res.SizeBytes != int64(len(scripts.body)) {
		t.Fatalf("size = %d", res.SizeBytes)
	}
}

func TestPublishWorkerUseCase_Errors(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "worker.js")
	if err := os.WriteFile(filename, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tests := []struct {
		name    string
		scripts port.ScriptUploader
		cmd     PublishWorkerCommand
		wantErr string
	}{
		{name: "no uploader", scripts: nil, cmd: PublishWorkerCommand{Name: "a", Filename: filename}, wantErr: "not configured"},
		{name: "no name", scripts: &mockScriptUploader{}, cmd: PublishWorkerCommand{Filename: filename}, wantErr: "worker name is required"},
		{name: "missing file", scripts: &mockScriptUploader{}, cmd: PublishWorkerCommand{Name: "a", Filename: filename + ".missing"}, wantErr: "read worker"},
		{name: "upload fails", scripts: &mockScriptUploader{err: errors.New("denied")}, cmd: PublishWorkerCommand{Name: "a", Filename: filename}, wantErr: "failed to upload worker a: denied"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			uc := NewPublishWorkerUseCase(tc.scripts, logger.Discard())
			_, err := uc.Execute(context.Background(), tc.cmd)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
