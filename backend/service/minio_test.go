package service

import (
	"context"
	"testing"

	"github.com/SpikeIreland/clarence-sub004/backend/config"
)

func TestNewMinioService(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "uploads",
		UseSSL:    false,
	}

	// Client creation does not connect; the first operation does
	svc, err := NewMinioService(cfg)
	if err != nil {
		t.Fatalf("NewMinioService: %v", err)
	}
	if svc == nil {
		t.Fatal("Expected non-nil service")
	}
}

func TestNewMinioServiceInvalidEndpoint(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint: "http://not a host",
	}

	if _, err := NewMinioService(cfg); err == nil {
		t.Error("Expected error for a malformed endpoint")
	}
}

func TestMinioServiceArchiveUploadCancelledContext(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:   "localhost:9000",
		AccessKey:  "test",
		SecretKey:  "test",
		Bucket:     "uploads",
		UseSSL:     false,
		ExpireDays: 7,
	}

	svc, err := NewMinioService(cfg)
	if err != nil {
		t.Fatalf("NewMinioService: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.ArchiveUpload(ctx, "uploads/x.txt", []byte("data"), "text/plain"); err == nil {
		t.Error("Expected archive with a cancelled context to fail")
	}
}
