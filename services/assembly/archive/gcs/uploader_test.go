// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gcs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/accrete/services/assembly/pipeline"
	"github.com/AleutianAI/accrete/services/assembly/report"
)

var _ pipeline.Archiver = (*Uploader)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewUploader_RequiresBucket(t *testing.T) {
	_, err := NewUploader(context.Background(), Config{}, discardLogger())
	if err == nil {
		t.Fatal("NewUploader without a bucket should return error")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewUploader_NonExistentCredentialsFile(t *testing.T) {
	cfg := Config{
		Bucket:          "test-bucket",
		CredentialsFile: "/nonexistent/path/to/key.json",
	}
	_, err := NewUploader(context.Background(), cfg, discardLogger())
	if err == nil {
		t.Fatal("NewUploader with non-existent key should return error")
	}
	if !strings.Contains(err.Error(), "service account key not found") {
		t.Errorf("Error should mention missing key, got: %v", err)
	}
	if !strings.Contains(err.Error(), "/nonexistent/path/to/key.json") {
		t.Errorf("Error should contain the path, got: %v", err)
	}
}

func TestObjectName(t *testing.T) {
	rep := &report.Report{RunID: "abcdef12-3456", Target: "NGC-1275"}

	u := &Uploader{bucket: "b", prefix: "accrete/reports"}
	if got := u.objectName(rep); got != "accrete/reports/assembly_NGC-1275_abcdef12.json" {
		t.Errorf("objectName = %q", got)
	}

	u = &Uploader{bucket: "b"}
	if got := u.objectName(rep); got != "assembly_NGC-1275_abcdef12.json" {
		t.Errorf("objectName without prefix = %q", got)
	}
}

func TestArchive_InvalidReport(t *testing.T) {
	// Validation happens before the storage client is touched.
	u := &Uploader{client: nil, bucket: "test-bucket", logger: discardLogger()}
	ctx := context.Background()

	if err := u.Archive(ctx, nil); !errors.Is(err, report.ErrInvalidReport) {
		t.Errorf("Archive(nil) error = %v, want ErrInvalidReport", err)
	}
	if err := u.Archive(ctx, &report.Report{}); !errors.Is(err, report.ErrInvalidReport) {
		t.Errorf("Archive(empty run id) error = %v, want ErrInvalidReport", err)
	}
}

func TestUploadFile_NonExistentLocalFile(t *testing.T) {
	u := &Uploader{client: nil, bucket: "test-bucket", logger: discardLogger()}

	err := u.UploadFile(context.Background(), "/nonexistent/checkpoint.json", "ckpt.json")
	if err == nil {
		t.Fatal("UploadFile with non-existent local file should return error")
	}
	if !strings.Contains(err.Error(), "open the local file") {
		t.Errorf("Error should mention failed open, got: %v", err)
	}
}

// Integration test, skipped unless real GCS credentials are configured.
func TestArchive_Integration(t *testing.T) {
	bucket := os.Getenv("ACCRETE_TEST_GCS_BUCKET")
	keyPath := os.Getenv("ACCRETE_TEST_GCS_KEY_PATH")
	if bucket == "" || keyPath == "" {
		t.Skip("Skipping integration test: ACCRETE_TEST_GCS_BUCKET and ACCRETE_TEST_GCS_KEY_PATH not set")
	}

	ctx := context.Background()
	u, err := NewUploader(ctx, Config{
		Bucket:          bucket,
		Prefix:          "integration-test",
		CredentialsFile: keyPath,
	}, discardLogger())
	if err != nil {
		t.Fatalf("NewUploader failed: %v", err)
	}
	defer u.Close()

	rep := &report.Report{
		RunID:       "integration-test-run",
		Version:     "1.0.0",
		GeneratedAt: time.Now().UTC(),
		Target:      "integration",
		IndexBits:   1.0,
	}
	if err := u.Archive(ctx, rep); err != nil {
		t.Errorf("Archive failed: %v", err)
	}
}
