// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gcs uploads finished run reports to a Google Cloud Storage
// bucket for off-machine archival. The uploader satisfies the
// pipeline's archiver contract; upload failures are surfaced to the
// driver, which logs them without failing the run.
package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/AleutianAI/accrete/services/assembly/report"
)

// ErrInvalidConfig is returned for unusable uploader configuration.
var ErrInvalidConfig = errors.New("invalid uploader configuration")

// Config holds the upload destination.
type Config struct {
	// Bucket is the destination bucket name. Required.
	Bucket string

	// Prefix is an optional object-name prefix, typically one folder
	// per deployment.
	Prefix string

	// CredentialsFile is an optional service account key path. When
	// empty, application default credentials are used.
	CredentialsFile string
}

// Uploader writes reports and checkpoint files to a GCS bucket.
type Uploader struct {
	client *storage.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// NewUploader creates an Uploader. Callers must Close it when done.
func NewUploader(ctx context.Context, cfg Config, logger *slog.Logger) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket must not be empty", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: service account key not found at path: %s",
				ErrInvalidConfig, cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS storage client: %w", err)
	}

	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Close releases the underlying client.
func (u *Uploader) Close() error {
	return u.client.Close()
}

// objectName returns the bucket-relative name for a report.
func (u *Uploader) objectName(rep *report.Report) string {
	return path.Join(u.prefix, rep.Filename())
}

// Archive serializes the report and writes it to the bucket under the
// run's canonical filename.
func (u *Uploader) Archive(ctx context.Context, rep *report.Report) error {
	if rep == nil {
		return fmt.Errorf("%w: nil report", report.ErrInvalidReport)
	}
	if rep.RunID == "" {
		return fmt.Errorf("%w: missing run ID", report.ErrInvalidReport)
	}

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	name := u.objectName(rep)
	writer := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("write report to GCS object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", name, err)
	}

	u.logger.Info("report uploaded",
		slog.String("run_id", rep.RunID),
		slog.String("destination", fmt.Sprintf("gs://%s/%s", u.bucket, name)))
	return nil
}

// UploadFile copies a local file, such as the final checkpoint, to the
// bucket under the given object name (joined with the prefix).
func (u *Uploader) UploadFile(ctx context.Context, localPath, objectName string) error {
	localFile, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open the local file %s: %w", localPath, err)
	}
	defer localFile.Close()

	name := path.Join(u.prefix, objectName)
	writer := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	writer.ContentType = "application/octet-stream"

	if _, err := io.Copy(writer, localFile); err != nil {
		writer.Close()
		return fmt.Errorf("copy local file %s to GCS object %s: %w", localPath, name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close GCS writer for %s: %w", name, err)
	}

	u.logger.Info("file uploaded",
		slog.String("source", localPath),
		slog.String("destination", fmt.Sprintf("gs://%s/%s", u.bucket, name)))
	return nil
}
