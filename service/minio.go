package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/xyqotech/xyqo-home/config"
	"github.com/xyqotech/xyqo-home/model"
)

// MinioStore is a ReportStore backed by object storage, for deployments
// that want reports to survive a restart. Each fingerprint maps to two
// objects: the rendered report and the analysis document as JSON.
type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(cfg *config.MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (s *MinioStore) reportObject(fingerprint string) string {
	return fingerprint + "/report"
}

func (s *MinioStore) analysisObject(fingerprint string) string {
	return fingerprint + "/analysis.json"
}

func (s *MinioStore) Put(ctx context.Context, entry *CacheEntry) error {
	analysisJSON, err := json.Marshal(entry.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.reportObject(entry.Fingerprint),
		bytes.NewReader(entry.Report), int64(len(entry.Report)),
		minio.PutObjectOptions{ContentType: entry.ContentType})
	if err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.analysisObject(entry.Fingerprint),
		bytes.NewReader(analysisJSON), int64(len(analysisJSON)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to store analysis: %w", err)
	}

	return nil
}

func (s *MinioStore) Get(ctx context.Context, fingerprint string) (*CacheEntry, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.reportObject(fingerprint), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat report: %w", err)
	}

	report, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	entry := &CacheEntry{
		Fingerprint: fingerprint,
		Report:      report,
		ContentType: info.ContentType,
		CreatedAt:   info.LastModified,
	}

	analysisObj, err := s.client.GetObject(ctx, s.bucket, s.analysisObject(fingerprint), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analysis: %w", err)
	}
	defer analysisObj.Close()

	analysisJSON, err := io.ReadAll(analysisObj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			// Report without analysis is still servable
			return entry, nil
		}
		return nil, fmt.Errorf("failed to read analysis: %w", err)
	}

	var doc model.AnalysisDocument
	if err := json.Unmarshal(analysisJSON, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode stored analysis: %w", err)
	}
	entry.Analysis = &doc

	return entry, nil
}
