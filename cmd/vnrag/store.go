package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hqta1110/vnrag/blobstore"
	miniostore "github.com/hqta1110/vnrag/blobstore/minio"
	s3store "github.com/hqta1110/vnrag/blobstore/s3"
	"github.com/hqta1110/vnrag/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// storeURI is a parsed blob store location.
type storeURI struct {
	Scheme string // "file", "s3" or "minio"
	Bucket string
	Prefix string
	Path   string
}

func parseStoreURI(raw string) (storeURI, error) {
	if raw == "" {
		return storeURI{Scheme: "file", Path: "."}, nil
	}
	if !strings.Contains(raw, "://") {
		return storeURI{Scheme: "file", Path: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return storeURI{}, fmt.Errorf("parse store uri %q: %w", raw, err)
	}
	switch u.Scheme {
	case "file":
		return storeURI{Scheme: "file", Path: u.Host + u.Path}, nil
	case "s3", "minio":
		if u.Host == "" {
			return storeURI{}, fmt.Errorf("store uri %q: missing bucket", raw)
		}
		return storeURI{
			Scheme: u.Scheme,
			Bucket: u.Host,
			Prefix: strings.Trim(u.Path, "/"),
		}, nil
	default:
		return storeURI{}, fmt.Errorf("store uri %q: unsupported scheme %q", raw, u.Scheme)
	}
}

func openStore(ctx context.Context, cfg *config.Config, raw string) (blobstore.BlobStore, error) {
	loc, err := parseStoreURI(raw)
	if err != nil {
		return nil, err
	}

	switch loc.Scheme {
	case "s3":
		var optFns []func(*awsconfig.LoadOptions) error
		if cfg.Storage.AWSRegion != "" {
			optFns = append(optFns, awsconfig.WithRegion(cfg.Storage.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3store.NewStore(s3.NewFromConfig(awsCfg), loc.Bucket, loc.Prefix), nil
	case "minio":
		m := cfg.Storage.MinIO
		if m.Endpoint == "" {
			return nil, fmt.Errorf("minio endpoint is required: set MINIO_ENDPOINT")
		}
		client, err := minio.New(m.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(m.AccessKey, m.SecretKey, ""),
			Secure: m.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("create minio client: %w", err)
		}
		return miniostore.NewStore(client, loc.Bucket, loc.Prefix), nil
	default:
		return blobstore.NewLocalStore(loc.Path), nil
	}
}
