package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/wastecollect-backend/internal/platform/gcp"
	"github.com/yungbote/wastecollect-backend/internal/platform/localstore"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/s3store"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

const (
	ReportStorageLocal = "local"
	ReportStorageGCS   = "gcs"
	ReportStorageS3    = "s3"
	ReportStorageNone  = "none"
)

var (
	newReportBucket = gcp.NewReportBucket
	newS3Store      = s3store.New
)

type ReportStoreBootstrapErrorCode string

const (
	ReportStoreBootstrapErrorInvalidBackend ReportStoreBootstrapErrorCode = "invalid_backend"
	ReportStoreBootstrapErrorInvalidConfig  ReportStoreBootstrapErrorCode = "invalid_config"
	ReportStoreBootstrapErrorConnectFailed  ReportStoreBootstrapErrorCode = "connect_failed"
)

type ReportStoreBootstrapError struct {
	Code    ReportStoreBootstrapErrorCode
	Backend string
	Cause   error
}

func (e *ReportStoreBootstrapError) Error() string {
	if e == nil {
		return "report storage bootstrap failed"
	}
	return fmt.Sprintf("report storage bootstrap failed (code=%s backend=%q): %v", e.Code, e.Backend, e.Cause)
}

func (e *ReportStoreBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// resolveReportStore returns nil, nil for "none"; report endpoints then answer invalid_state.
func resolveReportStore(ctx context.Context, log *logger.Logger, cfg Config) (services.ReportStore, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.ReportStorage))
	fail := func(code ReportStoreBootstrapErrorCode, cause error) (services.ReportStore, error) {
		err := &ReportStoreBootstrapError{Code: code, Backend: backend, Cause: cause}
		log.Error("Report storage bootstrap failed", "backend", backend, "error_code", code, "error", cause)
		return nil, err
	}

	log.Info("Selecting report storage", "backend", backend)
	switch backend {
	case ReportStorageNone:
		return nil, nil
	case "", ReportStorageLocal:
		st, err := localstore.New(cfg.ReportLocalDir)
		if err != nil {
			return fail(ReportStoreBootstrapErrorInvalidConfig, err)
		}
		return st, nil
	case ReportStorageGCS:
		gcsCfg, err := gcp.ObjectStorageConfig{
			EmulatorHost: cfg.StorageEmulatorHost,
			Bucket:       cfg.ReportGCSBucket,
			Prefix:       cfg.ReportPrefix,
			Credentials:  cfg.GCPCredentials,
		}.ResolveMode(cfg.ReportGCSMode)
		if err != nil {
			return fail(ReportStoreBootstrapErrorInvalidConfig, err)
		}
		b, err := newReportBucket(ctx, log, gcsCfg)
		if err != nil {
			return fail(ReportStoreBootstrapErrorConnectFailed, err)
		}
		return b, nil
	case ReportStorageS3:
		if strings.TrimSpace(cfg.ReportS3Bucket) == "" {
			return fail(ReportStoreBootstrapErrorInvalidConfig, errors.New("REPORT_S3_BUCKET is required"))
		}
		st, err := newS3Store(ctx, log, s3store.Config{
			Bucket:   cfg.ReportS3Bucket,
			Region:   cfg.ReportS3Region,
			Prefix:   cfg.ReportPrefix,
			Endpoint: cfg.ReportS3Endpoint,
		})
		if err != nil {
			return fail(ReportStoreBootstrapErrorConnectFailed, err)
		}
		return st, nil
	default:
		return fail(ReportStoreBootstrapErrorInvalidBackend, fmt.Errorf("unsupported report storage %q", cfg.ReportStorage))
	}
}

func reportStoreBootstrapErrorCode(err error) ReportStoreBootstrapErrorCode {
	var bootstrapErr *ReportStoreBootstrapError
	if errors.As(err, &bootstrapErr) && bootstrapErr.Code != "" {
		return bootstrapErr.Code
	}
	return ReportStoreBootstrapErrorConnectFailed
}
