package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/gcp"
	"github.com/yungbote/wastecollect-backend/internal/platform/localstore"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/s3store"
)

// ReportStore is satisfied by localstore.Store, gcp.ReportBucket and s3store.Store.
type ReportStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Retrieve(ctx context.Context, path string) ([]byte, error)
}

type Report struct {
	Path        string       `json:"path"`
	Rows        int          `json:"rows"`
	Window      stats.Window `json:"window"`
	ContentType string       `json:"content_type"`
}

type ReportService interface {
	ExportMunicipalityCSV(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*Report, error)
	Download(ctx context.Context, id auth.Identity, path string) ([]byte, error)
}

type ReportServiceDeps struct {
	Log      *logger.Logger
	Store    ReportStore
	Requests repos.ServiceRequestRepo
	Users    repos.UserRepo
	Now      Clock
}

type reportService struct {
	log   *logger.Logger
	deps  ReportServiceDeps
	now   Clock
	scope scoper
}

const (
	csvContentType = "text/csv"
	reportPageSize = 500
)

var reportHeader = []string{
	"id", "created_at", "updated_at", "status", "waste_type", "estimated_volume",
	"household_id", "collector_id", "address", "description",
}

func NewReportService(deps ReportServiceDeps) ReportService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	return &reportService{
		log:   deps.Log.With("service", "ReportService"),
		deps:  deps,
		now:   deps.Now,
		scope: scoper{users: deps.Users},
	}
}

func reportPrefix(municipalityID uuid.UUID) string {
	return "municipalities/" + municipalityID.String() + "/"
}

func (s *reportService) ExportMunicipalityCSV(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*Report, error) {
	const op = "Report.ExportMunicipalityCSV"
	if s.deps.Store == nil {
		return nil, domainagg.InvalidState(op, "report storage is not configured")
	}
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	if mid == uuid.Nil {
		return nil, domainagg.FieldError(op, "municipality_id", "municipality is required")
	}
	now := s.now()
	if w, err = resolveWindow(op, w, now); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(reportHeader); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	rows := 0
	for offset := 0; ; offset += reportPageSize {
		page, _, err := s.deps.Requests.List(dbctx.Of(ctx), repos.RequestFilter{
			MunicipalityID: mid,
			CreatedFrom:    w.Start,
			CreatedTo:      w.End,
			Limit:          reportPageSize,
			Offset:         offset,
			OldestFirst:    true,
		})
		if err != nil {
			return nil, repoErr(op, err)
		}
		for _, r := range page {
			if err := cw.Write(reportRecord(r)); err != nil {
				return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
			}
		}
		rows += len(page)
		if len(page) < reportPageSize {
			break
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	key := fmt.Sprintf("%srequests_%s_%s_%d.csv", reportPrefix(mid),
		w.Start.Format("20060102"), w.End.Format("20060102"), now.UnixNano())
	path, err := s.deps.Store.Store(ctx, key, buf.Bytes(), csvContentType)
	if err != nil {
		s.log.Error("store report failed", "municipality_id", mid, "key", key, "error", err)
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	s.log.Info("report exported", "municipality_id", mid, "path", path, "rows", rows)
	return &Report{Path: path, Rows: rows, Window: w, ContentType: csvContentType}, nil
}

func reportRecord(r *collection.ServiceRequest) []string {
	collector := ""
	if r.CollectorID != nil {
		collector = r.CollectorID.String()
	}
	return []string{
		r.ID.String(),
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.UpdatedAt.UTC().Format(time.RFC3339),
		string(r.Status),
		string(r.WasteType),
		strconv.FormatFloat(r.EstimatedVolume, 'f', -1, 64),
		r.HouseholdID.String(),
		collector,
		r.Address,
		r.Description,
	}
}

// Download returns a stored report. Managers may only read their own municipality's reports.
func (s *reportService) Download(ctx context.Context, id auth.Identity, path string) ([]byte, error) {
	const op = "Report.Download"
	if s.deps.Store == nil {
		return nil, domainagg.InvalidState(op, "report storage is not configured")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, domainagg.FieldError(op, "path", "path is required")
	}
	if strings.Contains(path, "..") {
		return nil, domainagg.FieldError(op, "path", "invalid path")
	}
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		own, err := s.scope.ownMunicipality(ctx, op, id)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(path, reportPrefix(own)) {
			return nil, domainagg.Forbidden(op, "report outside your scope")
		}
	}
	b, err := s.deps.Store.Retrieve(ctx, path)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, localstore.ErrNotFound), errors.Is(err, s3store.ErrNotFound), errors.Is(err, gcp.ErrObjectNotFound):
		return nil, domainagg.NotFound(op, "report")
	default:
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
