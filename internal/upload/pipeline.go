package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/ascgate/internal/api"
	"github.com/dmitrijs2005/ascgate/internal/auth"
	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/logging"
	"github.com/dmitrijs2005/ascgate/internal/metrics"
	"github.com/dmitrijs2005/ascgate/internal/netx"
)

// DefaultConcurrency is the number of parts sent at once.
const DefaultConcurrency = 4

// Config configures a Pipeline.
type Config struct {
	// API performs reserve, commit and discard calls. Required.
	API *api.Client

	// HTTPClient sends the part payloads. The bearer token is never
	// attached to these requests.
	HTTPClient *http.Client

	// Concurrency bounds parallel part transfers.
	Concurrency int

	// PartRetries is how many times a failed part is retried with
	// exponential backoff starting at PartRetryBase. Zero disables retries;
	// only enable it where upload URLs are known to be reusable.
	PartRetries   int
	PartRetryBase time.Duration

	Journal Journal
	Logger  logging.Logger
}

// Pipeline runs uploads. It is safe for concurrent use by several sessions.
type Pipeline struct {
	api         *api.Client
	http        *http.Client
	concurrency int
	retries     int
	retryBase   time.Duration
	journal     Journal
	logger      logging.Logger
}

func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("%w: upload pipeline needs an api client", common.ErrConfiguration)
	}

	p := &Pipeline{
		api:         cfg.API,
		http:        cfg.HTTPClient,
		concurrency: cfg.Concurrency,
		retries:     cfg.PartRetries,
		retryBase:   cfg.PartRetryBase,
		journal:     cfg.Journal,
		logger:      cfg.Logger,
	}
	if p.http == nil {
		p.http = netx.NewHTTPClient(5 * time.Minute)
	}
	if p.concurrency <= 0 {
		p.concurrency = DefaultConcurrency
	}
	if p.retries < 0 {
		p.retries = 0
	}
	if p.retryBase <= 0 {
		p.retryBase = 500 * time.Millisecond
	}
	if p.logger == nil {
		p.logger = logging.Nop()
	}
	return p, nil
}

// ReserveRequest names the asset to reserve.
type ReserveRequest struct {
	Kind     Kind
	ParentID string
	FileName string
	FileSize int64
}

type assetAttributes struct {
	FileName           string      `json:"fileName"`
	FileSize           int64       `json:"fileSize"`
	SourceFileChecksum string      `json:"sourceFileChecksum"`
	UploadOperations   []Operation `json:"uploadOperations"`
}

// Reserve creates the asset placeholder. Every failure, including an unknown
// parent, wraps common.ErrReservation.
func (p *Pipeline) Reserve(ctx context.Context, creds auth.Credentials, req ReserveRequest) (*Session, error) {
	if req.Kind.Resource == "" || req.ParentID == "" || req.FileName == "" || req.FileSize <= 0 {
		return nil, fmt.Errorf("%w: kind, parent, file name and a positive size are required", common.ErrReservation)
	}

	body := map[string]any{
		"data": map[string]any{
			"type": req.Kind.Resource,
			"attributes": map[string]any{
				"fileName": req.FileName,
				"fileSize": req.FileSize,
			},
			"relationships": map[string]any{
				req.Kind.ParentRelationship: map[string]any{
					"data": map[string]any{"type": req.Kind.ParentResource, "id": req.ParentID},
				},
			},
		},
	}

	resp, err := p.api.Execute(ctx, api.Post("/"+req.Kind.Resource, body), creds)
	if err != nil {
		metrics.UploadSessions.WithLabelValues(string(StateFailed)).Inc()
		return nil, fmt.Errorf("%w: %s under %s %s: %w", common.ErrReservation, req.FileName, req.Kind.ParentResource, req.ParentID, err)
	}

	s, err := sessionFromResponse(resp, req)
	if err != nil {
		metrics.UploadSessions.WithLabelValues(string(StateFailed)).Inc()
		return nil, fmt.Errorf("%w: %s: %w", common.ErrReservation, req.FileName, err)
	}

	p.logger.Info(ctx, "asset reserved", "asset_id", s.AssetID, "kind", s.Kind.Name, "parts", len(s.Operations))
	p.save(ctx, s)
	return s, nil
}

func sessionFromResponse(resp *api.Response, req ReserveRequest) (*Session, error) {
	res, ok := resp.First()
	if !ok || res.ID == "" {
		return nil, errors.New("reservation returned no asset")
	}

	var attrs assetAttributes
	if err := res.DecodeAttributes(&attrs); err != nil {
		return nil, fmt.Errorf("decode reservation: %w", err)
	}
	if len(attrs.UploadOperations) == 0 {
		return nil, fmt.Errorf("asset %s has no upload operations", res.ID)
	}

	for i, op := range attrs.UploadOperations {
		if op.URL == "" {
			return nil, fmt.Errorf("upload operation %d has no url", i)
		}
		if op.Offset < 0 || op.Length < 0 || op.Offset+op.Length > req.FileSize {
			return nil, fmt.Errorf("upload operation %d range %d+%d is outside %d bytes", i, op.Offset, op.Length, req.FileSize)
		}
		if op.Method == "" {
			attrs.UploadOperations[i].Method = http.MethodPut
		}
	}

	return &Session{
		AssetID:    res.ID,
		Kind:       req.Kind,
		ParentID:   req.ParentID,
		FileName:   req.FileName,
		FileSize:   req.FileSize,
		Operations: attrs.UploadOperations,
		Checksum:   attrs.SourceFileChecksum,
		State:      StateReserved,
	}, nil
}

// Transfer sends every part of src and returns once all of them finished.
// Each failed part is reported in the returned error; any failure moves the
// session to StateFailed.
func (p *Pipeline) Transfer(ctx context.Context, s *Session, src io.ReaderAt) error {
	if s.State != StateReserved {
		return fmt.Errorf("%w: transfer asset %s in state %s", common.ErrInvalidState, s.AssetID, s.State)
	}

	s.State = StateTransferring
	p.record(ctx, s)

	if err := p.sendParts(ctx, s, src); err != nil {
		p.fail(ctx, s, err)
		return fmt.Errorf("transfer asset %s: %w", s.AssetID, err)
	}

	s.transferred = true
	p.record(ctx, s)
	p.logger.Debug(ctx, "asset transferred", "asset_id", s.AssetID, "parts", len(s.Operations))
	return nil
}

// Commit marks the asset uploaded. It may be called again after a commit
// failure, as long as every part was sent, and on a committed session.
func (p *Pipeline) Commit(ctx context.Context, creds auth.Credentials, s *Session) error {
	if !s.transferred {
		return fmt.Errorf("%w: commit asset %s in state %s before all parts were sent", common.ErrInvalidState, s.AssetID, s.State)
	}

	attrs := map[string]any{"uploaded": true}
	if s.Checksum != "" {
		attrs["sourceFileChecksum"] = s.Checksum
	}
	body := map[string]any{
		"data": map[string]any{
			"type":       s.Kind.Resource,
			"id":         s.AssetID,
			"attributes": attrs,
		},
	}

	if _, err := p.api.Execute(ctx, api.Patch("/"+s.Kind.Resource+"/"+s.AssetID, body), creds); err != nil {
		err = fmt.Errorf("%w: asset %s: %w", common.ErrCommit, s.AssetID, err)
		p.fail(ctx, s, err)
		return err
	}

	s.State = StateCommitted
	s.Err = nil
	metrics.UploadSessions.WithLabelValues(string(StateCommitted)).Inc()
	p.record(ctx, s)
	p.logger.Info(ctx, "asset committed", "asset_id", s.AssetID, "checksum", s.Checksum != "")
	return nil
}

// Upload reserves, transfers and commits. The session is returned whenever
// the reservation succeeded, so the caller can retry the commit or discard.
func (p *Pipeline) Upload(ctx context.Context, creds auth.Credentials, req ReserveRequest, src io.ReaderAt) (*Session, error) {
	s, err := p.Reserve(ctx, creds, req)
	if err != nil {
		return nil, err
	}
	if err := p.Transfer(ctx, s, src); err != nil {
		return s, err
	}
	if err := p.Commit(ctx, creds, s); err != nil {
		return s, err
	}
	return s, nil
}

// Discard deletes the remote asset and forgets it in the journal.
func (p *Pipeline) Discard(ctx context.Context, creds auth.Credentials, kind Kind, assetID string) error {
	if kind.Resource == "" || assetID == "" {
		return fmt.Errorf("%w: discard needs a kind and an asset id", common.ErrConfiguration)
	}

	if _, err := p.api.Execute(ctx, api.Delete("/"+kind.Resource+"/"+assetID), creds); err != nil {
		return fmt.Errorf("discard asset %s: %w", assetID, err)
	}

	if p.journal != nil {
		if err := p.journal.Delete(ctx, assetID); err != nil && !errors.Is(err, common.ErrorNotFound) {
			p.logger.Warn(ctx, "journal delete failed", "asset_id", assetID, "error", err)
		}
	}
	p.logger.Info(ctx, "asset discarded", "asset_id", assetID)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, s *Session, err error) {
	s.State = StateFailed
	s.Err = err
	metrics.UploadSessions.WithLabelValues(string(StateFailed)).Inc()
	p.record(ctx, s)
	p.logger.Error(ctx, "upload failed", "asset_id", s.AssetID, "error", err)
}
