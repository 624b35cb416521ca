package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/repositories/sessions"
)

// Journal records session transitions. sessions.Repository satisfies it.
type Journal interface {
	Save(ctx context.Context, rec sessions.Record) error
	UpdateState(ctx context.Context, assetID, state string, transferred bool, errText string) error
	Delete(ctx context.Context, assetID string) error
}

func toRecord(s *Session) sessions.Record {
	rec := sessions.Record{
		AssetID:     s.AssetID,
		Kind:        s.Kind.Name,
		ParentID:    s.ParentID,
		FileName:    s.FileName,
		FileSize:    s.FileSize,
		Checksum:    s.Checksum,
		State:       string(s.State),
		Transferred: s.transferred,
	}
	if s.Err != nil {
		rec.Error = s.Err.Error()
	}
	return rec
}

// SessionFromRecord rebuilds a journalled session far enough to commit it.
// Upload operations are not journalled, so the result cannot be transferred
// again.
func SessionFromRecord(rec sessions.Record) (*Session, error) {
	kind, err := KindByName(rec.Kind)
	if err != nil {
		return nil, fmt.Errorf("journal record %s: %w", rec.AssetID, err)
	}
	s := &Session{
		AssetID:     rec.AssetID,
		Kind:        kind,
		ParentID:    rec.ParentID,
		FileName:    rec.FileName,
		FileSize:    rec.FileSize,
		Checksum:    rec.Checksum,
		State:       State(rec.State),
		transferred: rec.Transferred,
	}
	if rec.Error != "" {
		s.Err = errors.New(rec.Error)
	}
	return s, nil
}

// save writes the whole session; used once, when it is reserved.
func (p *Pipeline) save(ctx context.Context, s *Session) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Save(ctx, toRecord(s)); err != nil {
		p.logger.Warn(ctx, "journal write failed", "asset_id", s.AssetID, "state", s.State, "error", err)
	}
}

// record writes a transition of s. A session the journal does not know yet,
// e.g. one reserved before the journal was configured, is saved whole.
// The journal is bookkeeping for crash recovery; a write failure is logged
// and does not change the upload result.
func (p *Pipeline) record(ctx context.Context, s *Session) {
	if p.journal == nil {
		return
	}
	errText := ""
	if s.Err != nil {
		errText = s.Err.Error()
	}
	err := p.journal.UpdateState(ctx, s.AssetID, string(s.State), s.transferred, errText)
	if errors.Is(err, common.ErrorNotFound) {
		p.save(ctx, s)
		return
	}
	if err != nil {
		p.logger.Warn(ctx, "journal write failed", "asset_id", s.AssetID, "state", s.State, "error", err)
	}
}
