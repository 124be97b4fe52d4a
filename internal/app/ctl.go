package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/ctl"
)

// Custom target list operations accepted by RunCTL.
const (
	CTLCreate   = "create"
	CTLUpdate   = "update"
	CTLDelete   = "delete"
	CTLGet      = "get"
	CTLDownload = "download"
	CTLPause    = "pause"
	CTLResume   = "resume"
	CTLStop     = "stop"
)

const logFieldOp = "op"

// CTLCommand is one custom target list operation. Create and update read a
// JSON request from In; every operation writes a JSON result to Out.
type CTLCommand struct {
	Op  string
	ID  int64
	TTL time.Duration
	In  io.Reader
	Out io.Writer
}

// ctlRequest is the JSON body of create and update. Upload fields name local
// CSV files.
type ctlRequest struct {
	OwnerID            int64                 `json:"owner_id"`
	Title              *string               `json:"title"`
	SegmentType        domain.ItemType       `json:"segment_type"`
	ListType           domain.Classification `json:"list_type"`
	Params             domain.QueryParams    `json:"params"`
	SourceType         domain.SourceType     `json:"source_type"`
	SourceFile         string                `json:"source_file"`
	InclusionFile      string                `json:"inclusion_file"`
	ExclusionFile      string                `json:"exclusion_file"`
	WithVideoExclusion bool                  `json:"with_video_exclusion"`
}

type ctlResult struct {
	ID         int64               `json:"id"`
	Title      string              `json:"title,omitempty"`
	State      domain.SegmentState `json:"state,omitempty"`
	Action     string              `json:"action,omitempty"`
	Reasons    []ctl.Reason        `json:"reasons,omitempty"`
	URL        string              `json:"url,omitempty"`
	Params     domain.QueryParams  `json:"params,omitempty"`
	Statistics map[string]any      `json:"statistics,omitempty"`
}

// RunCTL runs one custom target list operation against the configured
// database, object store and task queue.
func (a *App) RunCTL(ctx context.Context, cmd CTLCommand) error {
	m, closer, err := a.NewCTLManager(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err := closer.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close task queue")
		}
	}()

	if err := runCTLCommand(ctx, m, cmd); err != nil {
		return err
	}

	a.logger.Info().Str(logFieldOp, cmd.Op).Int64("segment_id", cmd.ID).Msg("custom target list operation done")

	return nil
}

func runCTLCommand(ctx context.Context, m *ctl.Manager, cmd CTLCommand) error {
	result, err := ctlOperation(ctx, m, cmd)
	if err != nil {
		return fmt.Errorf("ctl %s: %w", cmd.Op, err)
	}

	enc := json.NewEncoder(cmd.Out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write ctl result: %w", err)
	}

	return nil
}

func ctlOperation(ctx context.Context, m *ctl.Manager, cmd CTLCommand) (ctlResult, error) {
	switch cmd.Op {
	case CTLCreate:
		req, files, err := readCTLRequest(cmd.In)
		if err != nil {
			return ctlResult{}, err
		}
		defer files.close()

		title := ""
		if req.Title != nil {
			title = *req.Title
		}

		seg, err := m.Create(ctx, ctl.CreateRequest{
			OwnerID:     req.OwnerID,
			Title:       title,
			SegmentType: req.SegmentType,
			ListType:    req.ListType,
			Params:      req.Params,
			SourceType:  req.SourceType,
			Source:      files.source,
			Inclusion:   files.inclusion,
			Exclusion:   files.exclusion,
		})
		if err != nil {
			return ctlResult{}, err
		}

		return segmentResult(seg), nil
	case CTLUpdate:
		req, files, err := readCTLRequest(cmd.In)
		if err != nil {
			return ctlResult{}, err
		}
		defer files.close()

		seg, decision, err := m.Update(ctx, cmd.ID, ctl.UpdateRequest{
			Title:              req.Title,
			Params:             req.Params,
			SourceType:         req.SourceType,
			Source:             files.source,
			Inclusion:          files.inclusion,
			Exclusion:          files.exclusion,
			WithVideoExclusion: req.WithVideoExclusion,
		})
		if err != nil {
			return ctlResult{}, err
		}

		result := segmentResult(seg)
		result.Action = decision.Action.String()
		result.Reasons = decision.Reasons

		return result, nil
	case CTLGet:
		details, err := m.Get(ctx, cmd.ID)
		if err != nil {
			return ctlResult{}, err
		}

		result := segmentResult(details.Segment)
		result.State = details.State
		result.Params = details.Params

		return result, nil
	case CTLDownload:
		url, err := m.DownloadURL(ctx, cmd.ID, cmd.TTL)
		if err != nil {
			return ctlResult{}, err
		}

		return ctlResult{ID: cmd.ID, URL: url}, nil
	case CTLDelete:
		return ctlResult{ID: cmd.ID}, m.Delete(ctx, cmd.ID)
	case CTLPause:
		return ctlResult{ID: cmd.ID}, m.PauseAudit(ctx, cmd.ID)
	case CTLResume:
		return ctlResult{ID: cmd.ID}, m.ResumeAudit(ctx, cmd.ID)
	case CTLStop:
		return ctlResult{ID: cmd.ID}, m.StopAudit(ctx, cmd.ID)
	default:
		return ctlResult{}, fmt.Errorf("unknown operation %q: %w", cmd.Op, apperrors.ErrInvalidConfig)
	}
}

func segmentResult(seg domain.CustomSegment) ctlResult {
	return ctlResult{
		ID:         seg.ID,
		Title:      seg.Title,
		State:      seg.State(),
		Statistics: seg.Statistics,
	}
}

// ctlFiles holds the opened upload files of a request.
type ctlFiles struct {
	source    *ctl.Upload
	inclusion *ctl.Upload
	exclusion *ctl.Upload
	open      []io.Closer
}

func (f *ctlFiles) close() {
	for _, c := range f.open {
		_ = c.Close()
	}
}

func (f *ctlFiles) upload(path string) (*ctl.Upload, error) {
	if path == "" {
		return nil, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}

	f.open = append(f.open, file)

	return &ctl.Upload{Name: filepath.Base(path), Body: file}, nil
}

func readCTLRequest(r io.Reader) (ctlRequest, *ctlFiles, error) {
	var req ctlRequest

	if r == nil {
		return req, nil, apperrors.NewValidationError("request", "missing request body", nil)
	}

	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return req, nil, apperrors.NewValidationError("request", err.Error(), nil)
	}

	files := &ctlFiles{}

	var err error

	if files.source, err = files.upload(req.SourceFile); err == nil {
		if files.inclusion, err = files.upload(req.InclusionFile); err == nil {
			files.exclusion, err = files.upload(req.ExclusionFile)
		}
	}

	if err != nil {
		files.close()

		return req, nil, err
	}

	return req, files, nil
}
