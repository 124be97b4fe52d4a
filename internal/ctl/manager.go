// Package ctl manages the lifecycle of custom target lists: creation, updates
// that either rename or regenerate the list, deletion, downloads and control of
// the keyword audit attached to a list.
package ctl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/query"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/source"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
)

const (
	// DefaultDownloadTTL is the validity of a download link when none is requested.
	DefaultDownloadTTL = 24 * time.Hour

	// MaxDownloadTTL caps the validity of a download link.
	MaxDownloadTTL = 336 * time.Hour

	keywordTypeInclusion = "inclusion"
	keywordTypeExclusion = "exclusion"

	csvContentType = "text/csv"

	logFieldSegment = "segment_id"
	logFieldAction  = "action"
	logFieldReasons = "reasons"
)

// Options configures a Manager.
type Options struct {
	// SourceMaxRows caps the ids kept from an uploaded source file.
	SourceMaxRows int

	// DownloadTTL is the default download link validity.
	DownloadTTL time.Duration
}

// Deps bundles the collaborators of a Manager.
type Deps struct {
	Segments ports.CustomSegmentRepository
	Audits   ports.AuditRepository
	Objects  ports.ObjectStore
	Queue    ports.TaskQueue
}

// Upload is a user-supplied file.
type Upload struct {
	Name string
	Body io.Reader
}

// CreateRequest creates a custom target list.
type CreateRequest struct {
	OwnerID     int64
	Title       string
	SegmentType domain.ItemType
	ListType    domain.Classification
	Params      domain.QueryParams
	SourceType  domain.SourceType
	Source      *Upload
	Inclusion   *Upload
	Exclusion   *Upload
}

// UpdateRequest updates a custom target list. Nil fields are left unchanged.
type UpdateRequest struct {
	Title      *string
	Params     domain.QueryParams
	SourceType domain.SourceType
	Source     *Upload
	Inclusion  *Upload
	Exclusion  *Upload

	// WithVideoExclusion only requests a video exclusion export for a channel list.
	WithVideoExclusion bool
}

// Details is the read model of a custom target list.
type Details struct {
	Segment    domain.CustomSegment
	State      domain.SegmentState
	Pending    bool
	Params     domain.QueryParams
	SourceName string
}

// Manager implements the custom target list lifecycle.
type Manager struct {
	deps   Deps
	opts   Options
	logger *zerolog.Logger
	now    func() time.Time
}

// NewManager creates a Manager.
func NewManager(deps Deps, opts Options, logger *zerolog.Logger) *Manager {
	if opts.SourceMaxRows <= 0 {
		opts.SourceMaxRows = source.DefaultMaxRows
	}

	if opts.DownloadTTL <= 0 {
		opts.DownloadTTL = DefaultDownloadTTL
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Manager{deps: deps, opts: opts, logger: logger, now: time.Now}
}

// keywords is the resolved keyword configuration of a list.
type keywords struct {
	inclusion          []string
	exclusion          []domain.ExclusionRow
	exclusionCategory  []string
	files              map[string]string
	inclusionThreshold int
	exclusionThreshold int
}

func (k keywords) empty() bool {
	return len(k.inclusion) == 0 && len(k.exclusion) == 0
}

// uploads holds the parsed files of a request.
type uploads struct {
	sourceName        string
	sourceIDs         []string
	inclusionName     string
	inclusion         []string
	exclusionName     string
	exclusion         []domain.ExclusionRow
	exclusionCategory []string
}

// Create validates and stores a new list, then enqueues its materialization.
// A source file without usable ids deletes the new list.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (domain.CustomSegment, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return domain.CustomSegment{}, err
	}

	if !req.SegmentType.Valid() {
		return domain.CustomSegment{}, apperrors.NewValidationError("segment_type", "must be video or channel", apperrors.ErrInvalidItemType)
	}

	if err := m.checkTitle(ctx, req.OwnerID, req.SegmentType, title, 0); err != nil {
		return domain.CustomSegment{}, err
	}

	filters, err := query.Build(req.SegmentType, req.Params)
	if err != nil {
		return domain.CustomSegment{}, err
	}

	listType := req.ListType
	if listType == "" {
		listType = domain.Whitelist
	}

	seg := domain.CustomSegment{
		UUID:        uuid.New(),
		OwnerID:     req.OwnerID,
		Title:       title,
		TitleHash:   TitleHash(title),
		SegmentType: req.SegmentType,
		ListType:    listType,
		Statistics:  map[string]any{},
	}

	if err := m.deps.Segments.CreateCustomSegment(ctx, &seg); err != nil {
		return domain.CustomSegment{}, fmt.Errorf("create custom segment: %w", err)
	}

	up, err := m.parseUploads(req.SegmentType, req.Source, req.Inclusion, req.Exclusion)
	if err != nil {
		return seg, m.failCreate(ctx, seg, err)
	}

	kw := m.resolveKeywords(nil, req.Params, up)

	if err := m.materialize(ctx, &seg, nil, req.Params, filters, req.SourceType, up, kw); err != nil {
		return seg, m.failCreate(ctx, seg, err)
	}

	m.record("create", seg.ID, nil)

	return seg, nil
}

// failCreate cleans up after a failed create. An empty source list or an
// unexpected failure removes the list; other validation failures keep it with
// the error recorded in its statistics.
func (m *Manager) failCreate(ctx context.Context, seg domain.CustomSegment, cause error) error {
	if apperrors.Is(cause, apperrors.ErrValidation) && !apperrors.Is(cause, apperrors.ErrEmptySourceList) {
		seg.Statistics = map[string]any{domain.StatisticsErrorKey: cause.Error()}
		if err := m.deps.Segments.UpdateCustomSegment(ctx, seg); err != nil {
			return apperrors.Join(cause, fmt.Errorf("record create error: %w", err))
		}

		return cause
	}

	if err := m.deleteArtifacts(ctx, seg); err != nil {
		return apperrors.Join(cause, err)
	}

	if err := m.deps.Segments.DeleteCustomSegment(ctx, seg.ID); err != nil {
		return apperrors.Join(cause, fmt.Errorf("delete failed custom segment: %w", err))
	}

	return cause
}

// Update applies req to the list with id. Filter, source or keyword changes
// regenerate the list; a title-only change renames it.
func (m *Manager) Update(ctx context.Context, id int64, req UpdateRequest) (domain.CustomSegment, Decision, error) {
	seg, err := m.deps.Segments.GetCustomSegment(ctx, id)
	if err != nil {
		return seg, Decision{}, fmt.Errorf("get custom segment %d: %w", id, err)
	}

	if req.WithVideoExclusion {
		return m.requestVideoExclusion(ctx, seg, req.Params)
	}

	titleChanged := false

	if req.Title != nil {
		title, err := validateTitle(*req.Title)
		if err != nil {
			return seg, Decision{}, err
		}

		if title != seg.Title {
			if err := m.checkTitle(ctx, seg.OwnerID, seg.SegmentType, title, seg.ID); err != nil {
				return seg, Decision{}, err
			}

			seg.Title = title
			seg.TitleHash = TitleHash(title)
			titleChanged = true
		}
	}

	oldParams, err := m.exportParams(ctx, seg.ID)
	if err != nil {
		return seg, Decision{}, err
	}

	oldSource, err := m.sourceFile(ctx, seg.ID)
	if err != nil {
		return seg, Decision{}, err
	}

	oldAudit, err := m.metaAudit(ctx, seg)
	if err != nil {
		return seg, Decision{}, err
	}

	up, err := m.parseUploads(seg.SegmentType, req.Source, req.Inclusion, req.Exclusion)
	if err != nil {
		return seg, Decision{}, err
	}

	decision := Decide(m.decisionInput(titleChanged, oldParams, req.Params, oldSource, oldAudit, up))

	switch decision.Action {
	case ActionRegenerate:
		err = m.regenerate(ctx, &seg, oldParams, req, oldAudit, up)
	case ActionRename:
		err = m.rename(ctx, seg, oldAudit)
	case ActionNoOp:
	}

	if err != nil {
		return seg, decision, err
	}

	m.record(decision.Action.String(), seg.ID, decision.Reasons)

	return seg, decision, nil
}

func (m *Manager) decisionInput(titleChanged bool, oldParams, newParams domain.QueryParams, oldSource *domain.SourceFile, oldAudit *domain.AuditProcessor, up uploads) DecisionInput {
	in := DecisionInput{
		TitleChanged: titleChanged,
		OldParams:    oldParams,
		NewParams:    newParams,
		NewSourceIDs: up.sourceIDs,
	}

	if oldSource != nil {
		in.OldSourceIDs = oldSource.IDs
	}

	in.Inclusion.New = up.inclusion
	in.Inclusion.Removed = thresholdRemoved(newParams, query.ParamInclusionHitThreshold)
	in.Exclusion.New = up.exclusion
	in.Exclusion.Removed = thresholdRemoved(newParams, query.ParamExclusionHitThreshold)

	if oldAudit != nil {
		in.Inclusion.Old = oldAudit.Params.Inclusion
		in.Exclusion.Old = oldAudit.Params.Exclusion
	}

	return in
}

// thresholdRemoved reports whether params explicitly null the threshold at key.
func thresholdRemoved(params domain.QueryParams, key string) bool {
	v, ok := params[key]

	return ok && v == nil
}

func (m *Manager) rename(ctx context.Context, seg domain.CustomSegment, audit *domain.AuditProcessor) error {
	if err := m.deps.Segments.UpdateCustomSegment(ctx, seg); err != nil {
		return fmt.Errorf("rename custom segment: %w", err)
	}

	if audit == nil {
		return nil
	}

	audit.Name = strings.ToLower(seg.Title)
	audit.Params.Name = seg.Title

	if err := m.deps.Audits.UpdateAudit(ctx, *audit); err != nil {
		return fmt.Errorf("rename audit %d: %w", audit.ID, err)
	}

	return nil
}

// regenerate discards every derived artifact except the raw source list and
// materializes the list again. The previous keyword audit is stopped.
func (m *Manager) regenerate(ctx context.Context, seg *domain.CustomSegment, oldParams domain.QueryParams, req UpdateRequest, oldAudit *domain.AuditProcessor, up uploads) error {
	params := oldParams.Clone()
	for k, v := range req.Params {
		params[k] = v
	}

	filters, err := query.Build(seg.SegmentType, params)
	if err != nil {
		return err
	}

	if err := m.clean(ctx, seg); err != nil {
		return err
	}

	seg.IsRegenerating = true

	var oldKeywordParams *domain.AuditParams
	if oldAudit != nil {
		oldKeywordParams = &oldAudit.Params
	}

	kw := m.resolveKeywords(oldKeywordParams, req.Params, up)

	if err := m.materialize(ctx, seg, oldParams, req.Params, filters, req.SourceType, up, kw); err != nil {
		return err
	}

	if oldAudit != nil {
		now := m.now()
		oldAudit.Params.Stopped = true
		oldAudit.Completed = &now
		oldAudit.Pause = 0

		if err := m.deps.Audits.UpdateAudit(ctx, *oldAudit); err != nil {
			return fmt.Errorf("stop previous audit %d: %w", oldAudit.ID, err)
		}
	}

	return nil
}

// clean removes the vetting audit, statistics, export and vetted export of seg.
func (m *Manager) clean(ctx context.Context, seg *domain.CustomSegment) error {
	if seg.AuditID != nil {
		if err := m.deps.Audits.DeleteAudit(ctx, *seg.AuditID); err != nil {
			return fmt.Errorf("delete vetting audit: %w", err)
		}
	}

	export, err := m.deps.Segments.GetExport(ctx, seg.ID)
	switch {
	case err == nil && export.Filename != "":
		if err := m.deps.Objects.Delete(ctx, export.Filename); err != nil {
			return fmt.Errorf("delete export object: %w", err)
		}
	case err != nil && !apperrors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("get export: %w", err)
	}

	if err := m.deps.Segments.DeleteExport(ctx, seg.ID); err != nil {
		return fmt.Errorf("delete export: %w", err)
	}

	if err := m.deps.Segments.DeleteVettedExport(ctx, seg.ID); err != nil {
		return fmt.Errorf("delete vetted export: %w", err)
	}

	seg.AuditID = nil
	seg.MetaAuditID = nil
	seg.IsVettingComplete = false
	seg.IsFeatured = false
	seg.WithVideoExclusion = false
	seg.Statistics = map[string]any{}

	return nil
}

// materialize saves the query snapshot, the source list and the keyword audit,
// stores seg and enqueues the materialization task.
func (m *Manager) materialize(ctx context.Context, seg *domain.CustomSegment, baseParams, newParams domain.QueryParams, filters []domain.Filter, sourceType domain.SourceType, up uploads, kw keywords) error {
	params := baseParams.Clone()
	for k, v := range newParams {
		params[k] = v
	}

	export := domain.CustomSegmentExport{SegmentID: seg.ID, Params: params, Query: query.Snapshot(params, filters)}
	if err := m.deps.Segments.SaveExport(ctx, export); err != nil {
		return fmt.Errorf("save export query: %w", err)
	}

	if up.sourceIDs != nil {
		if err := m.saveSource(ctx, *seg, sourceType, up); err != nil {
			return err
		}
	}

	withAudit := false

	if !kw.empty() {
		audit := newAudit(*seg, kw)
		if err := m.deps.Audits.CreateAudit(ctx, &audit); err != nil {
			return fmt.Errorf("create keyword audit: %w", err)
		}

		seg.MetaAuditID = &audit.ID
		withAudit = true
	}

	if err := m.deps.Segments.UpdateCustomSegment(ctx, *seg); err != nil {
		return fmt.Errorf("update custom segment: %w", err)
	}

	task := domain.Task{Kind: domain.TaskMaterialize, SegmentID: seg.ID, WithAudit: withAudit}
	if err := m.deps.Queue.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue materialization: %w", err)
	}

	return nil
}

func (m *Manager) saveSource(ctx context.Context, seg domain.CustomSegment, sourceType domain.SourceType, up uploads) error {
	var buf bytes.Buffer
	if err := source.WriteIDs(&buf, up.sourceIDs); err != nil {
		return err
	}

	key := seg.SourceKey()
	if err := m.deps.Objects.Put(ctx, key, &buf, csvContentType); err != nil {
		return fmt.Errorf("upload source list: %w", err)
	}

	file := domain.SourceFile{
		SegmentID:  seg.ID,
		Filename:   key,
		Name:       up.sourceName,
		SourceType: sourceType,
		IDs:        up.sourceIDs,
	}

	if err := m.deps.Segments.SaveSourceFile(ctx, file); err != nil {
		return fmt.Errorf("save source file: %w", err)
	}

	return nil
}

func newAudit(seg domain.CustomSegment, kw keywords) domain.AuditProcessor {
	params := domain.AuditParams{
		Name:              seg.Title,
		SegmentID:         seg.ID,
		UserID:            seg.OwnerID,
		Inclusion:         kw.inclusion,
		Exclusion:         kw.exclusion,
		ExclusionCategory: kw.exclusionCategory,
		InclusionHitCount: max(kw.inclusionThreshold, 1),
		ExclusionHitCount: max(kw.exclusionThreshold, 1),
		Files:             kw.files,
	}

	if seg.SegmentType == domain.ItemTypeChannel {
		params.DoVideos = true
		params.NumVideos = domain.DefaultChannelAuditVideos
	}

	return domain.AuditProcessor{
		Name:      strings.ToLower(seg.Title),
		AuditType: domain.AuditTypeFor(seg.SegmentType),
		Source:    domain.AuditSourceCTL,
		Params:    params,
		TempStop:  true,
	}
}

// resolveKeywords decides the keyword gates of the next audit. An uploaded
// file replaces a gate, a nulled threshold removes it and anything else
// carries the previous audit's keywords forward.
func (m *Manager) resolveKeywords(old *domain.AuditParams, params domain.QueryParams, up uploads) keywords {
	kw := keywords{files: map[string]string{}}

	kw.inclusionThreshold, _ = params.Int(query.ParamInclusionHitThreshold)
	kw.exclusionThreshold, _ = params.Int(query.ParamExclusionHitThreshold)

	switch {
	case up.inclusion != nil:
		kw.inclusion = up.inclusion
		kw.files[keywordTypeInclusion] = up.inclusionName
	case old != nil && !thresholdRemoved(params, query.ParamInclusionHitThreshold):
		kw.inclusion = old.Inclusion
		if name, ok := old.Files[keywordTypeInclusion]; ok && len(old.Inclusion) > 0 {
			kw.files[keywordTypeInclusion] = name
		}

		if !params.Has(query.ParamInclusionHitThreshold) {
			kw.inclusionThreshold = old.InclusionHitCount
		}
	}

	switch {
	case up.exclusion != nil:
		kw.exclusion = up.exclusion
		kw.exclusionCategory = up.exclusionCategory
		kw.files[keywordTypeExclusion] = up.exclusionName
	case old != nil && !thresholdRemoved(params, query.ParamExclusionHitThreshold):
		kw.exclusion = old.Exclusion
		kw.exclusionCategory = old.ExclusionCategory
		if name, ok := old.Files[keywordTypeExclusion]; ok && len(old.Exclusion) > 0 {
			kw.files[keywordTypeExclusion] = name
		}

		if !params.Has(query.ParamExclusionHitThreshold) {
			kw.exclusionThreshold = old.ExclusionHitCount
		}
	}

	return kw
}

func (m *Manager) parseUploads(itemType domain.ItemType, src, inclusion, exclusion *Upload) (uploads, error) {
	var up uploads

	if src != nil {
		list, err := source.ExtractIDs(src.Body, itemType, m.opts.SourceMaxRows)
		if err != nil {
			return up, err
		}

		if list.Truncated {
			m.logger.Warn().Str("file", src.Name).Int("kept", len(list.IDs)).Msg("source list truncated")
		}

		up.sourceName = src.Name
		up.sourceIDs = list.IDs
	}

	if inclusion != nil {
		words, err := source.ReadKeywords(inclusion.Body)
		if err != nil {
			return up, err
		}

		up.inclusionName = inclusion.Name
		up.inclusion = words
	}

	if exclusion != nil {
		rows, categories, err := source.ReadExclusionKeywords(exclusion.Body)
		if err != nil {
			return up, err
		}

		up.exclusionName = exclusion.Name
		up.exclusion = rows
		up.exclusionCategory = categories
	}

	return up, nil
}

func (m *Manager) requestVideoExclusion(ctx context.Context, seg domain.CustomSegment, params domain.QueryParams) (domain.CustomSegment, Decision, error) {
	if seg.SegmentType != domain.ItemTypeChannel {
		return seg, Decision{}, apperrors.NewValidationError("with_video_exclusion", "only channel lists support video exclusion", apperrors.ErrInvalidItemType)
	}

	if level, ok := params.Int(query.ParamVideoExclusionScoreThreshold); ok {
		if _, known := query.ScoreThreshold(level); !known {
			return seg, Decision{}, apperrors.NewValidationError(query.ParamVideoExclusionScoreThreshold, "unknown score threshold", apperrors.ErrInvalidThreshold)
		}

		if err := m.saveExportParam(ctx, seg.ID, query.ParamVideoExclusionScoreThreshold, level); err != nil {
			return seg, Decision{}, err
		}
	}

	seg.WithVideoExclusion = true

	if err := m.deps.Segments.UpdateCustomSegment(ctx, seg); err != nil {
		return seg, Decision{}, fmt.Errorf("update custom segment: %w", err)
	}

	if err := m.deps.Queue.Enqueue(ctx, domain.Task{Kind: domain.TaskVideoExclusion, SegmentID: seg.ID}); err != nil {
		return seg, Decision{}, fmt.Errorf("enqueue video exclusion: %w", err)
	}

	m.record("video_exclusion", seg.ID, nil)

	return seg, Decision{Action: ActionNoOp}, nil
}

func (m *Manager) saveExportParam(ctx context.Context, id int64, key string, value any) error {
	export, err := m.deps.Segments.GetExport(ctx, id)
	if err != nil {
		return fmt.Errorf("get export: %w", err)
	}

	if export.Params == nil {
		export.Params = domain.QueryParams{}
	}

	export.Params[key] = value

	if err := m.deps.Segments.SaveExport(ctx, export); err != nil {
		return fmt.Errorf("save export: %w", err)
	}

	return nil
}

// Delete removes the list and its artifacts. Lists with a vetting audit attached are rejected.
func (m *Manager) Delete(ctx context.Context, id int64) error {
	seg, err := m.deps.Segments.GetCustomSegment(ctx, id)
	if err != nil {
		return fmt.Errorf("get custom segment %d: %w", id, err)
	}

	if seg.AuditID != nil {
		return fmt.Errorf("delete custom segment %d: %w", id, apperrors.ErrVettingAttached)
	}

	if err := m.deleteArtifacts(ctx, seg); err != nil {
		return err
	}

	if err := m.deps.Segments.DeleteCustomSegment(ctx, id); err != nil {
		return fmt.Errorf("delete custom segment %d: %w", id, err)
	}

	m.record("delete", id, nil)

	return nil
}

// deleteArtifacts removes the objects and keyword audit owned by seg.
func (m *Manager) deleteArtifacts(ctx context.Context, seg domain.CustomSegment) error {
	var keys []string

	if export, err := m.deps.Segments.GetExport(ctx, seg.ID); err == nil && export.Filename != "" {
		keys = append(keys, export.Filename)
	}

	if src, err := m.deps.Segments.GetSourceFile(ctx, seg.ID); err == nil && src.Filename != "" {
		keys = append(keys, src.Filename)
	}

	if vetted, err := m.deps.Segments.GetVettedExport(ctx, seg.ID); err == nil && vetted.Filename != "" {
		keys = append(keys, vetted.Filename)
	}

	for _, key := range keys {
		if err := m.deps.Objects.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete object %s: %w", key, err)
		}
	}

	if seg.MetaAuditID != nil {
		if err := m.deps.Audits.DeleteAudit(ctx, *seg.MetaAuditID); err != nil {
			return fmt.Errorf("delete keyword audit: %w", err)
		}
	}

	return nil
}

// Get returns the read model of the list with id.
func (m *Manager) Get(ctx context.Context, id int64) (Details, error) {
	seg, err := m.deps.Segments.GetCustomSegment(ctx, id)
	if err != nil {
		return Details{}, fmt.Errorf("get custom segment %d: %w", id, err)
	}

	params, err := m.exportParams(ctx, id)
	if err != nil {
		return Details{}, err
	}

	details := Details{Segment: seg, State: seg.State(), Pending: seg.Pending(), Params: params}

	src, err := m.sourceFile(ctx, id)
	if err != nil {
		return Details{}, err
	}

	if src != nil {
		details.SourceName = src.Name
	}

	return details, nil
}

// DownloadURL returns a presigned link to the materialized export. A ttl of
// zero uses the default and longer ttls are capped.
func (m *Manager) DownloadURL(ctx context.Context, id int64, ttl time.Duration) (string, error) {
	export, err := m.deps.Segments.GetExport(ctx, id)
	if apperrors.Is(err, apperrors.ErrNotFound) || (err == nil && export.Filename == "") {
		return "", fmt.Errorf("download custom segment %d: %w", id, apperrors.ErrExportMissing)
	}

	if err != nil {
		return "", fmt.Errorf("get export %d: %w", id, err)
	}

	if ttl <= 0 {
		ttl = m.opts.DownloadTTL
	}

	ttl = min(ttl, MaxDownloadTTL)

	url, err := m.deps.Objects.PresignGet(ctx, export.Filename, ttl)
	if err != nil {
		return "", fmt.Errorf("presign export %d: %w", id, err)
	}

	return url, nil
}

// PauseAudit pauses the keyword audit of the list.
func (m *Manager) PauseAudit(ctx context.Context, id int64) error {
	return m.updateAudit(ctx, id, "pause", func(a *domain.AuditProcessor) {
		a.Pause = 1
	})
}

// ResumeAudit resumes a paused keyword audit.
func (m *Manager) ResumeAudit(ctx context.Context, id int64) error {
	return m.updateAudit(ctx, id, "resume", func(a *domain.AuditProcessor) {
		a.Pause = 0
		a.TempStop = false
	})
}

// StopAudit stops and completes the keyword audit.
func (m *Manager) StopAudit(ctx context.Context, id int64) error {
	return m.updateAudit(ctx, id, "stop", func(a *domain.AuditProcessor) {
		now := m.now()
		a.Params.Stopped = true
		a.Completed = &now
		a.Pause = 0
	})
}

func (m *Manager) updateAudit(ctx context.Context, id int64, action string, mutate func(*domain.AuditProcessor)) error {
	seg, err := m.deps.Segments.GetCustomSegment(ctx, id)
	if err != nil {
		return fmt.Errorf("get custom segment %d: %w", id, err)
	}

	audit, err := m.metaAudit(ctx, seg)
	if err != nil {
		return err
	}

	if audit == nil {
		return fmt.Errorf("%s audit of custom segment %d: %w", action, id, apperrors.ErrAuditNotFound)
	}

	mutate(audit)

	if err := m.deps.Audits.UpdateAudit(ctx, *audit); err != nil {
		return fmt.Errorf("%s audit %d: %w", action, audit.ID, err)
	}

	m.record("audit_"+action, id, nil)

	return nil
}

func (m *Manager) checkTitle(ctx context.Context, ownerID int64, itemType domain.ItemType, title string, excludeID int64) error {
	exists, err := m.deps.Segments.TitleHashExists(ctx, ownerID, itemType, TitleHash(title), excludeID)
	if err != nil {
		return fmt.Errorf("check title: %w", err)
	}

	if exists {
		return apperrors.NewValidationError("title",
			fmt.Sprintf("a %s target list with the title %q already exists", itemType, title),
			apperrors.ErrDuplicateTitle)
	}

	return nil
}

func (m *Manager) exportParams(ctx context.Context, id int64) (domain.QueryParams, error) {
	export, err := m.deps.Segments.GetExport(ctx, id)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return domain.QueryParams{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get export %d: %w", id, err)
	}

	if export.Params == nil {
		return domain.QueryParams{}, nil
	}

	return export.Params, nil
}

func (m *Manager) sourceFile(ctx context.Context, id int64) (*domain.SourceFile, error) {
	src, err := m.deps.Segments.GetSourceFile(ctx, id)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get source file %d: %w", id, err)
	}

	return &src, nil
}

func (m *Manager) metaAudit(ctx context.Context, seg domain.CustomSegment) (*domain.AuditProcessor, error) {
	if seg.MetaAuditID == nil {
		return nil, nil
	}

	audit, err := m.deps.Audits.GetAudit(ctx, *seg.MetaAuditID)
	if apperrors.Is(err, apperrors.ErrAuditNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get audit %d: %w", *seg.MetaAuditID, err)
	}

	return &audit, nil
}

func (m *Manager) record(action string, id int64, reasons []Reason) {
	observability.CTLTransitions.WithLabelValues(action).Inc()

	names := make([]string, len(reasons))
	for i, r := range reasons {
		names[i] = string(r)
	}

	m.logger.Info().
		Int64(logFieldSegment, id).
		Str(logFieldAction, action).
		Strs(logFieldReasons, names).
		Msg("custom segment updated")
}
