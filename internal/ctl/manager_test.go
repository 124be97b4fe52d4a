package ctl

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports/mocks"
	"github.com/lueurxax/brand-safety-audit/internal/ctl/query"
)

const (
	videoA = "dQw4w9WgXcQ"
	videoB = "9bZkp7q5f8A"
	videoC = "kJQP7kiw5Fk"
)

type managerFixture struct {
	repo    *mocks.CustomSegments
	objects *mocks.ObjectStore
	queue   *mocks.TaskQueue
	manager *Manager
}

func newManagerFixture() *managerFixture {
	f := &managerFixture{
		repo:    mocks.NewCustomSegments(),
		objects: mocks.NewObjectStore(),
		queue:   mocks.NewTaskQueue(),
	}

	f.manager = NewManager(Deps{
		Segments: f.repo,
		Audits:   f.repo,
		Objects:  f.objects,
		Queue:    f.queue,
	}, Options{}, nil)

	return f
}

func upload(name, body string) *Upload {
	return &Upload{Name: name, Body: strings.NewReader(body)}
}

func (f *managerFixture) create(t *testing.T) domain.CustomSegment {
	t.Helper()

	seg, err := f.manager.Create(context.Background(), CreateRequest{
		OwnerID:     7,
		Title:       "Sports Fans",
		SegmentType: domain.ItemTypeVideo,
		Params:      domain.QueryParams{"minimum_views": 0, "inclusion_hit_threshold": 2},
		Source:      upload("ids.csv", "https://www.youtube.com/watch?v="+videoA+"\n"+videoB+"\nnot an id\n"),
		Inclusion:   upload("inclusion.csv", "guns\nammo\nGuns\n"),
	})
	require.NoError(t, err)

	return seg
}

func TestCreate(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()

	seg := f.create(t)

	stored, err := f.repo.GetCustomSegment(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, TitleHash("sports fans"), stored.TitleHash)
	assert.Equal(t, domain.Whitelist, stored.ListType)
	assert.Equal(t, domain.StatePending, stored.State())
	require.NotNil(t, stored.MetaAuditID)

	src, err := f.repo.GetSourceFile(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{videoA, videoB}, src.IDs)
	assert.Equal(t, "ids.csv", src.Name)

	data, ok := f.objects.Object(seg.SourceKey())
	require.True(t, ok)
	assert.Equal(t, videoA+"\n"+videoB+"\n", string(data))

	export, err := f.repo.GetExport(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, export.Params["inclusion_hit_threshold"])
	assert.Contains(t, export.Query, "filters")

	audit, err := f.repo.GetAudit(ctx, *stored.MetaAuditID)
	require.NoError(t, err)
	assert.Equal(t, "sports fans", audit.Name)
	assert.Equal(t, domain.AuditTypeVideo, audit.AuditType)
	assert.Equal(t, []string{"guns", "ammo"}, audit.Params.Inclusion)
	assert.Equal(t, 2, audit.Params.InclusionHitCount)
	assert.Equal(t, 1, audit.Params.ExclusionHitCount)
	assert.Equal(t, "inclusion.csv", audit.Params.Files["inclusion"])
	assert.True(t, audit.TempStop)

	tasks := f.queue.Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.Task{ID: tasks[0].ID, Kind: domain.TaskMaterialize, SegmentID: seg.ID, WithAudit: true, CreatedAt: tasks[0].CreatedAt}, tasks[0])
}

func TestCreateChannelAuditScansVideos(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()

	seg, err := f.manager.Create(ctx, CreateRequest{
		OwnerID:     1,
		Title:       "Channels",
		SegmentType: domain.ItemTypeChannel,
		Params:      domain.QueryParams{},
		Exclusion:   upload("exclusion.csv", "war,Violence\nbomb,Violence\n"),
	})
	require.NoError(t, err)

	audit, err := f.repo.GetAudit(ctx, *seg.MetaAuditID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditTypeChannel, audit.AuditType)
	assert.True(t, audit.Params.DoVideos)
	assert.Equal(t, domain.DefaultChannelAuditVideos, audit.Params.NumVideos)
	assert.Equal(t, []string{"Violence"}, audit.Params.ExclusionCategory)
}

func TestCreateWithoutKeywords(t *testing.T) {
	f := newManagerFixture()

	seg, err := f.manager.Create(context.Background(), CreateRequest{
		OwnerID: 1, Title: "Plain", SegmentType: domain.ItemTypeVideo, Params: domain.QueryParams{},
	})
	require.NoError(t, err)

	assert.Nil(t, seg.MetaAuditID)
	assert.Zero(t, f.repo.Audits())
	require.Len(t, f.queue.Tasks(), 1)
	assert.False(t, f.queue.Tasks()[0].WithAudit)
}

func TestCreateValidation(t *testing.T) {
	f := newManagerFixture()
	f.create(t)

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{
			name: "duplicate title",
			req:  CreateRequest{OwnerID: 7, Title: " SPORTS fans", SegmentType: domain.ItemTypeVideo},
			want: apperrors.ErrDuplicateTitle,
		},
		{
			name: "empty title",
			req:  CreateRequest{OwnerID: 7, Title: "  ", SegmentType: domain.ItemTypeVideo},
			want: apperrors.ErrValidation,
		},
		{
			name: "bad type",
			req:  CreateRequest{OwnerID: 7, Title: "x", SegmentType: "playlist"},
			want: apperrors.ErrInvalidItemType,
		},
		{
			name: "bad score level",
			req:  CreateRequest{OwnerID: 7, Title: "x", SegmentType: domain.ItemTypeVideo, Params: domain.QueryParams{"score_threshold": 9}},
			want: apperrors.ErrInvalidThreshold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Create(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCreateEmptySourceDeletesList(t *testing.T) {
	f := newManagerFixture()

	seg, err := f.manager.Create(context.Background(), CreateRequest{
		OwnerID:     1,
		Title:       "Channels",
		SegmentType: domain.ItemTypeChannel,
		Source:      upload("ids.csv", "https://www.youtube.com/watch?v="+videoA+"\n"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptySourceList)
	assert.False(t, f.repo.HasSegment(seg.ID))
	assert.Empty(t, f.queue.Tasks())
}

func TestCreateEmptyKeywordsRecordsError(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()

	seg, err := f.manager.Create(ctx, CreateRequest{
		OwnerID:     1,
		Title:       "Videos",
		SegmentType: domain.ItemTypeVideo,
		Inclusion:   upload("inclusion.csv", "\n \n"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptyKeywordList)

	stored, err := f.repo.GetCustomSegment(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateFailed, stored.State())
	assert.Empty(t, f.queue.Tasks())
}

func TestUpdateRename(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	title := "Ball Game Fans"
	updated, decision, err := f.manager.Update(ctx, seg.ID, UpdateRequest{Title: &title, Params: domain.QueryParams{"minimum_views": "0"}})
	require.NoError(t, err)

	assert.Equal(t, ActionRename, decision.Action)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, TitleHash(title), updated.TitleHash)

	audit, err := f.repo.GetAudit(ctx, *updated.MetaAuditID)
	require.NoError(t, err)
	assert.Equal(t, "ball game fans", audit.Name)
	assert.Equal(t, title, audit.Params.Name)
	assert.Len(t, f.queue.Tasks(), 1)
}

func TestUpdateSourceOmittedIsNoOp(t *testing.T) {
	f := newManagerFixture()
	seg := f.create(t)

	_, decision, err := f.manager.Update(context.Background(), seg.ID, UpdateRequest{Params: domain.QueryParams{}})
	require.NoError(t, err)

	assert.Equal(t, ActionNoOp, decision.Action)
	assert.Len(t, f.queue.Tasks(), 1)
}

func TestUpdateSameSourceIsNoOp(t *testing.T) {
	f := newManagerFixture()
	seg := f.create(t)

	_, decision, err := f.manager.Update(context.Background(), seg.ID, UpdateRequest{
		Source: upload("again.csv", videoB+"\n"+videoA+"\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, ActionNoOp, decision.Action)
}

func TestUpdateRegenerateOnParams(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	oldAuditID := *seg.MetaAuditID

	f.repo.SetVettedExport(domain.VettedExport{SegmentID: seg.ID, Filename: "vetted.csv"})

	updated, decision, err := f.manager.Update(ctx, seg.ID, UpdateRequest{Params: domain.QueryParams{"minimum_views": 1000}})
	require.NoError(t, err)

	assert.Equal(t, ActionRegenerate, decision.Action)
	assert.Equal(t, []Reason{ReasonParamsChanged}, decision.Reasons)
	assert.Equal(t, domain.StateRegenerating, updated.State())

	oldAudit, err := f.repo.GetAudit(ctx, oldAuditID)
	require.NoError(t, err)
	assert.True(t, oldAudit.Params.Stopped)
	assert.NotNil(t, oldAudit.Completed)

	require.NotNil(t, updated.MetaAuditID)
	assert.NotEqual(t, oldAuditID, *updated.MetaAuditID)

	newAudit, err := f.repo.GetAudit(ctx, *updated.MetaAuditID)
	require.NoError(t, err)
	assert.Equal(t, []string{"guns", "ammo"}, newAudit.Params.Inclusion)
	assert.Equal(t, 2, newAudit.Params.InclusionHitCount)

	export, err := f.repo.GetExport(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, export.Params["minimum_views"])
	assert.Equal(t, 2, export.Params["inclusion_hit_threshold"])

	_, err = f.repo.GetVettedExport(ctx, seg.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	src, err := f.repo.GetSourceFile(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{videoA, videoB}, src.IDs)

	tasks := f.queue.Tasks()
	require.Len(t, tasks, 2)
	assert.True(t, tasks[1].WithAudit)
}

func TestUpdateRegenerateOnNewSource(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	_, decision, err := f.manager.Update(ctx, seg.ID, UpdateRequest{
		Source:     upload("new.csv", videoC+"\n"),
		SourceType: domain.SourceExclusion,
	})
	require.NoError(t, err)
	assert.Equal(t, []Reason{ReasonSourceChanged}, decision.Reasons)

	src, err := f.repo.GetSourceFile(ctx, seg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{videoC}, src.IDs)
	assert.Equal(t, domain.SourceExclusion, src.SourceType)
}

func TestUpdateRemovesInclusion(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	updated, decision, err := f.manager.Update(ctx, seg.ID, UpdateRequest{
		Params: domain.QueryParams{"inclusion_hit_threshold": nil},
	})
	require.NoError(t, err)

	assert.Equal(t, ActionRegenerate, decision.Action)
	assert.Contains(t, decision.Reasons, ReasonInclusionRemoved)
	assert.Nil(t, updated.MetaAuditID)

	tasks := f.queue.Tasks()
	require.Len(t, tasks, 2)
	assert.False(t, tasks[1].WithAudit)
}

func TestUpdateVideoExclusion(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()

	video := f.create(t)

	_, _, err := f.manager.Update(ctx, video.ID, UpdateRequest{WithVideoExclusion: true})
	assert.ErrorIs(t, err, apperrors.ErrInvalidItemType)

	channel, err := f.manager.Create(ctx, CreateRequest{OwnerID: 7, Title: "Channels", SegmentType: domain.ItemTypeChannel})
	require.NoError(t, err)

	_, _, err = f.manager.Update(ctx, channel.ID, UpdateRequest{
		WithVideoExclusion: true,
		Params:             domain.QueryParams{query.ParamVideoExclusionScoreThreshold: 9},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidThreshold)

	updated, _, err := f.manager.Update(ctx, channel.ID, UpdateRequest{
		WithVideoExclusion: true,
		Params:             domain.QueryParams{query.ParamVideoExclusionScoreThreshold: 3},
	})
	require.NoError(t, err)
	assert.True(t, updated.WithVideoExclusion)

	export, err := f.repo.GetExport(ctx, channel.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, export.Params[query.ParamVideoExclusionScoreThreshold])

	tasks := f.queue.Tasks()
	assert.Equal(t, domain.TaskVideoExclusion, tasks[len(tasks)-1].Kind)
}

func TestDelete(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	require.NoError(t, f.manager.Delete(ctx, seg.ID))

	assert.False(t, f.repo.HasSegment(seg.ID))
	assert.Empty(t, f.objects.Keys())
	assert.Zero(t, f.repo.Audits())
}

func TestDeleteWithVettingAttached(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	seg, err := f.repo.GetCustomSegment(ctx, seg.ID)
	require.NoError(t, err)

	auditID := int64(99)
	seg.AuditID = &auditID
	require.NoError(t, f.repo.UpdateCustomSegment(ctx, seg))

	err = f.manager.Delete(ctx, seg.ID)
	assert.ErrorIs(t, err, apperrors.ErrVettingAttached)
	assert.True(t, f.repo.HasSegment(seg.ID))
}

func TestDownloadURL(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	_, err := f.manager.DownloadURL(ctx, seg.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrExportMissing)

	export, err := f.repo.GetExport(ctx, seg.ID)
	require.NoError(t, err)

	export.Filename = seg.ExportKey()
	require.NoError(t, f.repo.SaveExport(ctx, export))
	require.NoError(t, f.objects.Put(ctx, export.Filename, strings.NewReader("id\n"), "text/csv"))

	url, err := f.manager.DownloadURL(ctx, seg.ID, 0)
	require.NoError(t, err)
	assert.Contains(t, url, "expires=86400")

	url, err = f.manager.DownloadURL(ctx, seg.ID, 1000*time.Hour)
	require.NoError(t, err)
	assert.Contains(t, url, "expires=1209600")
}

func TestAuditControls(t *testing.T) {
	f := newManagerFixture()
	ctx := context.Background()
	seg := f.create(t)

	require.NoError(t, f.manager.PauseAudit(ctx, seg.ID))

	audit, err := f.repo.GetAudit(ctx, *seg.MetaAuditID)
	require.NoError(t, err)
	assert.True(t, audit.Paused())

	require.NoError(t, f.manager.ResumeAudit(ctx, seg.ID))

	audit, err = f.repo.GetAudit(ctx, *seg.MetaAuditID)
	require.NoError(t, err)
	assert.False(t, audit.Paused())
	assert.False(t, audit.TempStop)

	require.NoError(t, f.manager.StopAudit(ctx, seg.ID))

	audit, err = f.repo.GetAudit(ctx, *seg.MetaAuditID)
	require.NoError(t, err)
	assert.True(t, audit.Stopped())

	plain, err := f.manager.Create(ctx, CreateRequest{OwnerID: 7, Title: "Plain", SegmentType: domain.ItemTypeVideo})
	require.NoError(t, err)

	assert.ErrorIs(t, f.manager.PauseAudit(ctx, plain.ID), apperrors.ErrAuditNotFound)
}

func TestGet(t *testing.T) {
	f := newManagerFixture()
	seg := f.create(t)

	details, err := f.manager.Get(context.Background(), seg.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StatePending, details.State)
	assert.True(t, details.Pending)
	assert.Equal(t, "ids.csv", details.SourceName)
	assert.Equal(t, 0, details.Params["minimum_views"])
}
