package app

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports/mocks"
	"github.com/lueurxax/brand-safety-audit/internal/ctl"
)

type ctlFixture struct {
	repo  *mocks.CustomSegments
	queue *mocks.TaskQueue
	m     *ctl.Manager
}

func newCTLFixture() *ctlFixture {
	f := &ctlFixture{repo: mocks.NewCustomSegments(), queue: mocks.NewTaskQueue()}
	f.m = ctl.NewManager(ctl.Deps{
		Segments: f.repo,
		Audits:   f.repo,
		Objects:  mocks.NewObjectStore(),
		Queue:    f.queue,
	}, ctl.Options{}, nil)

	return f
}

func (f *ctlFixture) run(t *testing.T, cmd CTLCommand) (ctlResult, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.Out = &out

	if err := runCTLCommand(context.Background(), f.m, cmd); err != nil {
		return ctlResult{}, err
	}

	var result ctlResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))

	return result, nil
}

func TestRunCTLCommandLifecycle(t *testing.T) {
	f := newCTLFixture()

	source := filepath.Join(t.TempDir(), "videos.csv")
	require.NoError(t, os.WriteFile(source, []byte("https://www.youtube.com/watch?v=dQw4w9WgXcQ\n"), 0o600))

	body := `{"owner_id": 7, "title": "Sports", "segment_type": "video", "params": {"score_threshold": 2}, "source_file": "` + source + `"}`

	created, err := f.run(t, CTLCommand{Op: CTLCreate, In: strings.NewReader(body)})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Sports", created.Title)
	assert.Len(t, f.queue.Tasks(), 1)

	got, err := f.run(t, CTLCommand{Op: CTLGet, ID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.StatePending, got.State)

	renamed, err := f.run(t, CTLCommand{Op: CTLUpdate, ID: created.ID, In: strings.NewReader(`{"title": "Sports Fans"}`)})
	require.NoError(t, err)
	assert.Equal(t, "Sports Fans", renamed.Title)
	assert.Equal(t, ctl.ActionRename.String(), renamed.Action)

	_, err = f.run(t, CTLCommand{Op: CTLDownload, ID: created.ID})
	assert.ErrorIs(t, err, apperrors.ErrExportMissing)

	_, err = f.run(t, CTLCommand{Op: CTLDelete, ID: created.ID})
	require.NoError(t, err)
	assert.False(t, f.repo.HasSegment(created.ID))
}

func TestRunCTLCommandRejectsBadInput(t *testing.T) {
	f := newCTLFixture()

	tests := []struct {
		name string
		cmd  CTLCommand
		want error
	}{
		{name: "unknown op", cmd: CTLCommand{Op: "archive"}, want: apperrors.ErrInvalidConfig},
		{name: "missing body", cmd: CTLCommand{Op: CTLCreate}, want: apperrors.ErrValidation},
		{name: "malformed body", cmd: CTLCommand{Op: CTLCreate, In: strings.NewReader("{")}, want: apperrors.ErrValidation},
		{name: "missing upload", cmd: CTLCommand{Op: CTLCreate, In: strings.NewReader(`{"title": "x", "segment_type": "video", "source_file": "/nonexistent/list.csv"}`)}, want: os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.run(t, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Empty(t, f.queue.Tasks())
}
