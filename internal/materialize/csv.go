package materialize

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/lueurxax/brand-safety-audit/internal/audit/scoring"
	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

var (
	videoColumns   = []string{"URL", "Title", "Language", "Category", "Views", "Likes", "Dislikes", "Overall Score", "Risk"}
	channelColumns = []string{"URL", "Title", "Language", "Category", "Subscribers", "Views", "Monetizable", "Overall Score", "Risk"}
)

// exportWriter writes export rows, emitting the header before the first row.
type exportWriter struct {
	w        *csv.Writer
	itemType domain.ItemType
	started  bool
}

func newExportWriter(w io.Writer, itemType domain.ItemType) *exportWriter {
	return &exportWriter{w: csv.NewWriter(w), itemType: itemType}
}

func (e *exportWriter) header() []string {
	if e.itemType == domain.ItemTypeChannel {
		return channelColumns
	}

	return videoColumns
}

func (e *exportWriter) write(item domain.Item, score *int) error {
	if !e.started {
		if err := e.w.Write(e.header()); err != nil {
			return fmt.Errorf("write export header: %w", err)
		}

		e.started = true
	}

	scoreText := ""
	if score != nil {
		scoreText = strconv.Itoa(*score)
	}

	var row []string

	if e.itemType == domain.ItemTypeChannel {
		row = []string{
			item.URL(), item.Title, item.Language, item.Category,
			strconv.FormatInt(item.Stats.Subscribers, 10),
			strconv.FormatInt(item.Stats.Views, 10),
			strconv.FormatBool(item.IsMonetizable),
			scoreText, scoring.Label(score),
		}
	} else {
		row = []string{
			item.URL(), item.Title, item.Language, item.Category,
			strconv.FormatInt(item.Stats.Views, 10),
			strconv.FormatInt(item.Stats.Likes, 10),
			strconv.FormatInt(item.Stats.Dislikes, 10),
			scoreText, scoring.Label(score),
		}
	}

	if err := e.w.Write(row); err != nil {
		return fmt.Errorf("write export row: %w", err)
	}

	return nil
}

// flush writes the header of an empty export and flushes buffered rows.
func (e *exportWriter) flush() error {
	if !e.started {
		if err := e.w.Write(e.header()); err != nil {
			return fmt.Errorf("write export header: %w", err)
		}

		e.started = true
	}

	e.w.Flush()

	if err := e.w.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}

	return nil
}
