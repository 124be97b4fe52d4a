package scoring

import "github.com/lueurxax/brand-safety-audit/internal/core/domain"

// RollupChannel scores channel metadata and aggregates the results of its videos.
// Found words of every video are carried onto the channel, followed by the
// channel's own metadata hits.
func (e *Engine) RollupChannel(channel domain.Item, videos []domain.ScoreResult) domain.ScoreResult {
	meta := e.Score(channel)
	if len(videos) == 0 {
		return meta
	}

	var result domain.ScoreResult

	switch e.opts.Rollup {
	case RollupAverage:
		result = e.averageRollup(meta, videos)
	default:
		result = e.worstRollup(meta, videos)
	}

	result.ItemID = channel.ID
	result.LanguageOK = meta.LanguageOK
	result.AuditedVideos = len(videos)
	result.FoundWords = concatWords(videos, meta)
	result.Hits = concatHits(videos, meta)
	result.HasEmoji = meta.HasEmoji

	for _, v := range videos {
		result.HasEmoji = result.HasEmoji || v.HasEmoji
	}

	if channel.Blocklisted {
		result.Overall = domain.MinScore
	}

	return result
}

func (e *Engine) worstRollup(meta domain.ScoreResult, videos []domain.ScoreResult) domain.ScoreResult {
	result := domain.ScoreResult{
		CategoryScores: make(map[string]int, len(meta.CategoryScores)),
		Overall:        meta.Overall,
	}

	for c, s := range meta.CategoryScores {
		result.CategoryScores[c] = s
	}

	for _, v := range videos {
		result.Overall = min(result.Overall, v.Overall)

		for c, s := range v.CategoryScores {
			if cur, ok := result.CategoryScores[c]; !ok || s < cur {
				result.CategoryScores[c] = s
			}
		}
	}

	return result
}

func (e *Engine) averageRollup(meta domain.ScoreResult, videos []domain.ScoreResult) domain.ScoreResult {
	sums := make(map[string]int, len(e.categories))
	overall := 0

	for _, v := range videos {
		overall += v.Overall

		for _, c := range e.categories {
			s, ok := v.CategoryScores[c]
			if !ok {
				s = domain.MaxScore
			}

			sums[c] += s
		}
	}

	n := len(videos)
	result := domain.ScoreResult{
		CategoryScores: make(map[string]int, len(sums)),
		Overall:        overall / n,
	}

	for c, s := range sums {
		result.CategoryScores[c] = s / n
	}

	for _, hit := range meta.Hits {
		p := e.penalty(hit)
		result.Overall = clamp(result.Overall - p)

		if hit.Category != "" {
			result.CategoryScores[hit.Category] = clamp(result.CategoryScores[hit.Category] - p)
		}
	}

	return result
}

func concatWords(videos []domain.ScoreResult, meta domain.ScoreResult) []string {
	words := []string{}
	for _, v := range videos {
		words = append(words, v.FoundWords...)
	}

	return append(words, meta.FoundWords...)
}

func concatHits(videos []domain.ScoreResult, meta domain.ScoreResult) []domain.KeywordHit {
	var hits []domain.KeywordHit
	for _, v := range videos {
		hits = append(hits, v.Hits...)
	}

	return append(hits, meta.Hits...)
}
