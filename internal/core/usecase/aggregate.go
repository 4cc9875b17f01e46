package usecase

import (
	"math"

	"github.com/uxlab/synthetic-merchant/internal/core/domain"
)

// AggregateScores rolls per-persona records up into score statistics. Failed
// records (parse errors, timeouts) carry no score: they are excluded from the
// mean and counted separately. With zero scored records no mean is fabricated;
// HasMean stays false. A single scored record yields spread 0.
func AggregateScores(records []domain.FeedbackRecord) domain.ScoreStats {
	stats := domain.ScoreStats{}

	var sum float64
	for _, r := range records {
		if r.Failed {
			stats.Failed++
			continue
		}
		stats.Scored++
		sum += r.Score
	}
	if stats.Scored == 0 {
		return stats
	}

	stats.HasMean = true
	stats.Mean = sum / float64(stats.Scored)

	var sq float64
	for _, r := range records {
		if r.Failed {
			continue
		}
		d := r.Score - stats.Mean
		sq += d * d
	}
	stats.StdDev = math.Sqrt(sq / float64(stats.Scored))
	return stats
}
