package metrics

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/logger"
	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/utils"
)

// History is one athlete's input to a replay.
type History struct {
	Samples  []models.LoadSample
	Wellness []models.Wellness
	// Through extends the series with rest days up to this date. Empty means the
	// last sample date.
	Through string
}

// Replay rebuilds the full snapshot series from the first sample date.
func (e *Engine) Replay(samples []models.LoadSample, wellness []models.Wellness, through string) ([]models.MetricsSnapshot, error) {
	return e.Extend(nil, samples, wellness, through)
}

// Extend appends one snapshot per day after prior up to through (or the last sample date).
// Samples on or before prior.Date are rejected since snapshots are append-only.
func (e *Engine) Extend(prior *models.MetricsSnapshot, samples []models.LoadSample, wellness []models.Wellness, through string) ([]models.MetricsSnapshot, error) {
	byDate := make(map[string][]models.LoadSample)
	var first, last string
	for i, s := range samples {
		if _, err := utils.ParseDate(s.Date); err != nil {
			return nil, perrors.Invalid("samples", "sample %d: %v", i, err)
		}
		byDate[s.Date] = append(byDate[s.Date], s)
		if first == "" || s.Date < first {
			first = s.Date
		}
		if s.Date > last {
			last = s.Date
		}
	}

	if prior != nil {
		if first != "" && first <= prior.Date {
			return nil, perrors.Invalid("samples", "sample dated %s is not after the last snapshot %s", first, prior.Date)
		}
		next, err := utils.AddDays(prior.Date, 1)
		if err != nil {
			return nil, perrors.Invalid("prior.date", "%v", err)
		}
		first = next
	}
	if first == "" {
		return nil, nil
	}

	if through != "" {
		if _, err := utils.ParseDate(through); err != nil {
			return nil, perrors.Invalid("through", "%v", err)
		}
		if last != "" && through < last {
			return nil, perrors.Invalid("through", "%s is before the last sample %s", through, last)
		}
		last = through
	}
	if last == "" || last < first {
		return nil, nil
	}

	wellnessByDate := make(map[string]models.Wellness, len(wellness))
	for _, w := range wellness {
		wellnessByDate[w.Date] = w
	}

	start, _ := utils.ParseDate(first)
	end, _ := utils.ParseDate(last)
	series := make([]models.MetricsSnapshot, 0, utils.DaysBetween(start, end)+1)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := utils.FormatDate(d)
		var w *models.Wellness
		if entry, ok := wellnessByDate[date]; ok {
			w = &entry
		}
		snap, err := e.Advance(prior, date, byDate[date], w)
		if err != nil {
			return nil, err
		}
		series = append(series, snap)
		prior = &series[len(series)-1]
	}

	logger.Debug("Replayed metrics", "from", first, "through", last, "days", len(series))
	return series, nil
}

// ReplayAthletes replays independent athletes concurrently. The first failure cancels
// the remaining replays.
func (e *Engine) ReplayAthletes(ctx context.Context, histories map[string]History) (map[string][]models.MetricsSnapshot, error) {
	ids := make([]string, 0, len(histories))
	for id := range histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	series := make([][]models.MetricsSnapshot, len(ids))
	g, gCtx := errgroup.WithContext(ctx)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			h := histories[id]
			out, err := e.Replay(h.Samples, h.Wellness, h.Through)
			if err != nil {
				return fmt.Errorf("athlete %s: %w", id, err)
			}
			series[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string][]models.MetricsSnapshot, len(ids))
	for i, id := range ids {
		result[id] = series[i]
	}
	return result, nil
}
