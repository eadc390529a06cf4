package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/storage"
)

const snapshotColumns = `date, daily_load, daily_lower_body_load, chronic_load, acute_load, freshness,
	load_ratio, readiness, readiness_confidence, systemic, lower_body`

// AppendSnapshots extends the stored series. Every snapshot must be dated after the
// latest stored one and the batch must be strictly increasing.
func (q *Queries) AppendSnapshots(athleteID string, snaps []models.MetricsSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := q.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var last sql.NullString
	if err := tx.queryRow("SELECT MAX(date) FROM metrics_snapshots WHERE athlete_id = ?", athleteID).Scan(&last); err != nil {
		return err
	}
	if err := insertSnapshots(tx, athleteID, last.String, snaps); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceSnapshots swaps the athlete's whole series for snaps in one transaction, so a
// failed replay leaves the previous series in place.
func (q *Queries) ReplaceSnapshots(athleteID string, snaps []models.MetricsSnapshot) error {
	tx, err := q.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.exec("DELETE FROM metrics_snapshots WHERE athlete_id = ?", athleteID); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	if err := insertSnapshots(tx, athleteID, "", snaps); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSnapshots(t *tx, athleteID, prev string, snaps []models.MetricsSnapshot) error {
	for _, s := range snaps {
		if prev != "" && s.Date <= prev {
			return fmt.Errorf("%w: snapshot %s does not follow %s", storage.ErrSnapshotOrder, s.Date, prev)
		}
		systemic, err := marshal(s.Systemic)
		if err != nil {
			return err
		}
		lower, err := marshal(s.LowerBody)
		if err != nil {
			return err
		}
		var ratio sql.NullFloat64
		if s.LoadRatio.Defined {
			ratio = sql.NullFloat64{Float64: s.LoadRatio.Value, Valid: true}
		}
		_, err = t.exec(`INSERT INTO metrics_snapshots (athlete_id, `+snapshotColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			athleteID, s.Date, s.DailyLoad, s.DailyLowerBodyLoad, s.ChronicLoad, s.AcuteLoad, s.Freshness,
			ratio, s.Readiness, s.ReadinessConfidence, systemic, lower,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot %s: %w", s.Date, err)
		}
		prev = s.Date
	}
	return nil
}

func (q *Queries) GetSnapshots(athleteID, from, to string) ([]models.MetricsSnapshot, error) {
	where, args := dateRange("WHERE athlete_id = ?", []any{athleteID}, from, to)
	rows, err := q.query("SELECT "+snapshotColumns+" FROM metrics_snapshots "+where+" ORDER BY date", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MetricsSnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) GetLatestSnapshot(athleteID string) (models.MetricsSnapshot, error) {
	row := q.queryRow("SELECT "+snapshotColumns+" FROM metrics_snapshots WHERE athlete_id = ? ORDER BY date DESC LIMIT 1", athleteID)
	s, err := scanSnapshot(row)
	if err != nil {
		return models.MetricsSnapshot{}, notFound(err, "no metrics for athlete %s", athleteID)
	}
	return s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (models.MetricsSnapshot, error) {
	var s models.MetricsSnapshot
	var ratio sql.NullFloat64
	var systemic, lower string
	err := row.Scan(&s.Date, &s.DailyLoad, &s.DailyLowerBodyLoad, &s.ChronicLoad, &s.AcuteLoad, &s.Freshness,
		&ratio, &s.Readiness, &s.ReadinessConfidence, &systemic, &lower)
	if err != nil {
		return models.MetricsSnapshot{}, err
	}
	if ratio.Valid {
		s.LoadRatio = models.DefinedRatio(ratio.Float64)
	}
	if err := unmarshal(systemic, &s.Systemic); err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("failed to decode systemic channel: %w", err)
	}
	if err := unmarshal(lower, &s.LowerBody); err != nil {
		return models.MetricsSnapshot{}, fmt.Errorf("failed to decode lower-body channel: %w", err)
	}
	return s, nil
}

// SaveFitnessIndex records idx. An index derived at the same instant as a stored one
// replaces it.
func (q *Queries) SaveFitnessIndex(athleteID string, idx models.FitnessIndex) error {
	source, err := marshal(idx.SourcePerformance)
	if err != nil {
		return fmt.Errorf("failed to encode source performance: %w", err)
	}
	_, err = q.exec(`
		INSERT INTO fitness_indices (athlete_id, derived_at, value, confidence, source_performance)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (athlete_id, derived_at) DO UPDATE SET
			value = excluded.value,
			confidence = excluded.confidence,
			source_performance = excluded.source_performance`,
		athleteID, idx.DerivedAt.UTC().Format(timeLayout), idx.Value, idx.Confidence, source,
	)
	return err
}

// GetFitnessIndex returns the most recently derived index.
func (q *Queries) GetFitnessIndex(athleteID string) (models.FitnessIndex, error) {
	var idx models.FitnessIndex
	var derivedAt, source string
	err := q.queryRow(`
		SELECT derived_at, value, confidence, source_performance FROM fitness_indices
		WHERE athlete_id = ? ORDER BY derived_at DESC LIMIT 1`, athleteID,
	).Scan(&derivedAt, &idx.Value, &idx.Confidence, &source)
	if err != nil {
		return models.FitnessIndex{}, notFound(err, "no fitness index for athlete %s", athleteID)
	}
	if idx.DerivedAt, err = parseTime(derivedAt); err != nil {
		return models.FitnessIndex{}, err
	}
	if err := unmarshal(source, &idx.SourcePerformance); err != nil {
		return models.FitnessIndex{}, fmt.Errorf("failed to decode source performance: %w", err)
	}
	return idx, nil
}
