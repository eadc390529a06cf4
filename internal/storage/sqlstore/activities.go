package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/julianstephens/pacewise/internal/models"
)

// AddActivity stores an activity together with the load sample derived from it.
func (q *Queries) AddActivity(a models.ActivityRecord, sample models.LoadSample) error {
	if sample.ActivityID != a.ID {
		return fmt.Errorf("load sample %q does not belong to activity %q", sample.ActivityID, a.ID)
	}
	intensity, err := marshal(a.Intensity)
	if err != nil {
		return fmt.Errorf("failed to encode intensity: %w", err)
	}
	warnings, err := marshal(sample.Warnings)
	if err != nil {
		return fmt.Errorf("failed to encode warnings: %w", err)
	}

	tx, err := q.begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.exec(`
		INSERT INTO activities (id, athlete_id, date, duration_minutes, activity_type, distance, intensity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AthleteID, a.Date, a.DurationMinutes, a.ActivityType, a.Distance, intensity, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity %s: %w", a.ID, err)
	}
	_, err = tx.exec(`
		INSERT INTO load_samples (
			activity_id, athlete_id, date, activity_type, systemic_load, lower_body_load,
			confidence, intensity_source, warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.ActivityID, a.AthleteID, sample.Date, sample.ActivityType, sample.SystemicLoad,
		sample.LowerBodyLoad, sample.Confidence, sample.IntensitySource, warnings,
	)
	if err != nil {
		return fmt.Errorf("failed to insert load sample for %s: %w", a.ID, err)
	}
	return tx.Commit()
}

func (q *Queries) GetActivities(athleteID, from, to string) ([]models.ActivityRecord, error) {
	where, args := dateRange("WHERE athlete_id = ?", []any{athleteID}, from, to)
	rows, err := q.query(`
		SELECT id, athlete_id, date, duration_minutes, activity_type, distance, intensity
		FROM activities `+where+` ORDER BY date, created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		var a models.ActivityRecord
		var intensity string
		if err := rows.Scan(&a.ID, &a.AthleteID, &a.Date, &a.DurationMinutes, &a.ActivityType, &a.Distance, &intensity); err != nil {
			return nil, err
		}
		if err := unmarshal(intensity, &a.Intensity); err != nil {
			return nil, fmt.Errorf("failed to decode intensity of %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *Queries) GetLoadSamples(athleteID, from, to string) ([]models.LoadSample, error) {
	where, args := dateRange("WHERE athlete_id = ?", []any{athleteID}, from, to)
	rows, err := q.query(`
		SELECT activity_id, date, activity_type, systemic_load, lower_body_load,
			confidence, intensity_source, warnings
		FROM load_samples `+where+` ORDER BY date, activity_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LoadSample
	for rows.Next() {
		var s models.LoadSample
		var warnings string
		if err := rows.Scan(&s.ActivityID, &s.Date, &s.ActivityType, &s.SystemicLoad, &s.LowerBodyLoad,
			&s.Confidence, &s.IntensitySource, &warnings); err != nil {
			return nil, err
		}
		if err := unmarshal(warnings, &s.Warnings); err != nil {
			return nil, fmt.Errorf("failed to decode warnings of %s: %w", s.ActivityID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (q *Queries) SaveWellness(athleteID string, w models.Wellness) error {
	_, err := q.exec(`
		INSERT INTO wellness (athlete_id, date, sleep_hours, wellness_score) VALUES (?, ?, ?, ?)
		ON CONFLICT (athlete_id, date) DO UPDATE SET
			sleep_hours = excluded.sleep_hours,
			wellness_score = excluded.wellness_score`,
		athleteID, w.Date, nullFloat(w.SleepHours), nullFloat(w.WellnessScore),
	)
	return err
}

func (q *Queries) GetWellness(athleteID, from, to string) ([]models.Wellness, error) {
	where, args := dateRange("WHERE athlete_id = ?", []any{athleteID}, from, to)
	rows, err := q.query(`SELECT date, sleep_hours, wellness_score FROM wellness `+where+` ORDER BY date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Wellness
	for rows.Next() {
		var w models.Wellness
		var sleep, score sql.NullFloat64
		if err := rows.Scan(&w.Date, &sleep, &score); err != nil {
			return nil, err
		}
		w.SleepHours = floatPtr(sleep)
		w.WellnessScore = floatPtr(score)
		out = append(out, w)
	}
	return out, rows.Err()
}
