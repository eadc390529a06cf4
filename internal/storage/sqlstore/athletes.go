package sqlstore

import (
	"fmt"

	"github.com/julianstephens/pacewise/internal/models"
)

func (q *Queries) SaveConstraints(athleteID string, c models.AthleteConstraints) error {
	days, err := marshal(c.AvailableDays)
	if err != nil {
		return fmt.Errorf("failed to encode available days: %w", err)
	}
	_, err = q.exec(`
		INSERT INTO athletes (
			id, min_sessions_per_week, max_sessions_per_week, available_days,
			max_session_minutes, typical_easy_distance, typical_long_distance, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			min_sessions_per_week = excluded.min_sessions_per_week,
			max_sessions_per_week = excluded.max_sessions_per_week,
			available_days = excluded.available_days,
			max_session_minutes = excluded.max_session_minutes,
			typical_easy_distance = excluded.typical_easy_distance,
			typical_long_distance = excluded.typical_long_distance,
			updated_at = excluded.updated_at`,
		athleteID, c.MinSessionsPerWeek, c.MaxSessionsPerWeek, days,
		c.MaxSessionMinutes, c.TypicalEasyDistance, c.TypicalLongDistance, now(),
	)
	return err
}

func (q *Queries) GetConstraints(athleteID string) (models.AthleteConstraints, error) {
	var c models.AthleteConstraints
	var days string
	err := q.queryRow(`
		SELECT min_sessions_per_week, max_sessions_per_week, available_days,
			max_session_minutes, typical_easy_distance, typical_long_distance
		FROM athletes WHERE id = ?`, athleteID,
	).Scan(&c.MinSessionsPerWeek, &c.MaxSessionsPerWeek, &days,
		&c.MaxSessionMinutes, &c.TypicalEasyDistance, &c.TypicalLongDistance)
	if err != nil {
		return models.AthleteConstraints{}, notFound(err, "no constraints for athlete %s", athleteID)
	}
	if err := unmarshal(days, &c.AvailableDays); err != nil {
		return models.AthleteConstraints{}, fmt.Errorf("failed to decode available days: %w", err)
	}
	return c, nil
}

// GetAthletes lists every athlete with constraints or recorded activities.
func (q *Queries) GetAthletes() ([]string, error) {
	rows, err := q.query(`
		SELECT id FROM athletes
		UNION
		SELECT DISTINCT athlete_id FROM activities
		ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
