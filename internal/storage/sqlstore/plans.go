package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/julianstephens/pacewise/internal/models"
	"github.com/julianstephens/pacewise/internal/storage"
)

// SaveWeekPlan stores a plan and returns it with its id and revision assigned.
// A zero revision overwrites the latest unaccepted revision, or opens a new one when
// the latest is accepted. An explicit revision may never replace an accepted plan.
func (q *Queries) SaveWeekPlan(plan models.WeekPlan) (models.WeekPlan, error) {
	if plan.AthleteID == "" || plan.WeekStart == "" {
		return models.WeekPlan{}, fmt.Errorf("week plan requires an athlete and a week start")
	}

	tx, err := q.begin()
	if err != nil {
		return models.WeekPlan{}, err
	}
	defer tx.Rollback()

	if plan.Revision == 0 {
		var latest int
		var acceptedAt sql.NullString
		err := tx.queryRow(`
			SELECT revision, accepted_at FROM week_plans
			WHERE athlete_id = ? AND week_start = ? ORDER BY revision DESC LIMIT 1`,
			plan.AthleteID, plan.WeekStart,
		).Scan(&latest, &acceptedAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			plan.Revision = 1
		case err != nil:
			return models.WeekPlan{}, fmt.Errorf("failed to check existing plan: %w", err)
		case acceptedAt.Valid:
			plan.Revision = latest + 1
		default:
			plan.Revision = latest
		}
	}

	var existingID string
	var existingAccepted sql.NullString
	err = tx.queryRow(`
		SELECT id, accepted_at FROM week_plans WHERE athlete_id = ? AND week_start = ? AND revision = ?`,
		plan.AthleteID, plan.WeekStart, plan.Revision,
	).Scan(&existingID, &existingAccepted)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return models.WeekPlan{}, err
	case existingAccepted.Valid:
		return models.WeekPlan{}, fmt.Errorf("%w: %s revision %d", storage.ErrAcceptedPlan, plan.WeekStart, plan.Revision)
	default:
		if _, err := tx.exec(`DELETE FROM week_plans WHERE athlete_id = ? AND week_start = ? AND revision = ?`,
			plan.AthleteID, plan.WeekStart, plan.Revision); err != nil {
			return models.WeekPlan{}, err
		}
		if plan.ID == "" {
			plan.ID = existingID
		}
	}

	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	target, err := marshal(plan.Target)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to encode target: %w", err)
	}
	sessions, err := marshal(plan.Sessions)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to encode sessions: %w", err)
	}
	var acceptedAt sql.NullString
	if plan.AcceptedAt != nil {
		acceptedAt = sql.NullString{String: *plan.AcceptedAt, Valid: true}
	}

	_, err = tx.exec(`
		INSERT INTO week_plans (
			id, athlete_id, week_start, revision, target, sessions, volume, is_recovery_week, accepted_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.AthleteID, plan.WeekStart, plan.Revision, target, sessions,
		plan.Volume(), plan.Target.IsRecoveryWeek, acceptedAt, now(),
	)
	if err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to save plan for %s: %w", plan.WeekStart, err)
	}
	if err := tx.Commit(); err != nil {
		return models.WeekPlan{}, err
	}
	return plan, nil
}

const planColumns = "id, athlete_id, week_start, revision, target, sessions, accepted_at"

// GetWeekPlan returns the latest revision for the week.
func (q *Queries) GetWeekPlan(athleteID, weekStart string) (models.WeekPlan, error) {
	row := q.queryRow(`SELECT `+planColumns+` FROM week_plans
		WHERE athlete_id = ? AND week_start = ? ORDER BY revision DESC LIMIT 1`, athleteID, weekStart)
	plan, err := scanPlan(row)
	if err != nil {
		return models.WeekPlan{}, notFound(err, "no plan for week %s", weekStart)
	}
	return plan, nil
}

func (q *Queries) GetWeekPlanRevision(athleteID, weekStart string, revision int) (models.WeekPlan, error) {
	row := q.queryRow(`SELECT `+planColumns+` FROM week_plans
		WHERE athlete_id = ? AND week_start = ? AND revision = ?`, athleteID, weekStart, revision)
	plan, err := scanPlan(row)
	if err != nil {
		return models.WeekPlan{}, notFound(err, "no plan for week %s revision %d", weekStart, revision)
	}
	return plan, nil
}

// AcceptWeekPlan marks a revision accepted, after which it is immutable.
func (q *Queries) AcceptWeekPlan(athleteID, weekStart string, revision int) error {
	res, err := q.exec(`UPDATE week_plans SET accepted_at = ?
		WHERE athlete_id = ? AND week_start = ? AND revision = ? AND accepted_at IS NULL`,
		now(), athleteID, weekStart, revision)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := q.GetWeekPlanRevision(athleteID, weekStart, revision); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s revision %d is already accepted", storage.ErrAcceptedPlan, weekStart, revision)
	}
	return nil
}

// GetWeekSummaries returns the accepted weeks before the given week start, oldest
// first, at most limit of them.
func (q *Queries) GetWeekSummaries(athleteID, before string, limit int) ([]models.WeekSummary, error) {
	rows, err := q.query(`
		SELECT week_start, volume, is_recovery_week FROM week_plans
		WHERE athlete_id = ? AND week_start < ? AND accepted_at IS NOT NULL
		ORDER BY week_start DESC, revision DESC`, athleteID, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.WeekSummary
	seen := make(map[string]bool)
	for rows.Next() {
		var w models.WeekSummary
		if err := rows.Scan(&w.WeekStart, &w.Volume, &w.IsRecoveryWeek); err != nil {
			return nil, err
		}
		if seen[w.WeekStart] {
			continue
		}
		seen[w.WeekStart] = true
		out = append(out, w)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func scanPlan(row scanner) (models.WeekPlan, error) {
	var p models.WeekPlan
	var target, sessions string
	var acceptedAt sql.NullString
	if err := row.Scan(&p.ID, &p.AthleteID, &p.WeekStart, &p.Revision, &target, &sessions, &acceptedAt); err != nil {
		return models.WeekPlan{}, err
	}
	if err := unmarshal(target, &p.Target); err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to decode target: %w", err)
	}
	if err := unmarshal(sessions, &p.Sessions); err != nil {
		return models.WeekPlan{}, fmt.Errorf("failed to decode sessions: %w", err)
	}
	if acceptedAt.Valid {
		p.AcceptedAt = &acceptedAt.String
	}
	return p, nil
}
