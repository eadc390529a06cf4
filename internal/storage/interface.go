package storage

import (
	"errors"

	"github.com/julianstephens/pacewise/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAcceptedPlan is returned when saving over an accepted week plan revision.
	ErrAcceptedPlan = errors.New("cannot overwrite an accepted plan")
	// ErrSnapshotOrder is returned when a snapshot would not extend the series.
	ErrSnapshotOrder = errors.New("snapshots are append-only")
)

type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Athletes
	SaveConstraints(athleteID string, c models.AthleteConstraints) error
	GetConstraints(athleteID string) (models.AthleteConstraints, error)
	GetAthletes() ([]string, error)

	// Activities and derived load
	AddActivity(a models.ActivityRecord, sample models.LoadSample) error
	GetActivities(athleteID, from, to string) ([]models.ActivityRecord, error)
	GetLoadSamples(athleteID, from, to string) ([]models.LoadSample, error)

	// Wellness
	SaveWellness(athleteID string, w models.Wellness) error
	GetWellness(athleteID, from, to string) ([]models.Wellness, error)

	// Metrics series
	AppendSnapshots(athleteID string, snaps []models.MetricsSnapshot) error
	GetSnapshots(athleteID, from, to string) ([]models.MetricsSnapshot, error)
	GetLatestSnapshot(athleteID string) (models.MetricsSnapshot, error)
	ReplaceSnapshots(athleteID string, snaps []models.MetricsSnapshot) error

	// Fitness index
	SaveFitnessIndex(athleteID string, idx models.FitnessIndex) error
	GetFitnessIndex(athleteID string) (models.FitnessIndex, error)

	// Week plans
	SaveWeekPlan(plan models.WeekPlan) (models.WeekPlan, error)
	GetWeekPlan(athleteID, weekStart string) (models.WeekPlan, error)
	GetWeekPlanRevision(athleteID, weekStart string, revision int) (models.WeekPlan, error)
	AcceptWeekPlan(athleteID, weekStart string, revision int) error
	GetWeekSummaries(athleteID, before string, limit int) ([]models.WeekSummary, error)

	// Utils
	GetConfigPath() string
}
