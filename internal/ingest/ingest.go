// Package ingest reads activity and wellness logs exported as YAML or JSON.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	perrors "github.com/julianstephens/pacewise/internal/errors"
	"github.com/julianstephens/pacewise/internal/models"
)

// Batch is one import file. JSON documents parse as YAML.
type Batch struct {
	AthleteID   string                     `yaml:"athlete_id"`
	Constraints *models.AthleteConstraints `yaml:"constraints,omitempty"`
	Activities  []models.ActivityRecord    `yaml:"activities"`
	Wellness    []models.Wellness          `yaml:"wellness"`
	Performance *models.Performance        `yaml:"performance,omitempty"`
}

func ReadFile(path, defaultAthlete string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	b, err := Parse(data, defaultAthlete)
	if err != nil {
		return Batch{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes and validates a batch. Unknown fields are rejected, missing
// activity ids are generated, and records are sorted by date.
func Parse(data []byte, defaultAthlete string) (Batch, error) {
	var b Batch
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b); err != nil && !errors.Is(err, io.EOF) {
		return Batch{}, fmt.Errorf("failed to parse import: %w", err)
	}

	if b.AthleteID == "" {
		b.AthleteID = defaultAthlete
	}
	if b.AthleteID == "" {
		return Batch{}, perrors.Invalid("athlete_id", "is required")
	}

	seen := make(map[string]bool, len(b.Activities))
	for i := range b.Activities {
		a := &b.Activities[i]
		if a.AthleteID != "" && a.AthleteID != b.AthleteID {
			return Batch{}, perrors.Invalid(fmt.Sprintf("activities[%d].athlete_id", i), "%q does not match %q", a.AthleteID, b.AthleteID)
		}
		a.AthleteID = b.AthleteID
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if seen[a.ID] {
			return Batch{}, perrors.Invalid(fmt.Sprintf("activities[%d].id", i), "duplicate id %s", a.ID)
		}
		seen[a.ID] = true
		if err := models.Validate(*a); err != nil {
			return Batch{}, fmt.Errorf("activities[%d]: %w", i, err)
		}
	}

	days := make(map[string]bool, len(b.Wellness))
	for i, w := range b.Wellness {
		if err := models.Validate(w); err != nil {
			return Batch{}, fmt.Errorf("wellness[%d]: %w", i, err)
		}
		if days[w.Date] {
			return Batch{}, perrors.Invalid(fmt.Sprintf("wellness[%d].date", i), "duplicate day %s", w.Date)
		}
		days[w.Date] = true
	}

	if b.Constraints != nil {
		if err := models.Validate(*b.Constraints); err != nil {
			return Batch{}, fmt.Errorf("constraints: %w", err)
		}
	}
	if b.Performance != nil {
		if err := models.Validate(*b.Performance); err != nil {
			return Batch{}, fmt.Errorf("performance: %w", err)
		}
	}

	sort.SliceStable(b.Activities, func(i, j int) bool { return b.Activities[i].Date < b.Activities[j].Date })
	sort.Slice(b.Wellness, func(i, j int) bool { return b.Wellness[i].Date < b.Wellness[j].Date })
	return b, nil
}

// Earliest returns the first date touched by the batch, "" when empty.
func (b Batch) Earliest() string {
	first := ""
	if len(b.Activities) > 0 {
		first = b.Activities[0].Date
	}
	if len(b.Wellness) > 0 && (first == "" || b.Wellness[0].Date < first) {
		first = b.Wellness[0].Date
	}
	return first
}
