package distributor

import (
	"github.com/julianstephens/pacewise/internal/constants"
	"github.com/julianstephens/pacewise/internal/models"
)

// Minimums are the smallest distances an easy or long session may be given.
type Minimums struct {
	Easy float64 `json:"easy" yaml:"easy"`
	Long float64 `json:"long" yaml:"long"`
}

func DefaultMinimums() Minimums {
	return Minimums{Easy: constants.DefaultMinEasyDistance, Long: constants.DefaultMinLongDistance}
}

// ResolveMinimums picks the minimum for each category. A minimum derived from the
// athlete's typical distance takes precedence over the fixed default.
func ResolveMinimums(c models.AthleteConstraints, defaults Minimums) Minimums {
	m := defaults
	if c.TypicalEasyDistance > 0 {
		m.Easy = c.TypicalEasyDistance * constants.AthleteMinimumFraction
	}
	if c.TypicalLongDistance > 0 {
		m.Long = c.TypicalLongDistance * constants.AthleteMinimumFraction
	}
	return m
}

// For returns the minimum that applies to a session category.
func (m Minimums) For(category models.SessionCategory) float64 {
	if category == models.CategoryLong {
		return m.Long
	}
	return m.Easy
}
