package engine

// Interest decay and blending.
//
// On every click each keyword in the clicked article's snapshot is
// rewritten:
//   - no record yet: weight = importance
//   - otherwise: weight = old * DecayRate^days + importance * BlendFactor,
//     where days is the whole number of days since the last update,
//     clamped to [0, MaxDecayDays]
//   - computed in Go (not SQL) because modernc.org/sqlite lacks pow()

import (
	"fmt"
	"math"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
)

// Params are the interest model constants.
type Params struct {
	DecayRate     float64 // per-day multiplier applied to old weights
	MaxDecayDays  int     // decay stops accumulating after this many days
	BlendFactor   float64 // share of a click's importance added to an existing weight
	DefaultWeight float64 // weight assumed for keywords never clicked
}

// DefaultParams returns the standard interest model.
func DefaultParams() Params {
	return Params{
		DecayRate:     0.95,
		MaxDecayDays:  30,
		BlendFactor:   0.5,
		DefaultWeight: 0.5,
	}
}

// Validate rejects parameters that would make weights negative or grow
// on decay.
func (p Params) Validate() error {
	if p.DecayRate <= 0 || p.DecayRate > 1 {
		return fmt.Errorf("decay rate %v: must be in (0, 1]", p.DecayRate)
	}
	if p.MaxDecayDays < 0 {
		return fmt.Errorf("max decay days %d: must be >= 0", p.MaxDecayDays)
	}
	if p.BlendFactor < 0 {
		return fmt.Errorf("blend factor %v: must be >= 0", p.BlendFactor)
	}
	if p.DefaultWeight < 0 {
		return fmt.Errorf("default weight %v: must be >= 0", p.DefaultWeight)
	}
	return nil
}

// ElapsedDays returns the whole days between last and now, clamped to
// [0, max]. A last update in the future counts as zero days.
func ElapsedDays(last, now time.Time, max int) int {
	d := now.Sub(last)
	if d <= 0 {
		return 0
	}
	days := int(math.Floor(d.Hours() / 24))
	if days > max {
		return max
	}
	return days
}

// DecayFactor is DecayRate raised to the clamped elapsed days.
func (p Params) DecayFactor(last, now time.Time) float64 {
	return math.Pow(p.DecayRate, float64(ElapsedDays(last, now, p.MaxDecayDays)))
}

// Blend returns the new weight of a keyword that already has one.
func (p Params) Blend(old, importance float64, last, now time.Time) float64 {
	return old*p.DecayFactor(last, now) + importance*p.BlendFactor
}

// Updater returns the WeightUpdater stores run inside the click transaction.
// Keys are normalized; importances of keys that collide after
// normalization are summed.
func (p Params) Updater() domain.WeightUpdater {
	return func(snapshot map[string]float64, existing map[string]domain.KeywordWeight, now time.Time) ([]domain.KeywordWeight, error) {
		merged := make(map[string]float64, len(snapshot))
		for k, i := range snapshot {
			if math.IsNaN(i) || math.IsInf(i, 0) || i < 0 {
				return nil, fmt.Errorf("keyword %q: importance %v: %w", k, i, domain.ErrMalformedSnapshot)
			}
			key := domain.NormalizeKeyword(k)
			if key == "" {
				continue
			}
			merged[key] += i
		}

		out := make([]domain.KeywordWeight, 0, len(merged))
		for _, key := range sortedKeys(merged) {
			i := merged[key]
			w := i
			if cur, ok := existing[key]; ok {
				w = p.Blend(cur.Weight, i, cur.LastUpdated, now)
			}
			out = append(out, domain.KeywordWeight{Keyword: key, Weight: w, LastUpdated: now})
		}
		return out, nil
	}
}
