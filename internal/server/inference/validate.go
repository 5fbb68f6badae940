package inference

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
)

// Validate rejects the whole result when any item has an empty label or a
// confidence outside [0,1], or when freshness carries an unknown status.
func Validate(r *Result) error {
	if r == nil {
		return fmt.Errorf("%w: empty result", common.ErrInvalidInferenceResponse)
	}

	var errs []error
	for i, it := range r.Items {
		if strings.TrimSpace(it.Name) == "" {
			errs = append(errs, fmt.Errorf("item %d: empty label", i))
		}
		if !validConfidence(it.Confidence) {
			errs = append(errs, fmt.Errorf("item %d: confidence %v out of range", i, it.Confidence))
		}
	}

	if f := r.Freshness; f != nil {
		switch f.Status {
		case models.FreshnessFresh, models.FreshnessStale, models.FreshnessSpoiled:
		default:
			errs = append(errs, fmt.Errorf("freshness: unknown status %q", f.Status))
		}
		if !validConfidence(f.Confidence) {
			errs = append(errs, fmt.Errorf("freshness: confidence %v out of range", f.Confidence))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrInvalidInferenceResponse, errors.Join(errs...))
	}
	return nil
}

func validConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= 0 && c <= 1
}
