package models

import "time"

// Freshness statuses reported by the inference service.
const (
	FreshnessFresh   = "fresh"
	FreshnessStale   = "stale"
	FreshnessSpoiled = "spoiled"
)

// donationThreshold is the freshness confidence above which edible food may be donated.
const donationThreshold = 0.7

// PredictionItem is one labelled finding.
type PredictionItem struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Freshness is optional enrichment returned by some inference models.
type Freshness struct {
	Status           string  `json:"status"`
	Confidence       float64 `json:"confidence"`
	IsEdible         bool    `json:"isEdible"`
	DonationEligible bool    `json:"donationEligible"`
}

// Prediction is a stored inference result. UserID never changes after
// creation and Items is never nil.
type Prediction struct {
	ID          string           `json:"_id"`
	UserID      string           `json:"userId"`
	ImagePath   string           `json:"imagePath"`
	ImageDigest string           `json:"imageDigest,omitempty"`
	Items       []PredictionItem `json:"predictions"`
	Freshness   *Freshness       `json:"freshness,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ClampConfidence forces c into [0,1].
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// NormalizeItems returns a non-nil copy of items with clamped confidences.
func NormalizeItems(items []PredictionItem) []PredictionItem {
	out := make([]PredictionItem, 0, len(items))
	for _, it := range items {
		out = append(out, PredictionItem{Name: it.Name, Confidence: ClampConfidence(it.Confidence)})
	}
	return out
}

// IsEdible reports whether food with the given freshness status can be eaten.
func IsEdible(status string) bool {
	return status == FreshnessFresh || status == FreshnessStale
}

// DonationEligible holds for edible food detected with confidence above 0.7.
func DonationEligible(isEdible bool, confidence float64) bool {
	return isEdible && confidence > donationThreshold
}

// EnrichFreshness fills the derived freshness fields. A nil input stays nil.
func EnrichFreshness(f *Freshness) *Freshness {
	if f == nil {
		return nil
	}
	out := *f
	out.Confidence = ClampConfidence(out.Confidence)
	out.IsEdible = IsEdible(out.Status)
	out.DonationEligible = DonationEligible(out.IsEdible, out.Confidence)
	return &out
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

// LabelCount is a label with its number of occurrences.
type LabelCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PredictionStats aggregates a user's history.
type PredictionStats struct {
	TotalPredictions  int64        `json:"totalPredictions"`
	UniqueIngredients int          `json:"uniqueIngredients"`
	TopIngredients    []LabelCount `json:"topIngredients"`
}
