// Package models holds the JSON shapes the CLI reads from the LeftOverChef API.
package models

import "time"

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PredictionItem struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

type Freshness struct {
	Status           string  `json:"status"`
	Confidence       float64 `json:"confidence"`
	IsEdible         bool    `json:"isEdible"`
	DonationEligible bool    `json:"donationEligible"`
}

type Prediction struct {
	ID          string           `json:"_id"`
	UserID      string           `json:"userId"`
	ImagePath   string           `json:"imagePath"`
	ImageDigest string           `json:"imageDigest,omitempty"`
	Items       []PredictionItem `json:"predictions"`
	Freshness   *Freshness       `json:"freshness,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
	HasNextPage  bool  `json:"hasNextPage"`
	HasPrevPage  bool  `json:"hasPrevPage"`
}

type LabelCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type Stats struct {
	TotalPredictions  int64        `json:"totalPredictions"`
	UniqueIngredients int          `json:"uniqueIngredients"`
	TopIngredients    []LabelCount `json:"topIngredients"`
}

// HistoryPage is the body of GET /history. Pagination is nil when the
// request asked for everything.
type HistoryPage struct {
	Count      int           `json:"count"`
	Pagination *Pagination   `json:"pagination,omitempty"`
	Data       []*Prediction `json:"data"`
}
