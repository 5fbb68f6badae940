package inference

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
)

var mockIngredients = []string{
	"tomato", "onion", "garlic", "rice", "chicken",
	"potato", "carrot", "pepper", "egg", "cheese",
	"lettuce", "cucumber", "mushroom", "bread", "pasta",
}

// MockProvider invents 3 to 6 distinct ingredients with confidences in
// [0.60, 1.00], rounded to two decimals and sorted descending.
type MockProvider struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewMockProvider(seed uint64) *MockProvider {
	return &MockProvider{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (p *MockProvider) Name() string { return "mock" }

func (p *MockProvider) Predict(_ context.Context, _ Image) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 3 + p.rnd.IntN(4)
	perm := p.rnd.Perm(len(mockIngredients))

	items := make([]models.PredictionItem, 0, count)
	for _, idx := range perm[:count] {
		c := math.Round((0.6+p.rnd.Float64()*0.4)*100) / 100
		items = append(items, models.PredictionItem{Name: mockIngredients[idx], Confidence: c})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Confidence > items[j].Confidence })

	return &Result{Shape: ShapeMock, Items: items}, nil
}
