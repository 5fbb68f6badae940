package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
	"github.com/dmitrijs2005/leftoverchef/internal/server/models"
)

// Shape tags the known response layouts of model services.
type Shape string

const (
	// ShapePredictions is {"predictions":[...], "freshness":...}.
	ShapePredictions Shape = "predictions"
	// ShapeData is {"data":{"predictions":[...], "freshness":...}}.
	ShapeData Shape = "data"
	// ShapeArray is a bare [...] of items.
	ShapeArray Shape = "array"
	// ShapeMock is produced locally by MockProvider.
	ShapeMock Shape = "mock"
)

var ErrUnsupportedShape = errors.New("unsupported inference response shape")

// rawItem accepts both "name" and "label". A missing confidence stays nil so
// validation can reject it.
type rawItem struct {
	Name       *string  `json:"name"`
	Label      *string  `json:"label"`
	Confidence *float64 `json:"confidence"`
}

type rawEnvelope struct {
	Predictions json.RawMessage `json:"predictions"`
	Data        json.RawMessage `json:"data"`
	Freshness   json.RawMessage `json:"freshness"`
	Confidence  *float64        `json:"confidence"`
}

type rawFreshness struct {
	Status     string   `json:"status"`
	Confidence *float64 `json:"confidence"`
}

// Parse decodes body into one of the known shapes. Anything else yields
// ErrUnsupportedShape.
func Parse(body []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnsupportedShape)
	}

	switch trimmed[0] {
	case '[':
		items, err := parseItems(trimmed)
		if err != nil {
			return nil, err
		}
		return &Result{Shape: ShapeArray, Items: items}, nil
	case '{':
	default:
		return nil, fmt.Errorf("%w: not a JSON object or array", ErrUnsupportedShape)
	}

	var env rawEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, decodeError("envelope", err)
	}

	switch {
	case isPresent(env.Predictions):
		return parseEnvelope(ShapePredictions, env)
	case isPresent(env.Data):
		var inner rawEnvelope
		if err := json.Unmarshal(env.Data, &inner); err != nil {
			return nil, decodeError("data", err)
		}
		if !isPresent(inner.Predictions) {
			return nil, fmt.Errorf("%w: data without predictions", ErrUnsupportedShape)
		}
		return parseEnvelope(ShapeData, inner)
	default:
		return nil, fmt.Errorf("%w: no predictions field", ErrUnsupportedShape)
	}
}

func parseEnvelope(shape Shape, env rawEnvelope) (*Result, error) {
	items, err := parseItems(env.Predictions)
	if err != nil {
		return nil, err
	}
	freshness, err := parseFreshness(env)
	if err != nil {
		return nil, err
	}
	return &Result{Shape: shape, Items: items, Freshness: freshness}, nil
}

func parseItems(raw json.RawMessage) ([]models.PredictionItem, error) {
	var rawItems []rawItem
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, decodeError("predictions", err)
	}

	items := make([]models.PredictionItem, 0, len(rawItems))
	for i, it := range rawItems {
		if it.Confidence == nil {
			return nil, fmt.Errorf("%w: item %d has no confidence", common.ErrInvalidInferenceResponse, i)
		}
		name := ""
		switch {
		case it.Name != nil:
			name = *it.Name
		case it.Label != nil:
			name = *it.Label
		}
		items = append(items, models.PredictionItem{Name: name, Confidence: *it.Confidence})
	}
	return items, nil
}

// parseFreshness accepts either {"freshness":{"status","confidence"}} or the
// flat {"freshness":"fresh","confidence":0.9} form.
func parseFreshness(env rawEnvelope) (*models.Freshness, error) {
	if !isPresent(env.Freshness) {
		return nil, nil
	}

	var status string
	if err := json.Unmarshal(env.Freshness, &status); err == nil {
		f := &models.Freshness{Status: status}
		if env.Confidence != nil {
			f.Confidence = *env.Confidence
		}
		return f, nil
	}

	var rf rawFreshness
	if err := json.Unmarshal(env.Freshness, &rf); err != nil {
		return nil, decodeError("freshness", err)
	}
	f := &models.Freshness{Status: rf.Status}
	if rf.Confidence != nil {
		f.Confidence = *rf.Confidence
	}
	return f, nil
}

// decodeError tells a bad layout (ErrUnsupportedShape) apart from a known
// layout carrying a field of the wrong type (ErrInvalidInferenceResponse).
func decodeError(what string, err error) error {
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) && te.Field != "" {
		return fmt.Errorf("%w: %s: field %s: %v", common.ErrInvalidInferenceResponse, what, te.Field, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnsupportedShape, what, err)
}

func isPresent(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}
