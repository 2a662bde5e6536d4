package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/clearcity/api/internal/model"
)

// ConfidenceThreshold is the minimum top confidence for an image to count as
// waste. It is also sent to the inference service as its detection threshold.
const (
	ConfidenceThreshold = 0.50
	OverlapThreshold    = 0.50
)

// Outcome tells apart the three ways a classification can end.
type Outcome string

const (
	OutcomeDetected Outcome = "detected"
	OutcomeEmpty    Outcome = "empty"
	OutcomeFailed   Outcome = "failed"
)

type ClassifierClient struct {
	modelURL   string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

func NewClassifierClient(modelURL, apiKey string, timeout time.Duration) *ClassifierClient {
	return &ClassifierClient{
		modelURL: modelURL,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

type inferenceResponse struct {
	Predictions []model.Prediction `json:"predictions"`
}

// Classify sends the image to the detection model and reduces its answer to a
// single verdict. It never returns an error: transport and decoding failures
// produce an "Error" classification with the failed outcome.
func (c *ClassifierClient) Classify(ctx context.Context, image []byte) (model.Classification, Outcome) {
	predictions, err := c.infer(ctx, image)
	if err != nil {
		log.Printf("[Classifier] request failed: %v", err)
		return model.Classification{
			IsWaste:    false,
			WasteType:  model.WasteTypeError,
			Confidence: 0,
			Timestamp:  c.now(),
		}, OutcomeFailed
	}

	log.Printf("[Classifier] %d predictions", len(predictions))
	return Decide(predictions, c.now()), outcomeOf(predictions)
}

// Decide picks the most confident prediction. Ties keep the earlier
// candidate. An empty list yields "Unknown".
func Decide(predictions []model.Prediction, at time.Time) model.Classification {
	if len(predictions) == 0 {
		return model.Classification{
			IsWaste:    false,
			WasteType:  model.WasteTypeUnknown,
			Confidence: 0,
			Timestamp:  at,
		}
	}

	sorted := make([]model.Prediction, len(predictions))
	copy(sorted, predictions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	best := sorted[0]
	return model.Classification{
		IsWaste:        best.Confidence >= ConfidenceThreshold,
		WasteType:      best.Class,
		Confidence:     best.Confidence,
		AllPredictions: sorted,
		Timestamp:      at,
	}
}

func outcomeOf(predictions []model.Prediction) Outcome {
	if len(predictions) == 0 {
		return OutcomeEmpty
	}
	return OutcomeDetected
}

func (c *ClassifierClient) infer(ctx context.Context, image []byte) ([]model.Prediction, error) {
	endpoint, err := url.Parse(c.modelURL)
	if err != nil {
		return nil, fmt.Errorf("invalid classifier url: %w", err)
	}
	q := endpoint.Query()
	q.Set("api_key", c.apiKey)
	q.Set("confidence", strconv.FormatFloat(ConfidenceThreshold, 'f', -1, 64))
	q.Set("overlap", strconv.FormatFloat(OverlapThreshold, 'f', -1, 64))
	endpoint.RawQuery = q.Encode()

	body := base64.StdEncoding.EncodeToString(image)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(body))
	}

	var result inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	return result.Predictions, nil
}
