package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Labels used when the classifier could not pick a candidate.
const (
	WasteTypeUnknown = "Unknown"
	WasteTypeError   = "Error"
)

type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Width      float64 `json:"width,omitempty"`
	Height     float64 `json:"height,omitempty"`
}

// Classification is the classifier's verdict stored with a report.
type Classification struct {
	IsWaste        bool         `json:"isWaste"`
	WasteType      string       `json:"wasteType"`
	Confidence     float64      `json:"confidence"`
	AllPredictions []Prediction `json:"allPredictions,omitempty"`
	Timestamp      time.Time    `json:"timestamp"`
}

// JSON serializes the classification for the ai_classification column. A
// report without a photo stores a JSON null.
func (c *Classification) JSON() (datatypes.JSON, error) {
	if c == nil {
		return datatypes.JSON("null"), nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
