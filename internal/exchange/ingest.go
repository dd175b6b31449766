package exchange

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/profile-memory/internal/model"
)

// Extracted is one memory proposed by the generation step.
type Extracted struct {
	Content    string `json:"content"`
	Category   string `json:"category"`
	Importance string `json:"importance"`
	Type       string `json:"type"`
}

// Payload is the structured reply of the generation step: the text shown to
// the user plus any memories it extracted.
type Payload struct {
	Response string      `json:"response"`
	Memories []Extracted `json:"memories"`
}

// ParsePayload decodes a generation payload. Malformed JSON is a
// ValidationError; individual entries are checked later by Usable.
func ParsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, model.NewValidationError("payload", fmt.Sprintf("malformed extraction payload: %v", err))
	}
	return &p, nil
}

// Usable reports whether e can be stored: content must be non-empty and the
// category, when given, must be known.
func (e Extracted) Usable() bool {
	if strings.TrimSpace(e.Content) == "" {
		return false
	}
	if e.Category == "" {
		return true
	}
	_, ok := model.LookupCategory(e.Category)
	return ok
}
