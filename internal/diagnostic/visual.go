package diagnostic

import (
	"context"
	"errors"
	"strings"
)

// ErrImageRequired rejects visual searches with no photo attached.
var ErrImageRequired = errors.New("diagnostic: visual search requires an image")

// VisualSearchSummary is the hardware-identification result for a submitted
// photo. Everything except the description and sources is a fixed default
// until the analysis text has been reviewed by the user.
type VisualSearchSummary struct {
	ProductType string   `json:"product_type"`
	Description string   `json:"description"`
	Sources     []Source `json:"sources,omitempty"`
	Category    string   `json:"category"`
	Estimate    string   `json:"estimate"`
	DeliveryFee string   `json:"delivery_fee"`
	Distance    string   `json:"distance"`
	Severity    string   `json:"severity"`
	Image       string   `json:"image"`
}

// VisualSearch identifies hardware and likely failures from a single photo.
// Unlike a dialog turn it is stateless: nothing is persisted and no session
// stage moves. The call carries only the cost-estimation policy, not the
// dialog persona, and degrades to fallback text like any delegated turn.
func (e *Engine) VisualSearch(ctx context.Context, imageBase64 string) (*VisualSearchSummary, error) {
	if strings.TrimSpace(imageBase64) == "" {
		return nil, ErrImageRequired
	}

	r, err := e.invoker.Invoke(ctx, ExpertRequest{
		System:      costAlgorithm,
		Prompt:      visualSearchPrompt,
		ImageBase64: imageBase64,
	})
	if err != nil {
		return nil, err
	}

	return &VisualSearchSummary{
		ProductType: "Identified Hardware",
		Description: r.Text,
		Sources:     r.Sources,
		Category:    "Hardware",
		Estimate:    "₹500",
		DeliveryFee: "₹15",
		Distance:    "1.0 km",
		Severity:    "Moderate",
		Image:       imageBase64,
	}, nil
}
