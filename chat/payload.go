package chat

import (
	"encoding/json"

	clienterrors "github.com/proxiehq/proxie-go/internal/errors"
)

// DraftRequest is a server-proposed service request awaiting explicit user
// confirmation before it takes effect.
type DraftRequest struct {
	ServiceType     string             `json:"service_type"`
	ServiceCategory string             `json:"service_category"`
	Description     string             `json:"description"`
	Details         map[string]any     `json:"details,omitempty"`
	Location        map[string]string  `json:"location"`
	Budget          map[string]float64 `json:"budget"`
	Timing          string             `json:"timing,omitempty"`
	Media           []StoredMedia      `json:"media,omitempty"`
	SpecialistNotes string             `json:"specialist_notes,omitempty"`
}

// StoredMedia references media the backend has already ingested.
type StoredMedia struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
}

// ConsumerProfile is the profile slice shown in the consumer-profile panel.
type ConsumerProfile struct {
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	City     string `json:"city,omitempty"`
}

// ServiceCategory is a selectable service category in the enrollment flow.
type ServiceCategory struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon,omitempty"`
	Services []Service `json:"services,omitempty"`
}

// Service is one bookable service under a category.
type Service struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EnrollmentSummary recaps a pending enrollment before submission.
type EnrollmentSummary struct {
	FullName  string             `json:"full_name,omitempty"`
	Email     string             `json:"email,omitempty"`
	Phone     string             `json:"phone,omitempty"`
	Services  []Service          `json:"services,omitempty"`
	Location  EnrollmentLocation `json:"location"`
	Portfolio []string           `json:"portfolio,omitempty"`
}

// EnrollmentLocation is the service area of an enrolling provider.
type EnrollmentLocation struct {
	Address string  `json:"address,omitempty"`
	City    string  `json:"city,omitempty"`
	Radius  float64 `json:"radius,omitempty"`
}

// EnrollmentResult is the terminal outcome of an enrollment dialogue.
type EnrollmentResult struct {
	Status     string `json:"status"`
	ProviderID string `json:"provider_id,omitempty"`
}

// EnrollmentStatusVerified marks an enrollment as accepted; the resulting
// provider id must be persisted to the device store.
const EnrollmentStatusVerified = "verified"

// Offer is one provider offer shown to a consumer.
type Offer struct {
	ID               string            `json:"id"`
	Price            float64           `json:"price"`
	ServiceName      string            `json:"service_name,omitempty"`
	ProviderSnapshot *ProviderSnapshot `json:"provider_snapshot,omitempty"`
	AvailableSlots   []TimeSlot        `json:"available_slots,omitempty"`
}

// ProviderSnapshot is the denormalized provider info attached to an offer.
type ProviderSnapshot struct {
	Name        string  `json:"name"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"review_count,omitempty"`
}

// TimeSlot is an offered appointment slot.
type TimeSlot struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

// Lead is an open consumer request shown to a provider.
type Lead struct {
	RequestID   string             `json:"request_id"`
	ServiceType string             `json:"service_type"`
	RawInput    string             `json:"raw_input"`
	Budget      map[string]float64 `json:"budget,omitempty"`
	Location    map[string]string  `json:"location,omitempty"`
}

// OfferSuggestion is pricing guidance for a provider drafting an offer.
type OfferSuggestion struct {
	Reasoning         string         `json:"reasoning"`
	SuggestedPrice    SuggestedPrice `json:"suggested_price"`
	SuggestedDuration int            `json:"suggested_duration,omitempty"`
}

// SuggestedPrice is the recommended price band of a suggestion.
type SuggestedPrice struct {
	Recommended float64 `json:"recommended"`
	Min         float64 `json:"min,omitempty"`
	Max         float64 `json:"max,omitempty"`
}

// OfferDraft is a provider offer awaiting approval before submission.
type OfferDraft struct {
	Price   float64 `json:"price"`
	Date    string  `json:"date,omitempty"`
	Time    string  `json:"time,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Booking is a confirmed booking.
type Booking struct {
	ProviderName string  `json:"provider_name"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Price        float64 `json:"price"`
}

// PanelData is the closed union of structured response payloads. The server
// sends at most one of these keys per turn; the router picks exactly one
// panel in a fixed priority order in case several are present. Unrecognized
// keys are dropped by decoding rather than guessed at.
type PanelData struct {
	ConsumerProfile   *ConsumerProfile   `json:"consumer_profile,omitempty"`
	Categories        []ServiceCategory  `json:"categories,omitempty"`
	ShowPortfolio     bool               `json:"show_portfolio,omitempty"`
	EnrollmentSummary *EnrollmentSummary `json:"enrollment_summary,omitempty"`
	EnrollmentResult  *EnrollmentResult  `json:"enrollment_result,omitempty"`
	Offers            []Offer            `json:"offers,omitempty"`
	Requests          []Lead             `json:"requests,omitempty"`
	Suggestion        *OfferSuggestion   `json:"suggestion,omitempty"`
	OfferDraft        *OfferDraft        `json:"offer_draft,omitempty"`
	Booking           *Booking           `json:"booking,omitempty"`
}

// IsZero reports whether no panel key is present.
func (d *PanelData) IsZero() bool {
	if d == nil {
		return true
	}
	return d.ConsumerProfile == nil && len(d.Categories) == 0 && !d.ShowPortfolio &&
		d.EnrollmentSummary == nil && d.EnrollmentResult == nil && len(d.Offers) == 0 &&
		len(d.Requests) == 0 && d.Suggestion == nil && d.OfferDraft == nil && d.Booking == nil
}

// DecodePanelData decodes the raw data object of a response envelope.
// A null or absent object decodes to nil without error.
func DecodePanelData(raw json.RawMessage) (*PanelData, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	data := &PanelData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, clienterrors.MalformedResponse("decode structured data", err)
	}
	if data.IsZero() {
		return nil, nil
	}
	return data, nil
}

// DecodeDraft decodes the raw draft object of a response envelope.
func DecodeDraft(raw json.RawMessage) (*DraftRequest, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	draft := &DraftRequest{}
	if err := json.Unmarshal(raw, draft); err != nil {
		return nil, clienterrors.MalformedResponse("decode draft", err)
	}
	return draft, nil
}
