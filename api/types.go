package api

import (
	"encoding/json"
)

// ChatRequest is the request body for the chat endpoint.
type ChatRequest struct {
	Message      string         `json:"message"`
	SessionID    *string        `json:"session_id"`
	Role         string         `json:"role"`
	ConsumerID   *string        `json:"consumer_id"`
	ProviderID   *string        `json:"provider_id"`
	EnrollmentID *string        `json:"enrollment_id"`
	Media        []MediaPayload `json:"media"`
	Action       *string        `json:"action"`
}

// MediaPayload is an encoded attachment as carried on the wire.
type MediaPayload struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// ChatResponse is the envelope returned by the chat endpoint.
// Data and Draft are kept raw; the chat package decodes them into
// their closed panel union.
type ChatResponse struct {
	SessionID        string          `json:"session_id"`
	Message          string          `json:"message"`
	Data             json.RawMessage `json:"data"`
	Draft            json.RawMessage `json:"draft"`
	AwaitingApproval bool            `json:"awaiting_approval"`
}

// StartEnrollmentResponse is returned by the enrollment start endpoint.
type StartEnrollmentResponse struct {
	EnrollmentID string `json:"enrollment_id"`
}

// ServiceCategory is one entry of the service catalog.
type ServiceCategory struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Icon     string           `json:"icon,omitempty"`
	Services []CatalogService `json:"services,omitempty"`
}

// CatalogService is a bookable service under a category.
type CatalogService struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Enrollment is the server-side enrollment record.
type Enrollment struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	FullName  string          `json:"full_name,omitempty"`
	Email     string          `json:"email,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Services  json.RawMessage `json:"services,omitempty"`
	Location  json.RawMessage `json:"location,omitempty"`
	Portfolio json.RawMessage `json:"portfolio,omitempty"`
}
