package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteSelectsOnePanel(t *testing.T) {
	tests := []struct {
		name     string
		data     *PanelData
		draft    *DraftRequest
		expected PanelKind
	}{
		{
			name:     "draft confirmation",
			draft:    &DraftRequest{ServiceType: "haircut"},
			expected: PanelDraftConfirmation,
		},
		{
			name:     "consumer profile",
			data:     &PanelData{ConsumerProfile: &ConsumerProfile{FullName: "Ann"}},
			expected: PanelConsumerProfile,
		},
		{
			name:     "service selector",
			data:     &PanelData{Categories: []ServiceCategory{{ID: "beauty"}}},
			expected: PanelServiceSelector,
		},
		{
			name:     "portfolio prompt",
			data:     &PanelData{ShowPortfolio: true},
			expected: PanelPortfolioPrompt,
		},
		{
			name:     "enrollment summary",
			data:     &PanelData{EnrollmentSummary: &EnrollmentSummary{FullName: "Ann"}},
			expected: PanelEnrollmentSummary,
		},
		{
			name:     "enrollment result",
			data:     &PanelData{EnrollmentResult: &EnrollmentResult{Status: "verified"}},
			expected: PanelEnrollmentResult,
		},
		{
			name:     "offer list",
			data:     &PanelData{Offers: []Offer{{ID: "off-1"}}},
			expected: PanelOfferList,
		},
		{
			name:     "lead list",
			data:     &PanelData{Requests: []Lead{{RequestID: "req-1"}}},
			expected: PanelLeadList,
		},
		{
			name:     "price suggestion",
			data:     &PanelData{Suggestion: &OfferSuggestion{Reasoning: "typical rate"}},
			expected: PanelPriceSuggestion,
		},
		{
			name:     "offer draft review",
			data:     &PanelData{OfferDraft: &OfferDraft{Price: 80}},
			expected: PanelOfferDraftReview,
		},
		{
			name:     "booking confirmation",
			data:     &PanelData{Booking: &Booking{ProviderName: "Jane"}},
			expected: PanelBookingConfirmation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			panel, ok := Route(tt.data, tt.draft)
			require.True(t, ok)
			assert.Equal(t, tt.expected, panel.Kind)
		})
	}
}

func TestRoutePriority(t *testing.T) {
	t.Run("draft outranks data", func(t *testing.T) {
		data := &PanelData{Offers: []Offer{{ID: "off-1"}}}
		panel, ok := Route(data, &DraftRequest{ServiceType: "haircut"})
		require.True(t, ok)
		assert.Equal(t, PanelDraftConfirmation, panel.Kind)
	})

	t.Run("multiple keys resolve deterministically", func(t *testing.T) {
		data := &PanelData{
			Booking: &Booking{ProviderName: "Jane"},
			Offers:  []Offer{{ID: "off-1"}},
		}
		panel, ok := Route(data, nil)
		require.True(t, ok)
		assert.Equal(t, PanelOfferList, panel.Kind)
	})

	t.Run("nothing routes nowhere", func(t *testing.T) {
		_, ok := Route(nil, nil)
		assert.False(t, ok)
		_, ok = Route(&PanelData{}, nil)
		assert.False(t, ok)
	})
}

func TestIntents(t *testing.T) {
	tests := []struct {
		name           string
		intent         Intent
		expectedText   string
		expectedAction string
	}{
		{"approve draft", ApproveDraftIntent(), "Post Request", ActionApproveRequest},
		{"edit draft", EditDraftIntent(), "", ActionEditRequest},
		{"cancel draft", CancelDraftIntent(), "", ActionCancelRequest},
		{"select service", SelectServiceIntent("Haircut"), "I offer Haircut", ActionSelectService},
		{"select services", SelectServicesIntent([]string{"Haircut", "Coloring"}), "I've selected these services: Haircut, Coloring", ""},
		{"portfolio uploaded", PortfolioUploadedIntent(3), "I uploaded 3 photos", ActionUploadPortfolio},
		{"finish portfolio", FinishPortfolioIntent(), "I've finished uploading my portfolio", ""},
		{"confirm enrollment", ConfirmEnrollmentIntent(), "Submit Enrollment", ActionConfirmEnrollment},
		{"submit offer", SubmitOfferIntent(), "Send this offer", ActionSubmitOffer},
		{"edit offer draft", EditOfferDraftIntent(), "Let me edit the message", ""},
		{"book provider", BookProviderIntent("Jane"), "Book Jane", ""},
		{"book provider fallback", BookProviderIntent(""), "Book this pro", ""},
		{"make offer", MakeOfferIntent("haircut", "Austin"), "I want to make an offer for the haircut in Austin", ""},
		{"draft offer", DraftOfferIntent(85), "Draft an offer for $85", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedText, tt.intent.Text)
			assert.Equal(t, tt.expectedAction, tt.intent.Action)
		})
	}
}
