package chat

import (
	"fmt"
	"strings"
)

// PanelKind names the interactive panel selected for a response.
type PanelKind string

const (
	PanelDraftConfirmation   PanelKind = "draft_confirmation"
	PanelConsumerProfile     PanelKind = "consumer_profile"
	PanelServiceSelector     PanelKind = "service_selector"
	PanelPortfolioPrompt     PanelKind = "portfolio_prompt"
	PanelEnrollmentSummary   PanelKind = "enrollment_summary"
	PanelEnrollmentResult    PanelKind = "enrollment_result"
	PanelOfferList           PanelKind = "offer_list"
	PanelLeadList            PanelKind = "lead_list"
	PanelPriceSuggestion     PanelKind = "price_suggestion"
	PanelOfferDraftReview    PanelKind = "offer_draft_review"
	PanelBookingConfirmation PanelKind = "booking_confirmation"
)

// Panel is the one interactive rendering selected from a response payload.
// Only the field matching Kind is populated.
type Panel struct {
	Kind PanelKind

	Draft      *DraftRequest
	Profile    *ConsumerProfile
	Categories []ServiceCategory
	Summary    *EnrollmentSummary
	Result     *EnrollmentResult
	Offers     []Offer
	Leads      []Lead
	Suggestion *OfferSuggestion
	OfferDraft *OfferDraft
	Booking    *Booking
}

// Route maps a response payload to exactly one panel, or none. Payloads are
// defensively exclusive on the server side, but the selection order is fixed
// so a payload carrying several candidate keys still renders
// deterministically. The router performs no I/O; panel actions come back as
// Intents fed to the dispatch engine.
func Route(data *PanelData, draft *DraftRequest) (Panel, bool) {
	if draft != nil {
		return Panel{Kind: PanelDraftConfirmation, Draft: draft}, true
	}
	if data == nil {
		return Panel{}, false
	}
	switch {
	case data.ConsumerProfile != nil:
		return Panel{Kind: PanelConsumerProfile, Profile: data.ConsumerProfile}, true
	case len(data.Categories) > 0:
		return Panel{Kind: PanelServiceSelector, Categories: data.Categories}, true
	case data.ShowPortfolio:
		return Panel{Kind: PanelPortfolioPrompt}, true
	case data.EnrollmentSummary != nil:
		return Panel{Kind: PanelEnrollmentSummary, Summary: data.EnrollmentSummary}, true
	case data.EnrollmentResult != nil:
		return Panel{Kind: PanelEnrollmentResult, Result: data.EnrollmentResult}, true
	case len(data.Offers) > 0:
		return Panel{Kind: PanelOfferList, Offers: data.Offers}, true
	case len(data.Requests) > 0:
		return Panel{Kind: PanelLeadList, Leads: data.Requests}, true
	case data.Suggestion != nil:
		return Panel{Kind: PanelPriceSuggestion, Suggestion: data.Suggestion}, true
	case data.OfferDraft != nil:
		return Panel{Kind: PanelOfferDraftReview, OfferDraft: data.OfferDraft}, true
	case data.Booking != nil:
		return Panel{Kind: PanelBookingConfirmation, Booking: data.Booking}, true
	}
	return Panel{}, false
}

// Intent is a user action emitted by a panel, dispatched as a new send.
type Intent struct {
	Text   string
	Action string
}

// Workflow actions understood by the chat endpoint.
const (
	ActionApproveRequest    = "approve_request"
	ActionEditRequest       = "edit_request"
	ActionCancelRequest     = "cancel_request"
	ActionSelectService     = "select_service"
	ActionUploadPortfolio   = "upload_portfolio"
	ActionConfirmEnrollment = "confirm_enrollment"
	ActionSubmitOffer       = "submit_offer"
)

// ApproveDraftIntent approves a pending draft request.
func ApproveDraftIntent() Intent {
	return Intent{Text: "Post Request", Action: ActionApproveRequest}
}

// EditDraftIntent asks the agent to revise a pending draft.
func EditDraftIntent() Intent {
	return Intent{Action: ActionEditRequest}
}

// CancelDraftIntent discards a pending draft.
func CancelDraftIntent() Intent {
	return Intent{Action: ActionCancelRequest}
}

// SelectServiceIntent picks one service during enrollment.
func SelectServiceIntent(name string) Intent {
	return Intent{Text: "I offer " + name, Action: ActionSelectService}
}

// SelectServicesIntent reports a batch of selected services.
func SelectServicesIntent(names []string) Intent {
	return Intent{Text: "I've selected these services: " + strings.Join(names, ", ")}
}

// PortfolioUploadedIntent reports uploaded portfolio photos.
func PortfolioUploadedIntent(count int) Intent {
	return Intent{Text: fmt.Sprintf("I uploaded %d photos", count), Action: ActionUploadPortfolio}
}

// FinishPortfolioIntent closes the portfolio upload step.
func FinishPortfolioIntent() Intent {
	return Intent{Text: "I've finished uploading my portfolio"}
}

// ConfirmEnrollmentIntent submits the recapped enrollment.
func ConfirmEnrollmentIntent() Intent {
	return Intent{Text: "Submit Enrollment", Action: ActionConfirmEnrollment}
}

// SubmitOfferIntent sends a reviewed offer draft.
func SubmitOfferIntent() Intent {
	return Intent{Text: "Send this offer", Action: ActionSubmitOffer}
}

// EditOfferDraftIntent asks the agent to revise the drafted offer message.
func EditOfferDraftIntent() Intent {
	return Intent{Text: "Let me edit the message"}
}

// BookProviderIntent books the provider behind an offer.
func BookProviderIntent(providerName string) Intent {
	if providerName == "" {
		providerName = "this pro"
	}
	return Intent{Text: "Book " + providerName}
}

// MakeOfferIntent starts an offer on a lead.
func MakeOfferIntent(serviceType, city string) Intent {
	return Intent{Text: fmt.Sprintf("I want to make an offer for the %s in %s", serviceType, city)}
}

// DraftOfferIntent asks the agent to draft an offer at the suggested price.
func DraftOfferIntent(price float64) Intent {
	return Intent{Text: fmt.Sprintf("Draft an offer for $%g", price)}
}
