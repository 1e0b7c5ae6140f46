// Package testutil hosts a fake marketplace backend for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/proxiehq/proxie-go/api"
)

// MarketplaceServer is an in-process stand-in for the marketplace backend.
// Handlers are swappable per test; call counters observe how often each
// collaborator was hit.
type MarketplaceServer struct {
	server *httptest.Server

	mu           sync.Mutex
	chatCalls    int
	startCalls   int
	catalogCalls int
	chatRequests []api.ChatRequest

	// ChatHandler builds the response for a chat turn. Defaults to echoing
	// the message back with a fixed session id.
	ChatHandler func(req api.ChatRequest) (api.ChatResponse, int)
	// StartHandler builds the enrollment-start response.
	StartHandler func() (api.StartEnrollmentResponse, int)
	// Catalog is returned by the service catalog endpoint.
	Catalog []api.ServiceCategory
}

// NewMarketplaceServer starts the fake backend.
func NewMarketplaceServer() *MarketplaceServer {
	m := &MarketplaceServer{
		ChatHandler: func(req api.ChatRequest) (api.ChatResponse, int) {
			return api.ChatResponse{
				SessionID: "sess-test",
				Message:   "Echo: " + req.Message,
			}, http.StatusOK
		},
		StartHandler: func() (api.StartEnrollmentResponse, int) {
			return api.StartEnrollmentResponse{EnrollmentID: "enr-test"}, http.StatusOK
		},
		Catalog: []api.ServiceCategory{
			{ID: "beauty", Name: "Beauty", Services: []api.CatalogService{{ID: "haircut", Name: "Haircut"}}},
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.POST("/chat/", m.handleChat)
	e.POST("/enrollment/start", m.handleStart)
	e.GET("/services/catalog/full", m.handleCatalog)

	m.server = httptest.NewServer(e)
	return m
}

// URL returns the base URL of the fake backend.
func (m *MarketplaceServer) URL() string {
	return m.server.URL
}

// Close shuts the fake backend down.
func (m *MarketplaceServer) Close() {
	m.server.Close()
}

// ChatCalls returns how many chat turns reached the network.
func (m *MarketplaceServer) ChatCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.chatCalls
}

// StartCalls returns how many enrollment starts reached the network.
func (m *MarketplaceServer) StartCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalls
}

// CatalogCalls returns how many catalog fetches reached the network.
func (m *MarketplaceServer) CatalogCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalogCalls
}

// ChatRequests returns a copy of the chat requests received so far.
func (m *MarketplaceServer) ChatRequests() []api.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]api.ChatRequest, len(m.chatRequests))
	copy(out, m.chatRequests)
	return out
}

func (m *MarketplaceServer) handleChat(c echo.Context) error {
	var req api.ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	m.mu.Lock()
	m.chatCalls++
	m.chatRequests = append(m.chatRequests, req)
	handler := m.ChatHandler
	m.mu.Unlock()

	resp, status := handler(req)
	return c.JSON(status, resp)
}

func (m *MarketplaceServer) handleStart(c echo.Context) error {
	m.mu.Lock()
	m.startCalls++
	handler := m.StartHandler
	m.mu.Unlock()

	resp, status := handler()
	return c.JSON(status, resp)
}

func (m *MarketplaceServer) handleCatalog(c echo.Context) error {
	m.mu.Lock()
	m.catalogCalls++
	catalog := m.Catalog
	m.mu.Unlock()

	return c.JSON(http.StatusOK, catalog)
}
