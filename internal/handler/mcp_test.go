package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/shopify"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

// testMeta returns meta naming testVisitor.
func testMeta() map[string]interface{} {
	return map[string]interface{}{"visitor-id": testVisitor}
}

func TestMCPServerCreation(t *testing.T) {
	h, _ := testHandler(newShopMock())

	if h.NewMCPServer() == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if h.NewMCPHandler() == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	_, srv := testHandler(newShopMock())

	if sessionID := initMCPSession(t, srv); sessionID == "" {
		t.Error("expected Mcp-Session-Id header")
	}
}

func TestMCPToolsList(t *testing.T) {
	_, srv := testHandler(newShopMock())
	sessionID := initMCPSession(t, srv)

	resp := postMCP(t, srv, sessionID, jsonrpcRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}

	var toolsResult struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expected := map[string]bool{
		"search_products":  false,
		"get_product":      false,
		"get_cart":         false,
		"add_to_cart":      false,
		"update_cart_line": false,
		"remove_cart_line": false,
		"set_cart_lines":   false,
		"get_checkout_url": false,
	}
	for _, tool := range toolsResult.Tools {
		if _, ok := expected[tool.Name]; ok {
			expected[tool.Name] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPCartSharedWithHTTP(t *testing.T) {
	_, srv := testHandler(newShopMock())
	sessionID := initMCPSession(t, srv)

	result := callTool(t, srv, sessionID, "add_to_cart", map[string]interface{}{
		"meta":           testMeta(),
		"merchandise_id": "gid://shopify/ProductVariant/1",
		"quantity":       2,
	})
	if result.IsError {
		t.Fatalf("add_to_cart failed: %+v", result.Content)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal([]byte(result.Content[0].Text), &snap); err != nil {
		t.Fatalf("Failed to parse snapshot: %v", err)
	}
	if snap.Cart == nil || snap.Cart.TotalQuantity != 2 {
		t.Fatalf("snapshot = %+v, want quantity 2", snap)
	}

	// Same visitor over HTTP sees the same cart.
	w := do(t, srv, "GET", "/api/cart", "")
	if got := decodeSnapshot(t, w); got.Cart.ID != snap.Cart.ID {
		t.Errorf("HTTP cart = %s, want %s", got.Cart.ID, snap.Cart.ID)
	}

	result = callTool(t, srv, sessionID, "get_checkout_url", map[string]interface{}{"meta": testMeta()})
	if result.IsError {
		t.Fatalf("get_checkout_url failed: %+v", result.Content)
	}
	var out CheckoutURLOutput
	json.Unmarshal([]byte(result.Content[0].Text), &out)
	if !strings.HasPrefix(out.URL, "https://shop.example.com/cart/c/") {
		t.Errorf("URL = %q", out.URL)
	}
}

func TestMCPSearchProducts(t *testing.T) {
	m := newShopMock()
	_, srv := testHandler(m)
	sessionID := initMCPSession(t, srv)

	result := callTool(t, srv, sessionID, "search_products", map[string]interface{}{
		"meta":  map[string]interface{}{"visitor-id": testVisitor, "locale": "es"},
		"query": "tee",
	})
	if result.IsError {
		t.Fatalf("search_products failed: %+v", result.Content)
	}

	var conn shopify.Connection[shopify.Product]
	json.Unmarshal([]byte(result.Content[0].Text), &conn)
	if len(conn.Edges) != 1 {
		t.Errorf("edges = %d, want 1", len(conn.Edges))
	}
	for _, c := range m.Calls() {
		if shopify.OperationName(c.Query) == "GetProducts" && c.Locale != "es" {
			t.Errorf("Locale = %q, want es", c.Locale)
		}
	}
}

func TestMCPVisitorValidation(t *testing.T) {
	_, srv := testHandler(newShopMock())
	sessionID := initMCPSession(t, srv)

	tests := []struct {
		name string
		meta map[string]interface{}
	}{
		{"missing", map[string]interface{}{}},
		{"not a uuid", map[string]interface{}{"visitor-id": "abc"}},
		{"bad locale", map[string]interface{}{"visitor-id": testVisitor, "locale": "de"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := callTool(t, srv, sessionID, "get_cart", map[string]interface{}{"meta": tt.meta})
			if !result.IsError {
				t.Error("expected tool error")
			}
		})
	}
}

func TestMCPMissingRequiredField(t *testing.T) {
	_, srv := testHandler(newShopMock())
	sessionID := initMCPSession(t, srv)

	// Call get_cart without required 'meta' field
	args, _ := json.Marshal(map[string]interface{}{})
	body, _ := json.Marshal(jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params:  toolCallParams{Name: "get_cart", Arguments: args},
	})
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, httpReq)

	// Should still return 200, with error in the result
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// postMCP sends one JSON-RPC request and decodes the response.
func postMCP(t *testing.T, srv http.Handler, sessionID string, rpc jsonrpcRequest) jsonrpcResponse {
	t.Helper()

	body, _ := json.Marshal(rpc)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}
	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}
	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	return resp
}

// callTool invokes a tool and returns its result.
func callTool(t *testing.T, srv http.Handler, sessionID, name string, args map[string]interface{}) callToolResult {
	t.Helper()

	raw, _ := json.Marshal(args)
	resp := postMCP(t, srv, sessionID, jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params:  toolCallParams{Name: name, Arguments: raw},
	})
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		t.Fatalf("Failed to parse result: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	return result
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, srv http.Handler) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2025-06-18",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}
