package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/repolens/repolens/internal/github"
)

// JSON-RPC 2.0 error codes used by the MCP endpoint.
const (
	rpcParseError     = -32700
	rpcInvalidRequest = -32600
	rpcMethodNotFound = -32601
	rpcInvalidParams  = -32602
	rpcInternalError  = -32603
)

const protocolVersion = "2024-11-05"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Tool list and call payload shapes.

type toolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolCallResult struct {
	Content           []contentBlock `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
	Meta              map[string]any `json:"_meta,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// MCPHandler dispatches JSON-RPC 2.0 requests to the tool registry.
func (s *Server) MCPHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcParseError, Message: "unable to read request body"}})
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: rpcParseError, Message: "invalid JSON: " + err.Error()}})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: rpcInvalidRequest, Message: "not a JSON-RPC 2.0 request"}})
		return
	}

	switch req.Method {
	case "initialize":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "repolens",
				"version": s.version,
			},
		}})

	case "notifications/initialized", "initialized":
		// Notification, nothing to return.
		w.WriteHeader(http.StatusAccepted)

	case "tools/list":
		descriptors := make([]toolDescriptor, 0)
		for _, t := range s.registry.List() {
			descriptors = append(descriptors, toolDescriptor{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"tools": descriptors}})

	case "tools/call":
		s.handleToolCall(w, r, req)

	default:
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{
			Code:    rpcMethodNotFound,
			Message: "method not found: " + req.Method,
		}})
	}
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request, req rpcRequest) {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{
			Code:    rpcInvalidParams,
			Message: "tools/call requires a tool name and an arguments object",
		}})
		return
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	result, err := s.registry.Call(r.Context(), params.Name, params.Arguments)
	if err != nil {
		apiErr := github.AsAPIError(err)
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{
			Code:    rpcCodeForAPIError(apiErr),
			Message: apiErr.Message,
			Data: map[string]any{
				"error_code": string(apiErr.Code),
			},
		}})
		return
	}

	writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: toolCallResult{
		Content:           []contentBlock{{Type: "text", Text: result.Text}},
		StructuredContent: result.Structured,
		Meta:              result.Meta,
	}})
}

// rpcCodeForAPIError maps the tool error taxonomy onto JSON-RPC codes:
// caller-side problems become invalid-params, everything else internal.
func rpcCodeForAPIError(apiErr *github.APIError) int {
	switch apiErr.Code {
	case github.CodeValidation, github.CodeNotFound, github.CodeAuthentication, github.CodeForbidden:
		return rpcInvalidParams
	default:
		return rpcInternalError
	}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
