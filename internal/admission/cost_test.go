package admission

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCostForQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"query", `query { products { id } }`, CostRead},
		{"bare selection set", `{ products { id } }`, CostRead},
		{"mutation", `mutation { createOrder(input: {}) { id } }`, CostMutation},
		{"subscription", `subscription { orderUpdated { id } }`, CostSubscription},
		{"mixed document weighs heaviest", "query Q { shop { id } }\nmutation M { touch }", CostMutation},
		{"unparseable treated as read", `{{{ nope`, CostRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := costForQuery(tt.query); got != tt.want {
				t.Errorf("costForQuery = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractMetaWorkspacePrecedence(t *testing.T) {
	graphqlBody := `{"query":"query { shop { id } }","variables":{"workspaceId":"ws_vars"}}`

	tests := []struct {
		name     string
		method   string
		target   string
		body     string
		headers  map[string]string
		wantID   string
		wantCost int
	}{
		{
			name:     "header beats variables and path",
			method:   "POST",
			target:   "/workspaces/ws_path/graphql",
			body:     graphqlBody,
			headers:  map[string]string{"X-Workspace-Id": "ws_header"},
			wantID:   "ws_header",
			wantCost: CostRead,
		},
		{
			name:     "graphql variables beat path",
			method:   "POST",
			target:   "/workspaces/ws_path/graphql",
			body:     graphqlBody,
			wantID:   "ws_vars",
			wantCost: CostRead,
		},
		{
			name:     "snake_case variable",
			method:   "POST",
			target:   "/graphql",
			body:     `{"query":"mutation { touch }","variables":{"workspace_id":"ws_snake"}}`,
			wantID:   "ws_snake",
			wantCost: CostMutation,
		},
		{
			name:     "path segment fallback",
			method:   "GET",
			target:   "/workspaces/ws_path/orders",
			wantID:   "ws_path",
			wantCost: CostRead,
		},
		{
			name:     "no identity",
			method:   "GET",
			target:   "/collections/all",
			wantID:   "",
			wantCost: CostRead,
		},
		{
			name:     "non-graphql post weighs as mutation",
			method:   "POST",
			target:   "/cart/add",
			body:     `{"item":"sku_1"}`,
			wantID:   "",
			wantCost: CostMutation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.target, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			meta := ExtractMeta(req)
			if meta.WorkspaceID != tt.wantID {
				t.Errorf("WorkspaceID = %q, want %q", meta.WorkspaceID, tt.wantID)
			}
			if meta.Cost != tt.wantCost {
				t.Errorf("Cost = %d, want %d", meta.Cost, tt.wantCost)
			}
		})
	}
}

func TestExtractMetaRestoresBody(t *testing.T) {
	payload := `{"query":"query { shop { id } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	ExtractMeta(req)

	rest, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("reading restored body: %v", err)
	}
	if string(rest) != payload {
		t.Errorf("body after sniffing = %q, want original payload", rest)
	}
}
