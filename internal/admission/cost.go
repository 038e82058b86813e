package admission

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Request weights. Heavier operations consume quota faster, reflecting
// their backend cost.
const (
	CostRead         = 1
	CostMutation     = 2
	CostSubscription = 3
)

// WorkspaceHeader names the tenant explicitly for header-routed API calls.
const WorkspaceHeader = "X-Workspace-Id"

// maxSniffBytes caps how much of a request body is read for metadata
// extraction.
const maxSniffBytes = 1 << 20

// RequestMeta is what admission control needs to know about a request
// before any business logic runs.
type RequestMeta struct {
	// WorkspaceID is the tenant named by the request itself; empty when the
	// request carries none and the caller should fall back to the resolved
	// tenant.
	WorkspaceID string
	Cost        int
}

// ExtractMeta derives the workspace ID and request cost. Workspace
// precedence: header, GraphQL variables, path segment. The body is restored
// on the request after sniffing.
func ExtractMeta(r *http.Request) RequestMeta {
	meta := RequestMeta{Cost: costForVerb(r.Method)}

	body := sniffBody(r)
	if body != nil {
		var payload struct {
			Query     string                     `json:"query"`
			Variables map[string]json.RawMessage `json:"variables"`
		}
		if err := json.Unmarshal(body, &payload); err == nil && payload.Query != "" {
			meta.Cost = costForQuery(payload.Query)
			meta.WorkspaceID = workspaceFromVariables(payload.Variables)
		}
	}

	if h := r.Header.Get(WorkspaceHeader); h != "" {
		meta.WorkspaceID = h
	} else if meta.WorkspaceID == "" {
		meta.WorkspaceID = workspaceFromPath(r.URL.Path)
	}
	return meta
}

// costForQuery parses a GraphQL document and weighs it by its heaviest
// operation. Unparseable documents are weighed as reads; the resolver layer
// will reject them anyway.
func costForQuery(query string) int {
	doc, err := parser.ParseQuery(&ast.Source{Input: query})
	if err != nil {
		return CostRead
	}

	cost := CostRead
	for _, op := range doc.Operations {
		switch op.Operation {
		case ast.Mutation:
			if cost < CostMutation {
				cost = CostMutation
			}
		case ast.Subscription:
			cost = CostSubscription
		}
	}
	return cost
}

func costForVerb(method string) int {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return CostRead
	default:
		return CostMutation
	}
}

func workspaceFromVariables(vars map[string]json.RawMessage) string {
	for _, key := range []string{"workspaceId", "workspace_id"} {
		if raw, ok := vars[key]; ok {
			var id string
			if err := json.Unmarshal(raw, &id); err == nil && id != "" {
				return id
			}
		}
	}
	return ""
}

// workspaceFromPath extracts the id from a /workspaces/{id}/ segment.
func workspaceFromPath(path string) string {
	const marker = "/workspaces/"
	idx := strings.Index(path, marker)
	if idx < 0 {
		return ""
	}
	rest := path[idx+len(marker):]
	if end := strings.IndexByte(rest, '/'); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// sniffBody reads up to maxSniffBytes of a JSON body and puts it back on
// the request so downstream handlers see it untouched.
func sniffBody(r *http.Request) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSniffBytes))
	r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body
}
