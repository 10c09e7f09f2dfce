package backend

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractSpec []byte

// Route is one backend operation the client depends on.
type Route struct {
	Method string
	Path   string
}

// Routes lists every backend operation issued by Client.
var Routes = []Route{
	{http.MethodPost, "/api/auth/login"},
	{http.MethodGet, "/api/auth/me"},
	{http.MethodPost, "/api/auth/logout"},
	{http.MethodGet, "/api/config"},
	{http.MethodPost, "/api/upload/files"},
	{http.MethodGet, "/api/upload/files/view/{file_key}"},
	{http.MethodPost, "/api/upload/process"},
	{http.MethodGet, "/api/upload/process/status/{task_id}"},
	{http.MethodGet, "/api/review/dates"},
	{http.MethodGet, "/api/review/amounts"},
	{http.MethodGet, "/api/invoices/stats"},
	{http.MethodGet, "/api/purchase-orders/draft/items"},
	{http.MethodPost, "/api/purchase-orders/draft/items"},
	{http.MethodPut, "/api/purchase-orders/draft/items/{part_number}/quantity"},
	{http.MethodDelete, "/api/purchase-orders/draft/items/{part_number}"},
	{http.MethodPost, "/api/purchase-orders/quick-add/{part_number}"},
	{http.MethodDelete, "/api/purchase-orders/draft/clear"},
	{http.MethodPost, "/api/purchase-orders/draft/proceed"},
	{http.MethodGet, "/api/purchase-orders/history"},
	{http.MethodGet, "/api/purchase-orders/{po_id}/pdf"},
}

// LoadContract parses and validates the embedded OpenAPI description of the backend.
func LoadContract(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractSpec)
	if err != nil {
		return nil, fmt.Errorf("load backend contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate backend contract: %w", err)
	}
	return doc, nil
}

// VerifyRoutes fails on the first client route the contract does not declare.
func VerifyRoutes(doc *openapi3.T, routes []Route) error {
	if doc == nil || doc.Paths == nil {
		return fmt.Errorf("verify routes: empty contract")
	}
	for _, r := range routes {
		item := doc.Paths.Find(r.Path)
		if item == nil {
			return fmt.Errorf("verify routes: path %s is not declared", r.Path)
		}
		if item.GetOperation(r.Method) == nil {
			return fmt.Errorf("verify routes: %s %s is not declared", r.Method, r.Path)
		}
	}
	return nil
}
