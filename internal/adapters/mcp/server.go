package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/invoice-hub-agent/internal/core/ports"
)

const (
	ToolGlobalStatus        = "global_status"
	ToolDraftList           = "draft_po_list"
	ToolDraftUpdateQuantity = "draft_po_update_quantity"
)

// Server exposes status and draft operations as MCP tools.
type Server struct {
	status ports.StatusReader
	drafts ports.DraftPurchaseOrders
	mcp    *server.MCPServer
}

func NewServer(version string, status ports.StatusReader, drafts ports.DraftPurchaseOrders) *Server {
	s := &Server{
		status: status,
		drafts: drafts,
		mcp:    server.NewMCPServer("invoicehub-agent", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(ToolGlobalStatus,
		mcp.WithDescription("Current review, sync and processing counters of the invoice workspace."),
	), s.globalStatus)

	s.mcp.AddTool(mcp.NewTool(ToolDraftList,
		mcp.WithDescription("Draft purchase order items, newest first, with the estimated total."),
		mcp.WithBoolean("refresh", mcp.Description("Reload the draft from the backend first.")),
	), s.draftList)

	s.mcp.AddTool(mcp.NewTool(ToolDraftUpdateQuantity,
		mcp.WithDescription("Set the reorder quantity of one draft item."),
		mcp.WithString("part_number", mcp.Required(), mcp.Description("Part number of the draft item.")),
		mcp.WithNumber("reorder_qty", mcp.Required(), mcp.Description("New quantity, at least 1.")),
	), s.updateQuantity)

	return s
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) globalStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.status.Snapshot())
}

func (s *Server) draftList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("refresh", false) {
		if err := s.drafts.Load(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("load draft: %v", err)), nil
		}
	}
	return jsonResult(map[string]any{
		"items":   s.drafts.Items(),
		"summary": s.drafts.Summary(),
	})
}

func (s *Server) updateQuantity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	part, err := req.RequireString("part_number")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	qty, err := req.RequireFloat("reorder_qty")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if qty != math.Trunc(qty) {
		return mcp.NewToolResultError("reorder_qty must be a whole number"), nil
	}
	if err := s.drafts.UpdateQuantity(ctx, part, int(qty)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"part_number": part,
		"reorder_qty": int(qty),
		"summary":     s.drafts.Summary(),
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
