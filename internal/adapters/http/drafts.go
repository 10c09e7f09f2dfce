package httpadapter

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/kirillkom/invoice-hub-agent/internal/core/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type draftResponse struct {
	Items   []domain.DraftPOItem `json:"items"`
	Summary domain.DraftSummary  `json:"summary"`
}

func (rt *Router) draftSnapshot() draftResponse {
	return draftResponse{Items: rt.deps.Drafts.Items(), Summary: rt.deps.Drafts.Summary()}
}

func (rt *Router) listDraft(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, rt.draftSnapshot())
}

func (rt *Router) loadDraft(w http.ResponseWriter, r *http.Request) {
	if err := rt.deps.Drafts.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.draftSnapshot())
}

func (rt *Router) addDraftItem(w http.ResponseWriter, r *http.Request) {
	var item domain.DraftPOItem
	if err := decodeJSONBody(r, &item); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if err := rt.deps.Drafts.Add(r.Context(), item); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt.draftSnapshot())
}

func (rt *Router) quickAddDraftItem(w http.ResponseWriter, r *http.Request) {
	if err := rt.deps.Drafts.QuickAdd(r.Context(), r.PathValue("part")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt.draftSnapshot())
}

func (rt *Router) updateDraftQuantity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReorderQty *int `json:"reorder_qty"`
	}
	if err := decodeJSONBody(r, &req); err != nil || req.ReorderQty == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"reorder_qty\": <int>}"})
		return
	}
	if err := rt.deps.Drafts.UpdateQuantity(r.Context(), r.PathValue("part"), *req.ReorderQty); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.draftSnapshot())
}

func (rt *Router) removeDraftItem(w http.ResponseWriter, r *http.Request) {
	if err := rt.deps.Drafts.Remove(r.Context(), r.PathValue("part")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.draftSnapshot())
}

// clearDraft requires confirm=true; without it nothing is sent to the backend.
func (rt *Router) clearDraft(w http.ResponseWriter, r *http.Request) {
	confirm, err := queryBool(r, "confirm")
	if err != nil {
		writeError(w, r, err)
		return
	}
	deleted, err := rt.deps.Drafts.Clear(r.Context(), func() bool { return confirm })
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted_count": deleted})
}

func (rt *Router) proceedDraft(w http.ResponseWriter, r *http.Request) {
	var req domain.ProceedRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}
	confirmation, err := rt.deps.Drafts.Proceed(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, confirmation)
}

// exportDraft buffers the workbook so a failed export still yields a JSON error.
func (rt *Router) exportDraft(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := rt.deps.Drafts.Export(&buf); err != nil {
		writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("draft_po_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) listPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	orders, err := rt.deps.Drafts.History(r.Context(), limit, offset, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.PurchaseOrder{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"purchase_orders": orders})
}

func (rt *Router) downloadPurchaseOrderPDF(w http.ResponseWriter, r *http.Request) {
	key, err := rt.deps.Drafts.DownloadPDF(r.Context(), r.PathValue("po_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"pdf_key": key})
}
