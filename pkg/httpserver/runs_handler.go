package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/haggleworks/negotiator/pkg/types"
)

// StartRunRequest is the wire form of a run launch. The same shape doubles as
// the scenario file format for the one-shot CLI.
type StartRunRequest struct {
	BuyerName   string             `json:"buyer_name"`
	Constraints ConstraintsPayload `json:"constraints"`
	Sellers     []SellerPayload    `json:"sellers"`
	MaxRounds   int                `json:"max_rounds,omitempty"`
	MinRounds   int                `json:"min_rounds,omitempty"`
	Seed        *int64             `json:"seed,omitempty"`
}

// ConstraintsPayload is the wire form of the buyer's requirements.
type ConstraintsPayload struct {
	ItemID          string   `json:"item_id,omitempty"`
	ItemName        string   `json:"item_name"`
	QuantityNeeded  int      `json:"quantity_needed"`
	MinPricePerUnit float64  `json:"min_price_per_unit"`
	MaxPricePerUnit float64  `json:"max_price_per_unit"`
	BudgetPerItem   *float64 `json:"budget_per_item,omitempty"`
}

// ToConstraints converts the payload to the domain type.
func (c *ConstraintsPayload) ToConstraints() types.BuyerConstraints {
	return types.BuyerConstraints{
		ItemID:          c.ItemID,
		ItemName:        c.ItemName,
		QuantityNeeded:  c.QuantityNeeded,
		MinPricePerUnit: c.MinPricePerUnit,
		MaxPricePerUnit: c.MaxPricePerUnit,
		BudgetPerItem:   c.BudgetPerItem,
	}
}

// SellerPayload is the wire form of one seller's profile and inventory.
type SellerPayload struct {
	SellerID    string             `json:"seller_id"`
	DisplayName string             `json:"display_name"`
	Priority    string             `json:"priority,omitempty"`
	Style       string             `json:"style,omitempty"`
	Inventory   []InventoryPayload `json:"inventory"`
}

// ToProfile converts the payload to the domain profile.
func (s *SellerPayload) ToProfile() types.SellerProfile {
	priority := types.SellerPriority(s.Priority)
	if priority == "" {
		priority = types.PriorityMaximizeProfit
	}

	style := types.SpeakingStyle(s.Style)
	if style == "" {
		style = types.StyleNeutral
	}

	return types.SellerProfile{
		SellerID:    s.SellerID,
		DisplayName: s.DisplayName,
		Priority:    priority,
		Style:       style,
	}
}

// ToInventory converts the payload inventory to domain items.
func (s *SellerPayload) ToInventory() []types.InventoryItem {
	out := make([]types.InventoryItem, 0, len(s.Inventory))
	for _, item := range s.Inventory {
		out = append(out, types.InventoryItem{
			ItemID:            item.ItemID,
			ItemName:          item.ItemName,
			CostPrice:         item.CostPrice,
			SellingPrice:      item.SellingPrice,
			LeastPrice:        item.LeastPrice,
			QuantityAvailable: item.QuantityAvailable,
		})
	}

	return out
}

// InventoryPayload is the wire form of one inventory entry.
type InventoryPayload struct {
	ItemID            string  `json:"item_id,omitempty"`
	ItemName          string  `json:"item_name"`
	CostPrice         float64 `json:"cost_price"`
	SellingPrice      float64 `json:"selling_price"`
	LeastPrice        float64 `json:"least_price"`
	QuantityAvailable int     `json:"quantity_available"`
}

// RunsHandler serves the run management endpoints.
type RunsHandler struct {
	runs   RunService
	logger *zap.Logger
}

// NewRunsHandler creates a runs handler.
func NewRunsHandler(runs RunService, logger *zap.Logger) *RunsHandler {
	return &RunsHandler{runs: runs, logger: logger}
}

// HandleStartRun launches a negotiation run from the request body.
func (h *RunsHandler) HandleStartRun(w http.ResponseWriter, r *http.Request) {
	var req StartRunRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	runID, err := h.runs.StartRun(r.Context(), &req)
	if err != nil {
		var cfgErr *types.ConfigError
		switch {
		case errors.As(err, &cfgErr):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrNoSellersAvailable):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("start-run-failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to start run")
		}

		return
	}

	h.logger.Info("run-started-via-api", zap.String("run-id", runID))

	writeJSON(w, http.StatusCreated, map[string]string{"run_id": runID})
}

// HandleGetRun reports one run's status.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	info, ok := h.runs.RunInfo(runID)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found: "+runID)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// HandleListRuns reports every run known to this process.
func (h *RunsHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	runs := h.runs.ListRuns()
	if runs == nil {
		runs = []RunInfo{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// HandleCancelRun requests cooperative cancellation of a run.
func (h *RunsHandler) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	if !h.runs.CancelRun(runID) {
		writeError(w, http.StatusNotFound, "run not found: "+runID)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID, "status": "cancelling"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
