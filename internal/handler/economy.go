package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fishbot-economy-api/internal/economy"
	"fishbot-economy-api/internal/model"
	"fishbot-economy-api/pkg/apierror"
	"fishbot-economy-api/pkg/response"
)

const maxBodyBytes = 4 << 10

// Economy is the engine surface used by the HTTP adapter.
type Economy interface {
	Join(ctx context.Context, userID string) (model.Account, bool, error)
	GetBalance(ctx context.Context, userID string) (int64, error)
	Inventory(ctx context.Context, userID string) (model.Account, error)
	ClaimDaily(ctx context.Context, userID string, now time.Time) (economy.DailyResult, error)
	Buy(ctx context.Context, userID, itemName string) (economy.BuyResult, error)
	Sell(ctx context.Context, userID, itemName string) (economy.SellResult, error)
	Catalog() []model.Item
}

// EconomyHandler maps player commands to engine operations.
type EconomyHandler struct {
	econ Economy
	now  func() time.Time
}

// NewEconomyHandler creates a new economy handler.
func NewEconomyHandler(econ Economy) *EconomyHandler {
	return &EconomyHandler{econ: econ, now: time.Now}
}

// ItemRequest is the body of buy and sell.
type ItemRequest struct {
	Item string `json:"item"`
}

// AccountResponse is an account view.
type AccountResponse struct {
	UserID         string       `json:"user_id"`
	Balance        int64        `json:"balance"`
	Inventory      []model.Item `json:"inventory"`
	InventoryValue int64        `json:"inventory_value"`
	Created        bool         `json:"created,omitempty"`
}

// DailyResponse reports a daily reward attempt.
type DailyResponse struct {
	UserID           string    `json:"user_id"`
	Claimed          bool      `json:"claimed"`
	Reward           int64     `json:"reward,omitempty"`
	Balance          int64     `json:"balance"`
	RemainingSeconds int64     `json:"remaining_seconds,omitempty"`
	RemainingHours   int       `json:"remaining_hours"`
	RemainingMinutes int       `json:"remaining_minutes"`
	NextClaimAt      time.Time `json:"next_claim_at"`
}

// TradeResponse reports a buy or a sell.
type TradeResponse struct {
	UserID  string     `json:"user_id"`
	Item    model.Item `json:"item"`
	Price   int64      `json:"price,omitempty"`
	Payout  int64      `json:"payout,omitempty"`
	Balance int64      `json:"balance"`
}

func accountResponse(a model.Account) AccountResponse {
	return AccountResponse{
		UserID:         a.UserID,
		Balance:        a.Balance,
		Inventory:      a.Inventory,
		InventoryValue: a.InventoryValue(),
	}
}

// Join handles POST /api/v1/users/{user_id}/join
func (h *EconomyHandler) Join(w http.ResponseWriter, r *http.Request) {
	acct, created, err := h.econ.Join(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	resp := accountResponse(acct)
	resp.Created = created
	if created {
		response.Created(w, resp)
		return
	}
	response.OK(w, resp)
}

// Balance handles GET /api/v1/users/{user_id}/balance
func (h *EconomyHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	balance, err := h.econ.GetBalance(r.Context(), userID)
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"user_id": userID,
		"balance": balance,
	})
}

// Inventory handles GET /api/v1/users/{user_id}/inventory
func (h *EconomyHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	acct, err := h.econ.Inventory(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		writeEconomyError(w, err)
		return
	}
	response.OK(w, accountResponse(acct))
}

// Daily handles POST /api/v1/users/{user_id}/daily
// A claim inside the cooldown is not an error: it answers 200 with claimed=false.
func (h *EconomyHandler) Daily(w http.ResponseWriter, r *http.Request) {
	res, err := h.econ.ClaimDaily(r.Context(), chi.URLParam(r, "user_id"), h.now())
	if err != nil && !errors.Is(err, economy.ErrNotYetEligible) {
		writeEconomyError(w, err)
		return
	}

	hours, minutes := res.RemainingHoursMinutes()
	response.OK(w, DailyResponse{
		UserID:           res.UserID,
		Claimed:          res.Claimed,
		Reward:           res.Reward,
		Balance:          res.Balance,
		RemainingSeconds: int64(res.Remaining / time.Second),
		RemainingHours:   hours,
		RemainingMinutes: minutes,
		NextClaimAt:      res.NextClaimAt.UTC(),
	})
}

// Buy handles POST /api/v1/users/{user_id}/buy
func (h *EconomyHandler) Buy(w http.ResponseWriter, r *http.Request) {
	item, ok := decodeItem(w, r)
	if !ok {
		return
	}

	res, err := h.econ.Buy(r.Context(), chi.URLParam(r, "user_id"), item)
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	response.OK(w, TradeResponse{
		UserID:  res.UserID,
		Item:    res.Item,
		Price:   res.Item.Price,
		Balance: res.Balance,
	})
}

// Sell handles POST /api/v1/users/{user_id}/sell
func (h *EconomyHandler) Sell(w http.ResponseWriter, r *http.Request) {
	item, ok := decodeItem(w, r)
	if !ok {
		return
	}

	res, err := h.econ.Sell(r.Context(), chi.URLParam(r, "user_id"), item)
	if err != nil {
		writeEconomyError(w, err)
		return
	}

	response.OK(w, TradeResponse{
		UserID:  res.UserID,
		Item:    res.Item,
		Payout:  res.Payout,
		Balance: res.Balance,
	})
}

// Catalog handles GET /api/v1/catalog
func (h *EconomyHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	items := h.econ.Catalog()
	response.OK(w, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

func decodeItem(w http.ResponseWriter, r *http.Request) (string, bool) {
	defer r.Body.Close()

	var req ItemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			response.Error(w, apierror.ValidationError("request body is required",
				apierror.FieldError{Field: "item", Message: "is required"}))
			return "", false
		}
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return "", false
	}

	item := strings.TrimSpace(req.Item)
	if item == "" {
		response.Error(w, apierror.ValidationError("item is required",
			apierror.FieldError{Field: "item", Message: "is required"}))
		return "", false
	}
	return item, true
}

// writeEconomyError maps engine error kinds to API errors.
func writeEconomyError(w http.ResponseWriter, err error) {
	var econErr *economy.Error
	if !errors.As(err, &econErr) {
		response.Error(w, err)
		return
	}

	switch econErr.Kind {
	case economy.KindItemNotFound:
		msg := "Item not found."
		if econErr.Op == economy.OpSell {
			msg = "Item not found in your inventory."
		}
		response.Error(w, apierror.NotFound(msg).WithCode("ITEM_NOT_FOUND"))
	case economy.KindInsufficientFunds:
		response.Error(w, apierror.Conflict("Insufficient balance.").WithCode("INSUFFICIENT_FUNDS"))
	case economy.KindInvalidAmount:
		response.Error(w, apierror.BadRequest("invalid amount").WithCode("INVALID_AMOUNT"))
	case economy.KindInvalidUser:
		response.Error(w, apierror.BadRequest("user_id is required").WithCode("INVALID_USER"))
	default:
		response.Error(w, apierror.InternalError(""))
	}
}
