package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/finvault/bankcore/internal/domain"
	"github.com/finvault/bankcore/internal/service"
	"github.com/finvault/bankcore/internal/session"
	"github.com/finvault/bankcore/internal/store"
)

// Handler owns the HTTP surface. Authorization is an ordered pipeline:
// authenticate, then fetch the account (may 404), then compare ownership
// (may 403). Unknown accounts return 404 regardless of who asks; 403 is
// reserved for accounts that exist but belong to someone else.
type Handler struct {
	store     store.Store
	sessions  *session.Store
	auth      *service.AuthService
	transfers *service.TransferService
}

func NewHandler(s store.Store, sessions *session.Store, auth *service.AuthService, transfers *service.TransferService) *Handler {
	return &Handler{store: s, sessions: sessions, auth: auth, transfers: transfers}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type transferRequest struct {
	FromAccountID int64         `json:"from_account_id"`
	ToAccountID   int64         `json:"to_account_id"`
	Amount        domain.Amount `json:"amount"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authenticate resolves the bearer token to a user id. It distinguishes an
// absent credential (domain.ErrAuthRequired) from a present but invalid one
// (domain.ErrInvalidToken).
func (h *Handler) authenticate(r *http.Request) (int64, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == "" {
		return 0, domain.ErrAuthRequired
	}
	return h.sessions.Validate(token)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRequired) {
			respondWithError(w, http.StatusUnauthorized, "Authorization required")
			return
		}
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if account.OwnerUserID != userID {
		respondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]domain.Amount{"balance": account.Balance})
}

func (h *Handler) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRequired) {
			respondWithError(w, http.StatusUnauthorized, "Authorization required")
			return
		}
		respondWithError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			respondWithError(w, http.StatusNotFound, "Account not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if account.OwnerUserID != userID {
		respondWithError(w, http.StatusForbidden, "Access denied")
		return
	}

	entries, err := h.store.GetEntries(r.Context(), id)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// Transfer reports its failures under a "message" key, matching the
// observed contract for this endpoint.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRequired) {
			respondWithMessage(w, http.StatusUnauthorized, "Authorization required")
			return
		}
		respondWithMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithMessage(w, http.StatusBadRequest, "Invalid transfer request")
		return
	}
	if req.Amount <= 0 || req.FromAccountID == req.ToAccountID {
		respondWithMessage(w, http.StatusBadRequest, "Invalid transfer request")
		return
	}

	from, err := h.store.GetAccount(r.Context(), req.FromAccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			respondWithMessage(w, http.StatusNotFound, "Account not found")
			return
		}
		respondWithMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if from.OwnerUserID != userID {
		respondWithMessage(w, http.StatusForbidden, "Access denied")
		return
	}

	_, err = h.transfers.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAccountNotFound):
			respondWithMessage(w, http.StatusNotFound, "Account not found")
		case errors.Is(err, domain.ErrInsufficientFunds):
			respondWithMessage(w, http.StatusBadRequest, "Insufficient funds")
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrSameAccount):
			respondWithMessage(w, http.StatusBadRequest, "Invalid transfer request")
		default:
			respondWithMessage(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithMessage(w, http.StatusOK, "Transfer successful")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid input.")
		return
	}

	err := h.auth.Register(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingFields):
			respondWithError(w, http.StatusBadRequest, "Missing required fields.")
		case errors.Is(err, domain.ErrInvalidInput):
			respondWithError(w, http.StatusBadRequest, "Invalid input.")
		case errors.Is(err, domain.ErrUsernameTaken):
			respondWithError(w, http.StatusConflict, "Username already exist.")
		case errors.Is(err, domain.ErrEmailTaken):
			respondWithError(w, http.StatusConflict, "Email already exists.")
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully."})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPasswordMissing):
			respondWithError(w, http.StatusBadRequest, "Password field missing")
		case errors.Is(err, domain.ErrInvalidCredentials):
			respondWithError(w, http.StatusUnauthorized, "Invalid credentials")
		default:
			respondWithError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Bearer " + token})
}

// Logout reports its failures under a "message" key, matching the observed
// contract for this endpoint. A second logout of the same token fails: the
// token no longer denotes an active session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == "" {
		respondWithMessage(w, http.StatusUnauthorized, "Authorization required")
		return
	}

	if err := h.auth.Logout(token); err != nil {
		respondWithMessage(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	respondWithMessage(w, http.StatusOK, "Logout successful")
}

func respondWithMessage(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"message": message})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
