package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/finvault/bankcore/internal/api"
	"github.com/finvault/bankcore/internal/domain"
	"github.com/finvault/bankcore/internal/service"
	"github.com/finvault/bankcore/internal/session"
	"github.com/finvault/bankcore/internal/store"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fixture struct {
	router http.Handler
	store  *store.MemoryStore
}

func newFixture() *fixture {
	st := store.NewMemoryStore()
	sessions := session.NewStore(time.Hour)
	auth := service.NewAuthService(st, sessions, bcrypt.MinCost)
	transfers := service.NewTransferService(st)
	handler := api.NewHandler(st, sessions, auth, transfers)
	return &fixture{router: api.NewRouter(handler), store: st}
}

func (f *fixture) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// registerAndLogin creates a user over the API and returns the Authorization
// header value plus the id of the account provisioned at registration.
func (f *fixture) registerAndLogin(t *testing.T, username string) (bearer string, accountID int64) {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"username": username,
		"password": "StrongPassword123",
		"email":    username + "@example.com",
		"phone":    "1234567890",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": username,
		"password": "StrongPassword123",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, strings.HasPrefix(out.Message, "Bearer "), "login returns a bearer token")

	user, err := f.store.GetUserByUsername(context.Background(), username)
	require.NoError(t, err)
	return out.Message, user.ID // account ids are assigned in user order
}

func balancePath(id int64) string {
	return fmt.Sprintf("/api/v1/accounts/%d/balance", id)
}

func TestGetBalance(t *testing.T) {
	t.Parallel()
	f := newFixture()
	bearer, accountID := f.registerAndLogin(t, "balanceUser")
	require.NoError(t, f.store.Credit(context.Background(), accountID, 100050))

	t.Run("valid token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, balancePath(accountID), bearer, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"balance":1000.50}`, rec.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, balancePath(accountID), "Bearer invalid_token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid token"}`, rec.Body.String())
	})

	t.Run("another user's account is forbidden", func(t *testing.T) {
		otherBearer, _ := f.registerAndLogin(t, "otherUser")
		rec := f.do(t, http.MethodGet, balancePath(accountID), otherBearer, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"error":"Access denied"}`, rec.Body.String())
	})

	t.Run("unknown account is 404 even with a valid token", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, balancePath(99999), bearer, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Account not found"}`, rec.Body.String())
	})
}

func TestTransfer(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	bearer, fromID := f.registerAndLogin(t, "senderUser")
	_, toID := f.registerAndLogin(t, "receiverUser")
	require.NoError(t, f.store.Credit(ctx, fromID, 100050))
	require.NoError(t, f.store.Credit(ctx, toID, 5000))

	transferBody := func(from, to int64, amount string) map[string]any {
		return map[string]any{
			"from_account_id": from,
			"to_account_id":   to,
			"amount":          json.Number(amount),
		}
	}

	t.Run("success moves the money", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", bearer, transferBody(fromID, toID, "100.50"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Transfer successful"}`, rec.Body.String())

		from, _ := f.store.GetAccount(ctx, fromID)
		to, _ := f.store.GetAccount(ctx, toID)
		assert.Equal(t, domain.Amount(90000), from.Balance)
		assert.Equal(t, domain.Amount(15050), to.Balance)
	})

	t.Run("insufficient funds leaves balances unchanged", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", bearer, transferBody(fromID, toID, "100000.00"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"Insufficient funds"}`, rec.Body.String())

		from, _ := f.store.GetAccount(ctx, fromID)
		to, _ := f.store.GetAccount(ctx, toID)
		assert.Equal(t, domain.Amount(90000), from.Balance)
		assert.Equal(t, domain.Amount(15050), to.Balance)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", "", transferBody(fromID, toID, "10.00"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Authorization required"}`, rec.Body.String())
	})

	t.Run("unknown from account", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", bearer, transferBody(99999, toID, "50.00"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"message":"Account not found"}`, rec.Body.String())
	})

	t.Run("unknown to account", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", bearer, transferBody(fromID, 99999, "50.00"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("someone else's from account is forbidden", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", bearer, transferBody(toID, fromID, "10.00"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"message":"Access denied"}`, rec.Body.String())
	})

	t.Run("self transfer rejected", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", bearer, transferBody(fromID, fromID, "10.00"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid transfer request"}`, rec.Body.String())
	})
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture()

	register := func(body map[string]string) *httptest.ResponseRecorder {
		return f.do(t, http.MethodPost, "/api/v1/users/register", "", body)
	}

	valid := map[string]string{
		"username": "existingUser",
		"password": "StrongPassword123",
		"email":    "existinguser@example.com",
		"phone":    "1234567890",
	}

	t.Run("success", func(t *testing.T) {
		rec := register(valid)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, `{"message":"User registered successfully."}`, rec.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := register(map[string]string{
			"username": "missingEmailUser",
			"password": "StrongPassword123",
			"phone":    "1234567890",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Missing required fields."}`, rec.Body.String())
	})

	t.Run("username conflict", func(t *testing.T) {
		body := map[string]string{
			"username": "existingUser",
			"password": "StrongPassword123",
			"email":    "newuser@example.com",
			"phone":    "0987654321",
		}
		rec := register(body)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"Username already exist."}`, rec.Body.String())
	})

	t.Run("email conflict", func(t *testing.T) {
		body := map[string]string{
			"username": "newUser",
			"password": "StrongPassword123",
			"email":    "existinguser@example.com",
			"phone":    "1234567890",
		}
		rec := register(body)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"Email already exists."}`, rec.Body.String())
	})

	t.Run("injection payload in username", func(t *testing.T) {
		body := map[string]string{
			"username": "'; DROP TABLE users;--",
			"password": "Test1234",
			"email":    "sqlinjection@example.com",
			"phone":    "1234567890",
		}
		rec := register(body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid input."}`, rec.Body.String())
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture()
	f.registerAndLogin(t, "loginUser")

	t.Run("wrong password", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
			"username": "loginUser",
			"password": "wrongPassword",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
	})

	t.Run("unknown username reports the same error", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
			"username": "invalidUser",
			"password": "StrongPassword123",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
	})

	t.Run("missing password", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
			"username": "loginUser",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Password field missing"}`, rec.Body.String())
	})
}

func TestLogoutEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture()
	bearer, _ := f.registerAndLogin(t, "logoutUser")

	t.Run("missing token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/users/logout", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Authorization required"}`, rec.Body.String())
	})

	t.Run("never-issued token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/users/logout", "Bearer invalid_token", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid token"}`, rec.Body.String())
	})

	t.Run("success revokes the session", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/v1/users/logout", bearer, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"Logout successful"}`, rec.Body.String())

		// The revoked token is rejected everywhere, including a second logout.
		rec = f.do(t, http.MethodPost, "/api/v1/users/logout", bearer, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Invalid token"}`, rec.Body.String())
	})
}

func TestEntriesEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture()
	ctx := context.Background()

	bearer, fromID := f.registerAndLogin(t, "auditUser")
	_, toID := f.registerAndLogin(t, "auditPeer")
	require.NoError(t, f.store.Credit(ctx, fromID, 10000))

	rec := f.do(t, http.MethodPost, "/api/v1/accounts/transfer", bearer, map[string]any{
		"from_account_id": fromID,
		"to_account_id":   toID,
		"amount":          json.Number("25.00"),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%d/entries", fromID), bearer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Entries []domain.LedgerEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Entries, 2)
	assert.Equal(t, domain.Amount(-2500), out.Entries[0].Delta, "newest entry first")
	assert.Equal(t, domain.Amount(10000), out.Entries[1].Delta)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
