package users

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/interfaces"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// Handlers serves user registration and login
type Handlers struct {
	users     interfaces.UserRepository
	sessions  interfaces.SessionRepository
	tokens    interfaces.TokenIssuer
	passwords *PasswordManager
	resp      *api.Responder
	logger    *logger.Logger
}

// NewHandlers creates user handlers
func NewHandlers(
	users interfaces.UserRepository,
	sessions interfaces.SessionRepository,
	tokens interfaces.TokenIssuer,
	passwords *PasswordManager,
	resp *api.Responder,
	log *logger.Logger,
) *Handlers {
	return &Handlers{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		passwords: passwords,
		resp:      resp,
		logger:    log,
	}
}

// RegisterRoutes mounts user creation on both the bare /users path and the
// /api subrouter, plus login on /api
func (h *Handlers) RegisterRoutes(root, apiRouter *mux.Router) {
	root.HandleFunc("/users", h.createUserHandler).Methods("POST")
	apiRouter.HandleFunc("/users", h.createUserHandler).Methods("POST")
	apiRouter.HandleFunc("/login", h.loginHandler).Methods("POST")
}

func (h *Handlers) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := api.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		h.resp.Error(w, r, types.NewValidationError(types.ErrCodeInvalidInput, "username and password are required", nil), "")
		return
	}

	exists, err := h.users.Exists(r.Context(), req.Username)
	if err != nil {
		h.resp.Error(w, r, err, "Error creating user")
		return
	}
	if exists {
		h.resp.Error(w, r, userExists(), "")
		return
	}

	hash, err := h.passwords.HashPassword(req.Password)
	if err != nil {
		h.resp.Error(w, r, err, "Error creating user")
		return
	}

	user, err := h.users.Create(r.Context(), &types.User{
		Username:     req.Username,
		PasswordHash: hash,
		UserType:     req.UserType,
	})
	if err != nil {
		h.resp.Error(w, r, err, "Error creating user")
		return
	}

	h.logger.Audit(r.Context(), strconv.FormatInt(user.ID, 10), "create", "user", true, map[string]interface{}{
		"username":  user.Username,
		"user_type": user.UserType,
	})
	h.resp.Message(w, http.StatusCreated, "User created successfully")
}

func (h *Handlers) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := api.Decode(r, &req); err != nil {
		h.resp.Error(w, r, err, "")
		return
	}

	user, err := h.users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if types.IsType(err, types.ErrorTypeNotFound) {
			h.rejectLogin(w, r, req.Username)
			return
		}
		h.resp.Error(w, r, err, "Error logging in")
		return
	}

	ok, err := h.passwords.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		h.resp.Error(w, r, err, "Error logging in")
		return
	}
	if !ok {
		h.rejectLogin(w, r, req.Username)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		h.resp.Error(w, r, err, "Error logging in")
		return
	}

	now := time.Now()
	userID := strconv.FormatInt(user.ID, 10)
	if err := h.sessions.Create(r.Context(), &types.Session{
		Token:     token,
		UserID:    userID,
		Username:  user.Username,
		CreatedAt: now,
	}); err != nil {
		h.resp.Error(w, r, err, "Error logging in")
		return
	}

	h.logger.Audit(r.Context(), userID, "login", "session", true, nil)
	h.resp.JSON(w, http.StatusOK, types.LoginResponse{
		Token:    token,
		UserID:   user.ID,
		Username: user.Username,
		UserType: user.UserType,
		IssuedAt: now,
	})
}

func (h *Handlers) rejectLogin(w http.ResponseWriter, r *http.Request, username string) {
	h.logger.Security(r.Context(), "login_failed", map[string]interface{}{
		"username": username,
	})
	h.resp.Error(w, r, types.NewAuthenticationError(types.ErrCodeInvalidCredentials, "Invalid username or password"), "")
}
