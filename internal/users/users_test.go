package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaidhya/pos-api/pkg/api"
	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Exists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *types.User) (*types.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

// MockSessionRepository is a mock implementation of SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) IsValid(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) Create(ctx context.Context, session *types.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) Update(ctx context.Context, token string, input *types.SessionInput) error {
	return m.Called(ctx, token, input).Error(0)
}

func (m *MockSessionRepository) Logout(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

type staticIssuer struct {
	token string
	err   error
}

func (s staticIssuer) Issue(*types.User) (string, error) { return s.token, s.err }

func setupRouter(users *MockUserRepository, sessions *MockSessionRepository, issuer staticIssuer) *mux.Router {
	log := logger.NewNop()
	router := mux.NewRouter()
	h := NewHandlers(users, sessions, issuer, NewPasswordManager(bcrypt.MinCost), api.NewResponder(log, nil), log)
	h.RegisterRoutes(router, router.PathPrefix("/api").Subrouter())
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPasswordManager(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost)

	hash, err := pm.HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	ok, err := pm.VerifyPassword(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = pm.VerifyPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = pm.VerifyPassword("not-a-hash", "s3cret")
	assert.Error(t, err)
}

func TestPasswordManager_TooLong(t *testing.T) {
	pm := NewPasswordManager(bcrypt.MinCost)

	_, err := pm.HashPassword(strings.Repeat("x", 73))
	require.Error(t, err)
	assert.True(t, types.IsType(err, types.ErrorTypeValidation))

	_, err = pm.HashPassword(strings.Repeat("x", 72))
	assert.NoError(t, err)
}

func TestNewPasswordManager_CostBounds(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordManager(0).cost)
	assert.Equal(t, 12, NewPasswordManager(12).cost)
}

func TestRepository(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()
	repo := NewRepository(database.Wrap(sqlDB, logger.NewNop()))
	ctx := context.Background()
	createdAt := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("ravi").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO users").WithArgs("asha", "hash", "nurse").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(4), createdAt))
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pq.Error{Code: database.UniqueViolation})
	mock.ExpectQuery("FROM users").WithArgs("asha").
		WillReturnRows(sqlmock.NewRows([]string{"id", "usrnme", "pswd", "typ", "created_at"}).
			AddRow(int64(4), "asha", "hash", "nurse", createdAt))

	exists, err := repo.Exists(ctx, "ravi")
	require.NoError(t, err)
	assert.True(t, exists)

	user, err := repo.Create(ctx, &types.User{Username: "asha", PasswordHash: "hash", UserType: "nurse"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), user.ID)
	assert.Equal(t, createdAt, user.CreatedAt)

	_, err = repo.Create(ctx, &types.User{Username: "asha", PasswordHash: "hash"})
	posErr, ok := types.AsPosError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeUserExists, posErr.Code)

	user, err = repo.GetByUsername(ctx, "asha")
	require.NoError(t, err)
	assert.Equal(t, "hash", user.PasswordHash)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserHandler(t *testing.T) {
	users := new(MockUserRepository)
	users.On("Exists", mock.Anything, "asha").Return(false, nil)
	users.On("Create", mock.Anything, mock.MatchedBy(func(u *types.User) bool {
		return u.Username == "asha" && u.UserType == "nurse" &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw")) == nil
	})).Return(&types.User{ID: 4, Username: "asha", UserType: "nurse"}, nil)
	router := setupRouter(users, new(MockSessionRepository), staticIssuer{})

	rec := serve(router, http.MethodPost, "/users", `{"username":"asha","password":"pw","user_type":"nurse"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "User created successfully")
	users.AssertExpectations(t)
}

func TestCreateUserHandler_Existing(t *testing.T) {
	users := new(MockUserRepository)
	users.On("Exists", mock.Anything, "ravi").Return(true, nil)
	router := setupRouter(users, new(MockSessionRepository), staticIssuer{})

	rec := serve(router, http.MethodPost, "/api/users", `{"username":"ravi","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body api.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "User already exists", body.Error)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateUserHandler_MissingFields(t *testing.T) {
	router := setupRouter(new(MockUserRepository), new(MockSessionRepository), staticIssuer{})

	rec := serve(router, http.MethodPost, "/users", `{"username":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateUserHandler_PasswordTooLong(t *testing.T) {
	users := new(MockUserRepository)
	users.On("Exists", mock.Anything, "asha").Return(false, nil)
	router := setupRouter(users, new(MockSessionRepository), staticIssuer{})

	body := `{"username":"asha","password":"` + strings.Repeat("p", 80) + `"}`
	rec := serve(router, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp api.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.ErrCodeInvalidInput, resp.Code)
	users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoginHandler(t *testing.T) {
	hash, err := NewPasswordManager(bcrypt.MinCost).HashPassword("pw")
	require.NoError(t, err)

	users := new(MockUserRepository)
	users.On("GetByUsername", mock.Anything, "asha").
		Return(&types.User{ID: 4, Username: "asha", PasswordHash: hash, UserType: "nurse"}, nil)
	users.On("GetByUsername", mock.Anything, "ghost").
		Return(nil, types.NewNotFoundError(types.ErrCodeInvalidCredentials, "User not found"))

	sessions := new(MockSessionRepository)
	sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *types.Session) bool {
		return s.Token == "signed-token" && s.UserID == "4" && s.Username == "asha"
	})).Return(nil)

	router := setupRouter(users, sessions, staticIssuer{token: "signed-token"})

	rec := serve(router, http.MethodPost, "/api/login", `{"username":"asha","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, int64(4), resp.UserID)

	rec = serve(router, http.MethodPost, "/api/login", `{"username":"asha","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(router, http.MethodPost, "/api/login", `{"username":"ghost","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), types.ErrCodeInvalidCredentials)

	sessions.AssertNumberOfCalls(t, "Create", 1)
}

func TestLoginHandler_IssuerFailure(t *testing.T) {
	hash, err := NewPasswordManager(bcrypt.MinCost).HashPassword("pw")
	require.NoError(t, err)

	users := new(MockUserRepository)
	users.On("GetByUsername", mock.Anything, "asha").
		Return(&types.User{ID: 4, Username: "asha", PasswordHash: hash}, nil)

	router := setupRouter(users, new(MockSessionRepository), staticIssuer{err: errors.New("no key")})

	rec := serve(router, http.MethodPost, "/api/login", `{"username":"asha","password":"pw"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "no key")
}
