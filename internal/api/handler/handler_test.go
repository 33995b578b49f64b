package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"ams-server/internal/api/middleware"
	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/schedule"
	"ams-server/internal/service"
	pkgerrors "ams-server/pkg/errors"
	"ams-server/pkg/jwt"
	"ams-server/pkg/response"
	"ams-server/pkg/validate"
)

const (
	testAcademyID = "7a1f4b2e-5c3d-4e6f-8a9b-0c1d2e3f4a5b"
	testUserID    = "0b9e8d7c-6b5a-4f3e-9d2c-1b0a9f8e7d6c"
	testPlayerID  = "3c2b1a09-8f7e-4d6c-b5a4-392817160504"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validate.Register(); err != nil {
		panic(err)
	}
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	loginIP       string
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutClaims  *jwt.Claims
	logoutToken   string
	logoutErr     error
	meResult      *dto.UserDetailResponse
	meErr         error
	changePassErr error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest, clientIP string) (*dto.TokenResponse, error) {
	m.loginIP = clientIP
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, claims *jwt.Claims, refreshToken string) error {
	m.logoutClaims = claims
	m.logoutToken = refreshToken
	return m.logoutErr
}
func (m *mockAuthService) Me(_ context.Context, _ string) (*dto.UserDetailResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockAuthService) ChangePassword(_ context.Context, _ string, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}

// ── Mock UserService ──

type mockUserService struct {
	createAcademy string
	createResult  *dto.UserResponse
	createErr     error
	listResult    []dto.UserResponse
	listTotal     int64
	updateErr     error
	deleteErr     error
	parseRows     []service.ImportUserRow
	parseErr      error
	importResult  *dto.ImportUserResponse
	importErr     error
}

func (m *mockUserService) CreateUser(_ context.Context, academyID string, _ *dto.CreateUserRequest, _ string) (*dto.UserResponse, error) {
	m.createAcademy = academyID
	return m.createResult, m.createErr
}
func (m *mockUserService) GetByID(_ context.Context, _, id string) (*dto.UserResponse, error) {
	return &dto.UserResponse{ID: id}, nil
}
func (m *mockUserService) List(_ context.Context, _ string, _ *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	return m.listResult, m.listTotal, nil
}
func (m *mockUserService) Update(_ context.Context, _, id string, _ *dto.UpdateUserRequest, _ string) (*dto.UserResponse, error) {
	return &dto.UserResponse{ID: id}, m.updateErr
}
func (m *mockUserService) Delete(_ context.Context, _, _, _ string) error {
	return m.deleteErr
}
func (m *mockUserService) ResetPassword(_ context.Context, _, _, _ string) (*dto.ResetPasswordResponse, error) {
	return &dto.ResetPasswordResponse{TempPassword: "Temp12345a"}, nil
}
func (m *mockUserService) ParseImportFile(_ io.Reader) ([]service.ImportUserRow, error) {
	return m.parseRows, m.parseErr
}
func (m *mockUserService) ImportUsers(_ context.Context, _ string, _ []service.ImportUserRow, _ string) (*dto.ImportUserResponse, error) {
	return m.importResult, m.importErr
}

// ── Mock BatchService ──

type mockBatchService struct {
	result    *dto.BatchResponse
	err       error
	updateErr error
}

func (m *mockBatchService) Create(_ context.Context, _ string, _ *dto.CreateBatchRequest, _ string) (*dto.BatchResponse, error) {
	return m.result, m.err
}
func (m *mockBatchService) Get(_ context.Context, _, _ string) (*dto.BatchResponse, error) {
	return m.result, m.err
}
func (m *mockBatchService) List(_ context.Context, _ string) ([]dto.BatchResponse, error) {
	return nil, m.err
}
func (m *mockBatchService) Update(_ context.Context, _, _ string, _ *dto.UpdateBatchRequest, _ string) (*dto.BatchResponse, error) {
	return m.result, m.updateErr
}
func (m *mockBatchService) Delete(_ context.Context, _, _, _ string) error {
	return m.err
}
func (m *mockBatchService) ListPlayers(_ context.Context, _, _ string) ([]dto.PlayerResponse, error) {
	return nil, m.err
}

// ── Mock PlayerService ──

type mockPlayerService struct {
	result    *dto.PlayerResponse
	err       error
	history   []dto.PerformanceResponse
	lastLimit int
}

func (m *mockPlayerService) Create(_ context.Context, _ string, _ *dto.CreatePlayerRequest, _ string) (*dto.PlayerResponse, error) {
	return m.result, m.err
}
func (m *mockPlayerService) Get(_ context.Context, _, _ string) (*dto.PlayerResponse, error) {
	return m.result, m.err
}
func (m *mockPlayerService) List(_ context.Context, _ string) ([]dto.PlayerResponse, error) {
	return nil, m.err
}
func (m *mockPlayerService) Update(_ context.Context, _, _ string, _ *dto.UpdatePlayerRequest, _ string) (*dto.PlayerResponse, error) {
	return m.result, m.err
}
func (m *mockPlayerService) Delete(_ context.Context, _, _, _ string) error {
	return m.err
}
func (m *mockPlayerService) UpdateMetrics(_ context.Context, _, _ string, _ *dto.UpdateMetricsRequest, _ string) (*dto.PlayerResponse, error) {
	return m.result, m.err
}
func (m *mockPlayerService) UpdateMatchPoints(_ context.Context, _, _ string, _ *dto.UpdateMatchPointsRequest, _ string) (*dto.PlayerResponse, error) {
	return m.result, m.err
}
func (m *mockPlayerService) ListPerformance(_ context.Context, _, _ string, limit int) ([]dto.PerformanceResponse, error) {
	m.lastLimit = limit
	return m.history, m.err
}
func (m *mockPlayerService) RecordTraining(_ context.Context, _, _ string, _ service.TrainingEntry, _ string) error {
	return m.err
}

// ── Mock SessionService ──

type mockSessionService struct {
	view        *dto.SessionViewResponse
	session     *dto.SessionResponse
	list        *dto.SessionListResponse
	err         error
	importBody  []byte
	importBatch string
	importRes   *dto.ImportResult
}

func (m *mockSessionService) Create(_ context.Context, _ string, _ *dto.CreateSessionRequest, _ string) (*dto.SessionViewResponse, error) {
	return m.view, m.err
}
func (m *mockSessionService) Get(_ context.Context, _, _ string) (*dto.SessionViewResponse, error) {
	return m.view, m.err
}
func (m *mockSessionService) List(_ context.Context, _ string, _ *dto.SessionListRequest) (*dto.SessionListResponse, error) {
	return m.list, m.err
}
func (m *mockSessionService) ListOccurrences(_ context.Context, _, _ string) ([]dto.SessionResponse, error) {
	return nil, m.err
}
func (m *mockSessionService) SyncOccurrences(_ context.Context, _, _, _ string) (*dto.SyncResult, error) {
	return &dto.SyncResult{}, m.err
}
func (m *mockSessionService) Update(_ context.Context, _, _ string, _ *dto.UpdateSessionRequest, _ string) (*dto.SessionViewResponse, error) {
	return m.view, m.err
}
func (m *mockSessionService) Delete(_ context.Context, _, _, _ string) error {
	return m.err
}
func (m *mockSessionService) MarkAttendance(_ context.Context, _, _ string, _ *dto.MarkAttendanceRequest, _ string) (*dto.SessionResponse, error) {
	return m.session, m.err
}
func (m *mockSessionService) BulkMarkAttendance(_ context.Context, _, _ string, _ *dto.BulkAttendanceRequest, _ string) (*dto.SessionResponse, error) {
	return m.session, m.err
}
func (m *mockSessionService) UpdateMetrics(_ context.Context, _, _ string, _ *dto.SessionMetricsRequest, _ string) (*dto.SessionResponse, error) {
	return m.session, m.err
}
func (m *mockSessionService) Import(_ context.Context, _ string, body []byte, _ string) (*dto.ImportResult, error) {
	m.importBody = body
	return m.importRes, m.err
}
func (m *mockSessionService) ImportCalendar(_ context.Context, _ string, reader io.Reader, batchID, _ string) (*dto.ImportResult, error) {
	m.importBody, _ = io.ReadAll(reader)
	m.importBatch = batchID
	return m.importRes, m.err
}
func (m *mockSessionService) SyncStatuses(_ context.Context) (int, error) {
	return 0, m.err
}

// ── Mock FinanceService ──

type mockFinanceService struct {
	list  []dto.TransactionResponse
	total int64
	err   error
}

func (m *mockFinanceService) Create(_ context.Context, _ string, _ *dto.CreateTransactionRequest, _ string) (*dto.TransactionResponse, error) {
	return &dto.TransactionResponse{ID: "tx-1"}, m.err
}
func (m *mockFinanceService) List(_ context.Context, _ string, _ *dto.TransactionListRequest) ([]dto.TransactionResponse, int64, error) {
	return m.list, m.total, m.err
}
func (m *mockFinanceService) Summary(_ context.Context, _ string, _ *dto.TransactionListRequest) (*dto.FinanceSummary, error) {
	return &dto.FinanceSummary{}, m.err
}

// ── Mock RatingService ──

type mockRatingService struct {
	err error
}

func (m *mockRatingService) Create(_ context.Context, _ string, _ *dto.CreateRatingRequest, studentID string) (*dto.RatingResponse, error) {
	return &dto.RatingResponse{StudentID: studentID}, m.err
}
func (m *mockRatingService) Summary(_ context.Context, _, coachID string) (*dto.CoachRatingSummary, error) {
	return &dto.CoachRatingSummary{CoachID: coachID}, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	content  []byte
	filename string
	err      error
}

func (m *mockExportService) ExportSessions(_ context.Context, _ string, _ *dto.SessionListRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}
func (m *mockExportService) ExportCalendar(_ context.Context, _ string, _ *dto.SessionListRequest) ([]byte, string, error) {
	return m.content, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

func setupGin() (*gin.Engine, *gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, r := gin.CreateTestContext(w)
	return r, c, w
}

func setAuth(c *gin.Context) {
	setAuthAs(c, model.RoleAdmin)
}

func setAuthAs(c *gin.Context, role string) {
	c.Set(middleware.CtxUserID, testUserID)
	c.Set(middleware.CtxRole, role)
	c.Set(middleware.CtxAcademyID, testAcademyID)
	c.Set(middleware.CtxClaims, &jwt.Claims{UserID: testUserID, Role: role, AcademyID: testAcademyID, TokenType: jwt.TokenTypeAccess})
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// serve 以已认证身份执行单个路由
func serve(method, path, pattern string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	_, _, w := setupGin()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.Handle(method, pattern, func(c *gin.Context) {
		setAuth(c)
		h(c)
	})
	r.ServeHTTP(w, req)
	return w
}

func multipartFile(t *testing.T, field, filename string, content []byte, extra map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		_ = mw.WriteField(k, v)
	}
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    900,
		},
	}
	h := NewAuthHandler(mock)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "coach01",
		Password: "Test1234",
	}))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.8:51234"

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
	if mock.loginIP != "10.0.0.8" {
		t.Errorf("expected client ip 10.0.0.8, got %s", mock.loginIP)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, 11001},
		{"rate limited", service.ErrTooManyAttempts, http.StatusTooManyRequests, 42900},
		{"academy inactive", service.ErrAcademyInactive, http.StatusForbidden, 11002},
		{"unexpected", errors.New("db down"), http.StatusInternalServerError, 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{loginErr: tt.err})

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{Username: "coach01", Password: "wrong"}))
			req.Header.Set("Content-Type", "application/json")

			r := gin.New()
			r.POST("/auth/login", h.Login)
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected error code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	ok := &mockAuthService{refreshResult: &dto.TokenResponse{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900}}
	w := serve("POST", "/auth/refresh", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old"}), NewAuthHandler(ok).RefreshToken)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	missing := serve("POST", "/auth/refresh", "/auth/refresh", jsonBody(map[string]string{}), NewAuthHandler(&mockAuthService{}).RefreshToken)
	if missing.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing token, got %d", missing.Code)
	}

	expired := serve("POST", "/auth/refresh", "/auth/refresh", jsonBody(dto.RefreshTokenRequest{RefreshToken: "old"}),
		NewAuthHandler(&mockAuthService{refreshErr: jwt.ErrTokenExpired}).RefreshToken)
	if expired.Code != http.StatusUnauthorized || parseResponse(expired).Code != 11003 {
		t.Errorf("expected 401/11003, got %d/%d", expired.Code, parseResponse(expired).Code)
	}
}

func TestAuthHandler_Logout_PassesClaimsAndToken(t *testing.T) {
	mock := &mockAuthService{}
	w := serve("POST", "/auth/logout", "/auth/logout", jsonBody(dto.LogoutRequest{RefreshToken: "refresh-1"}), NewAuthHandler(mock).Logout)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutClaims == nil || mock.logoutClaims.UserID != testUserID {
		t.Errorf("expected claims of %s, got %+v", testUserID, mock.logoutClaims)
	}
	if mock.logoutToken != "refresh-1" {
		t.Errorf("expected refresh-1, got %q", mock.logoutToken)
	}
}

func TestAuthHandler_Logout_EmptyBody(t *testing.T) {
	mock := &mockAuthService{}
	w := serve("POST", "/auth/logout", "/auth/logout", nil, NewAuthHandler(mock).Logout)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.logoutToken != "" {
		t.Errorf("expected empty refresh token, got %q", mock.logoutToken)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	mock := &mockAuthService{meResult: &dto.UserDetailResponse{UserResponse: dto.UserResponse{ID: testUserID}}}
	w := serve("GET", "/auth/me", "/auth/me", nil, NewAuthHandler(mock).Me)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestAuthHandler_Me_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	_, _, w := setupGin()
	req := httptest.NewRequest("GET", "/auth/me", nil)

	r := gin.New()
	r.GET("/auth/me", h.Me)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		newPass    string
		wantStatus int
	}{
		{"success", nil, "New12345", http.StatusOK},
		{"too short", nil, "short", http.StatusBadRequest},
		{"old password wrong", service.ErrOldPasswordWrong, "New12345", http.StatusBadRequest},
		{"same password", service.ErrSamePassword, "New12345", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&mockAuthService{changePassErr: tt.err})
			w := serve("PUT", "/auth/password", "/auth/password", jsonBody(dto.ChangePasswordRequest{
				OldPassword: "Old12345",
				NewPassword: tt.newPass,
			}), h.ChangePassword)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// UserHandler Tests
// ═══════════════════════════════════════════════════════════

func TestUserHandler_CreateUser(t *testing.T) {
	mock := &mockUserService{createResult: &dto.UserResponse{ID: "u-1", Username: "coach01"}}
	w := serve("POST", "/users", "/users", jsonBody(dto.CreateUserRequest{
		Username: "coach01", Name: "王教练", Password: "Pass1234", Role: model.RoleCoach,
	}), NewUserHandler(mock).CreateUser)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.createAcademy != testAcademyID {
		t.Errorf("expected caller academy, got %s", mock.createAcademy)
	}
}

func TestUserHandler_CreateUser_OtherAcademy(t *testing.T) {
	other := "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
	body := dto.CreateUserRequest{Username: "coach01", Name: "王教练", Password: "Pass1234", Role: model.RoleCoach, AcademyID: other}

	tests := []struct {
		name        string
		role        string
		wantStatus  int
		wantAcademy string
	}{
		{"admin forbidden", model.RoleAdmin, http.StatusForbidden, ""},
		{"owner allowed", model.RoleOwner, http.StatusCreated, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockUserService{createResult: &dto.UserResponse{ID: "u-1"}}
			h := NewUserHandler(mock)

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/users", jsonBody(body))
			req.Header.Set("Content-Type", "application/json")
			r := gin.New()
			r.POST("/users", func(c *gin.Context) {
				setAuthAs(c, tt.role)
				h.CreateUser(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if mock.createAcademy != tt.wantAcademy {
				t.Errorf("expected academy %q, got %q", tt.wantAcademy, mock.createAcademy)
			}
		})
	}
}

func TestUserHandler_CreateUser_UsernameExists(t *testing.T) {
	mock := &mockUserService{createErr: service.ErrUsernameExists}
	w := serve("POST", "/users", "/users", jsonBody(dto.CreateUserRequest{
		Username: "coach01", Name: "王教练", Password: "Pass1234", Role: model.RoleCoach,
	}), NewUserHandler(mock).CreateUser)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 12002 {
		t.Errorf("expected error code 12002, got %d", resp.Code)
	}
}

func TestUserHandler_ListUsers_Pagination(t *testing.T) {
	mock := &mockUserService{listResult: []dto.UserResponse{{ID: "u-1"}}, listTotal: 41}
	w := serve("GET", "/users?page=2&page_size=20", "/users", nil, NewUserHandler(mock).ListUsers)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Data.Pagination.TotalPages != 3 || body.Data.Pagination.Page != 2 {
		t.Errorf("expected page 2 of 3, got %+v", body.Data.Pagination)
	}
}

func TestUserHandler_DeleteUser_Self(t *testing.T) {
	mock := &mockUserService{deleteErr: service.ErrUserSelfDelete}
	w := serve("DELETE", "/users/"+testUserID, "/users/:id", nil, NewUserHandler(mock).DeleteUser)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUserHandler_ImportUsers(t *testing.T) {
	tests := []struct {
		name       string
		parseErr   error
		wantStatus int
		wantCode   int
	}{
		{"success", nil, http.StatusOK, 0},
		{"bad header", service.ErrImportBadHeader, http.StatusBadRequest, 12012},
		{"not excel", errors.New("zip: not a valid zip file"), http.StatusBadRequest, 12014},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockUserService{
				parseRows:    []service.ImportUserRow{{Row: 2, Username: "stu01", Name: "学员", Role: model.RoleStudent}},
				parseErr:     tt.parseErr,
				importResult: &dto.ImportUserResponse{Total: 1, Success: 1},
			}
			h := NewUserHandler(mock)
			body, contentType := multipartFile(t, "file", "users.xlsx", []byte("fake"), nil)

			_, _, w := setupGin()
			req := httptest.NewRequest("POST", "/users/import", body)
			req.Header.Set("Content-Type", contentType)
			r := gin.New()
			r.POST("/users/import", func(c *gin.Context) {
				setAuth(c)
				h.ImportUsers(c)
			})
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestUserHandler_ImportUsers_MissingFile(t *testing.T) {
	w := serve("POST", "/users/import", "/users/import", nil, NewUserHandler(&mockUserService{}).ImportUsers)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 12010 {
		t.Errorf("expected error code 12010, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// BatchHandler / PlayerHandler Tests
// ═══════════════════════════════════════════════════════════

func TestBatchHandler_UpdateBatch_VersionConflict(t *testing.T) {
	mock := &mockBatchService{updateErr: pkgerrors.ErrOptimisticLock}
	w := serve("PUT", "/batches/b-1", "/batches/:id", jsonBody(map[string]interface{}{"name": "U12", "version": 1}), NewBatchHandler(mock).UpdateBatch)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestBatchHandler_UpdateBatch_MissingVersion(t *testing.T) {
	w := serve("PUT", "/batches/b-1", "/batches/:id", jsonBody(map[string]interface{}{"name": "U12"}), NewBatchHandler(&mockBatchService{}).UpdateBatch)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBatchHandler_GetBatch_NotFound(t *testing.T) {
	w := serve("GET", "/batches/b-1", "/batches/:id", nil, NewBatchHandler(&mockBatchService{err: service.ErrBatchNotFound}).GetBatch)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 14001 {
		t.Errorf("expected error code 14001, got %d", resp.Code)
	}
}

func TestPlayerHandler_UpdateMetrics_Validation(t *testing.T) {
	mock := &mockPlayerService{result: &dto.PlayerResponse{ID: testPlayerID}}
	h := NewPlayerHandler(mock)

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
	}{
		{"valid", dto.UpdateMetricsRequest{Attributes: dto.AttributesInput{Shooting: 8}, SessionRating: 7}, http.StatusOK},
		{"attribute above 10", map[string]interface{}{"attributes": map[string]float64{"shooting": 11}}, http.StatusBadRequest},
		{"negative rating", map[string]interface{}{"attributes": map[string]float64{"pace": 3}, "session_rating": -1}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve("PUT", "/players/"+testPlayerID+"/metrics", "/players/:id/metrics", jsonBody(tt.body), h.UpdateMetrics)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestPlayerHandler_ListPerformance(t *testing.T) {
	mock := &mockPlayerService{history: []dto.PerformanceResponse{{ID: "p-1"}}}
	h := NewPlayerHandler(mock)

	w := serve("GET", "/players/"+testPlayerID+"/performance?limit=5", "/players/:id/performance", nil, h.ListPerformance)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if mock.lastLimit != 5 {
		t.Errorf("expected limit 5, got %d", mock.lastLimit)
	}

	w = serve("GET", "/players/"+testPlayerID+"/performance?limit=0", "/players/:id/performance", nil, h.ListPerformance)
	if w.Code != http.StatusOK {
		t.Errorf("limit=0 is omitted, expected 200, got %d", w.Code)
	}

	w = serve("GET", "/players/"+testPlayerID+"/performance?limit=500", "/players/:id/performance", nil, h.ListPerformance)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for limit above max, got %d", w.Code)
	}
}

func TestPlayerHandler_GetPlayer_NotFound(t *testing.T) {
	w := serve("GET", "/players/x", "/players/:id", nil, NewPlayerHandler(&mockPlayerService{err: service.ErrPlayerNotFound}).GetPlayer)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SessionHandler Tests
// ═══════════════════════════════════════════════════════════

func validSessionBody() map[string]interface{} {
	return map[string]interface{}{
		"name":               "周训",
		"is_recurring":       true,
		"date":               "2025-03-03",
		"recurring_end_date": "2025-03-31",
		"selected_days":      []string{"Monday", "thursday"},
		"start_time":         "09:00",
		"end_time":           "10:30",
	}
}

func TestSessionHandler_CreateSession(t *testing.T) {
	view := &dto.SessionViewResponse{SessionResponse: dto.SessionResponse{ID: "s-1", Kind: schedule.KindTemplate}, Total: 9}
	h := NewSessionHandler(&mockSessionService{view: view})

	w := serve("POST", "/sessions", "/sessions", jsonBody(validSessionBody()), h.CreateSession)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSessionHandler_CreateSession_Validation(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{})

	tests := []struct {
		name  string
		field string
		value interface{}
	}{
		{"bad start time", "start_time", "9am"},
		{"hour out of range", "end_time", "24:00"},
		{"bad weekday", "selected_days", []string{"Funday"}},
		{"bad date", "date", "03/03/2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := validSessionBody()
			body[tt.field] = tt.value
			w := serve("POST", "/sessions", "/sessions", jsonBody(body), h.CreateSession)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if resp := parseResponse(w); resp.Code != 10001 {
				t.Errorf("expected validation code 10001, got %d", resp.Code)
			}
		})
	}
}

func TestSessionHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"not found", service.ErrSessionNotFound, http.StatusNotFound, 16001},
		{"invalid recurrence", service.ErrInvalidRecurrence, http.StatusBadRequest, 16003},
		{"no occurrences", service.ErrNoOccurrences, http.StatusBadRequest, 16004},
		{"template attendance", service.ErrTemplateNoAttendance, http.StatusBadRequest, 16006},
		{"player not assigned", service.ErrPlayerNotAssigned, http.StatusBadRequest, 16007},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSessionHandler(&mockSessionService{err: tt.err})
			w := serve("PUT", "/sessions/s-1/attendance", "/sessions/:id/attendance", jsonBody(dto.MarkAttendanceRequest{
				PlayerID: testPlayerID, Status: "Present",
			}), h.MarkAttendance)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if resp := parseResponse(w); resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestSessionHandler_MarkAttendance_InvalidStatus(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{})
	w := serve("PUT", "/sessions/s-1/attendance", "/sessions/:id/attendance", jsonBody(dto.MarkAttendanceRequest{
		PlayerID: testPlayerID, Status: "Late",
	}), h.MarkAttendance)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSessionHandler_UpdateSession_Validation(t *testing.T) {
	view := &dto.SessionViewResponse{SessionResponse: dto.SessionResponse{ID: "s-1", Kind: schedule.KindTemplate}}
	h := NewSessionHandler(&mockSessionService{view: view})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"non-uuid batch", `{"assigned_batch_id":"batch-7"}`, http.StatusBadRequest},
		{"clear batch", `{"assigned_batch_id":""}`, http.StatusOK},
		{"uuid batch", `{"assigned_batch_id":"` + testAcademyID + `"}`, http.StatusOK},
		{"bad excluded date", `{"excluded_dates":["2025/03/10"]}`, http.StatusBadRequest},
		{"excluded dates", `{"excluded_dates":["2025-03-10"]}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve("PUT", "/sessions/s-1", "/sessions/:id", strings.NewReader(tt.body), h.UpdateSession)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus == http.StatusBadRequest {
				if resp := parseResponse(w); resp.Code != 10001 {
					t.Errorf("expected validation code 10001, got %d", resp.Code)
				}
			}
		})
	}
}

func TestSessionHandler_ListSessions_StatusFilter(t *testing.T) {
	h := NewSessionHandler(&mockSessionService{list: &dto.SessionListResponse{}})

	if w := serve("GET", "/sessions?status=On-going", "/sessions", nil, h.ListSessions); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := serve("GET", "/sessions?status=Cancelled", "/sessions", nil, h.ListSessions); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown status, got %d", w.Code)
	}
}

func TestSessionHandler_ImportSessions_RawBody(t *testing.T) {
	mock := &mockSessionService{importRes: &dto.ImportResult{Total: 1, Imported: 1}}
	h := NewSessionHandler(mock)

	payload := `[{"id":"legacy-1","name":"周训"}]`
	w := serve("POST", "/sessions/import", "/sessions/import", strings.NewReader(payload), h.ImportSessions)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if string(mock.importBody) != payload {
		t.Errorf("expected raw body passed through, got %s", mock.importBody)
	}

	mock.err = service.ErrInvalidImport
	w = serve("POST", "/sessions/import", "/sessions/import", strings.NewReader(`{}`), h.ImportSessions)
	if resp := parseResponse(w); w.Code != http.StatusBadRequest || resp.Code != 16009 {
		t.Errorf("expected 400/16009, got %d/%d", w.Code, resp.Code)
	}
}

func TestSessionHandler_ImportCalendar(t *testing.T) {
	mock := &mockSessionService{importRes: &dto.ImportResult{Total: 2, Imported: 2}}
	h := NewSessionHandler(mock)
	ics := []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	body, contentType := multipartFile(t, "file", "training.ics", ics, map[string]string{"batch_id": "batch-1"})

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/sessions/import/ics", body)
	req.Header.Set("Content-Type", contentType)
	r := gin.New()
	r.POST("/sessions/import/ics", func(c *gin.Context) {
		setAuth(c)
		h.ImportCalendar(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.importBatch != "batch-1" || !bytes.Equal(mock.importBody, ics) {
		t.Errorf("expected file and batch_id forwarded, got %q / %q", mock.importBatch, mock.importBody)
	}
}

func TestSessionHandler_ImportCalendar_Invalid(t *testing.T) {
	mock := &mockSessionService{err: service.ErrInvalidCalendar}
	h := NewSessionHandler(mock)
	body, contentType := multipartFile(t, "file", "bad.ics", []byte("garbage"), nil)

	_, _, w := setupGin()
	req := httptest.NewRequest("POST", "/sessions/import/ics", body)
	req.Header.Set("Content-Type", contentType)
	r := gin.New()
	r.POST("/sessions/import/ics", func(c *gin.Context) {
		setAuth(c)
		h.ImportCalendar(c)
	})
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 16012 {
		t.Errorf("expected error code 16012, got %d", resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// RecordsHandler Tests
// ═══════════════════════════════════════════════════════════

func newTestRecordsHandler(rating *mockRatingService, finance *mockFinanceService) *RecordsHandler {
	return NewRecordsHandler(rating, nil, nil, finance)
}

func TestRecordsHandler_CreateRating(t *testing.T) {
	h := newTestRecordsHandler(&mockRatingService{}, &mockFinanceService{})
	coachID := "5e4d3c2b-1a09-4f8e-a7d6-c5b4a3928170"

	w := serve("POST", "/ratings", "/ratings", jsonBody(dto.CreateRatingRequest{CoachID: coachID, Rating: 9}), h.CreateRating)
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}

	w = serve("POST", "/ratings", "/ratings", jsonBody(dto.CreateRatingRequest{CoachID: coachID, Rating: 11}), h.CreateRating)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for rating above 10, got %d", w.Code)
	}

	bad := newTestRecordsHandler(&mockRatingService{err: service.ErrInvalidCoach}, &mockFinanceService{})
	w = serve("POST", "/ratings", "/ratings", jsonBody(dto.CreateRatingRequest{CoachID: coachID, Rating: 5}), bad.CreateRating)
	if resp := parseResponse(w); resp.Code != 17001 {
		t.Errorf("expected error code 17001, got %d", resp.Code)
	}
}

func TestRecordsHandler_ListTransactions(t *testing.T) {
	finance := &mockFinanceService{list: []dto.TransactionResponse{{ID: "tx-1"}}, total: 1}
	h := newTestRecordsHandler(&mockRatingService{}, finance)

	w := serve("GET", "/finance/transactions?type=income&from=2025-01-01", "/finance/transactions", nil, h.ListTransactions)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = serve("GET", "/finance/transactions?type=refund", "/finance/transactions", nil, h.ListTransactions)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown type, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportSessions_Success(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx-bytes"), filename: "训练会话_飞驰学院_20250306.xlsx"}
	w := serve("GET", "/export/sessions", "/export/sessions", nil, NewExportHandler(mock).ExportSessions)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != contentTypeXLSX {
		t.Errorf("unexpected content type %s", ct)
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") || strings.Contains(cd, "训练") {
		t.Errorf("expected percent-encoded filename, got %s", cd)
	}
	if w.Body.String() != "xlsx-bytes" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestExportHandler_ExportSessions_NoSessions(t *testing.T) {
	mock := &mockExportService{err: service.ErrExportNoSessions}
	w := serve("GET", "/export/sessions", "/export/sessions", nil, NewExportHandler(mock).ExportSessions)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 18001 {
		t.Errorf("expected error code 18001, got %d", resp.Code)
	}
}

func TestExportHandler_ExportCalendar(t *testing.T) {
	mock := &mockExportService{content: []byte("BEGIN:VCALENDAR"), filename: "sessions.ics"}
	w := serve("GET", "/export/calendar", "/export/calendar", nil, NewExportHandler(mock).ExportCalendar)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("expected text/calendar, got %s", ct)
	}
}
