package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"

	"parkingapp/internal/app"
	"parkingapp/internal/config"
	"parkingapp/internal/security"
	"parkingapp/internal/shared/testutil"
	"parkingapp/internal/store"
	"parkingapp/pkg/contracts/events"
)

// GatewayFlowTestSuite drives complete user journeys through the wired
// gateway: HTTP API, security gate, fake backend and the state stream.
type GatewayFlowTestSuite struct {
	suite.Suite
	fake   *testutil.FakeBackend
	app    *app.Application
	server *httptest.Server
	cancel context.CancelFunc
	logs   *testutil.BufferedSlogHandler
	token  string
}

func (s *GatewayFlowTestSuite) SetupTest() {
	logger, logs := testutil.NewTestLogger(s.T())
	s.logs = logs
	s.fake = testutil.NewFakeBackend(s.T())
	s.token = s.fake.Fixtures.Session().Token

	cfg := config.Default()
	cfg.Backend.BaseURL = s.fake.URL()
	cfg.Backend.Timeout = 2 * time.Second
	cfg.Security.RateLimit.Enabled = false
	cfg.Security.Oracle.Provider = config.OracleProviderLocal
	cfg.Security.Policies = map[string]config.PolicyConfig{
		"login":          {Attempts: 3, Window: time.Hour},
		"payment-submit": {Attempts: 1, Window: time.Hour},
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	application, err := app.NewApplication(ctx, cfg, logger)
	s.Require().NoError(err)
	s.app = application

	go application.WebSocketHub.Run(ctx)
	s.server = httptest.NewServer(application.Router)
}

func (s *GatewayFlowTestSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
	s.NoError(s.app.Gate.Close())
	s.NoError(s.app.OTelProviders.Shutdown(context.Background()))
}

func (s *GatewayFlowTestSuite) do(method, path, body string, authed bool) (int, map[string]any) {
	token := ""
	if authed {
		token = s.token
	}
	return s.doAs(method, path, body, token)
}

// doAs sends the request with token as its bearer credential, or none if empty
func (s *GatewayFlowTestSuite) doAs(method, path, body, token string) (int, map[string]any) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (integration)")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var out map[string]any
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 {
		s.Require().NoError(json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *GatewayFlowTestSuite) login() {
	status, body := s.do(http.MethodPost, "/api/auth/login",
		`{"email":"driver@example.com","password":"`+testutil.FakePassword+`"}`, false)
	s.Require().Equal(http.StatusOK, status, body)
}

// session returns the state held for token, failing if there is none
func (s *GatewayFlowTestSuite) session(token string) store.Snapshot {
	st, ok := s.app.Sessions.Lookup(token)
	s.Require().True(ok, "no open session")
	return st.Snapshot()
}

func (s *GatewayFlowTestSuite) dial(token string) (*gorilla.Conn, *http.Response, error) {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return gorilla.DefaultDialer.Dial(url, header)
}

func (s *GatewayFlowTestSuite) dialStream() *gorilla.Conn {
	conn, _, err := s.dial(s.token)
	s.Require().NoError(err)
	return conn
}

// waitForSnapshot reads the stream until match accepts a snapshot
func (s *GatewayFlowTestSuite) waitForSnapshot(conn *gorilla.Conn, match func(store.Snapshot) bool) store.Snapshot {
	deadline := time.Now().Add(5 * time.Second)
	s.Require().NoError(conn.SetReadDeadline(deadline))
	for {
		var msg events.Message
		s.Require().NoError(conn.ReadJSON(&msg), "stream ended before the expected snapshot")
		if msg.Type != events.MessageTypeSnapshot {
			continue
		}
		raw, err := json.Marshal(msg.Data)
		s.Require().NoError(err)
		var snap store.Snapshot
		s.Require().NoError(json.Unmarshal(raw, &snap))
		if match(snap) {
			return snap
		}
	}
}

func (s *GatewayFlowTestSuite) TestPaymentFlow() {
	s.login()
	conn := s.dialStream()
	defer conn.Close()

	s.waitForSnapshot(conn, func(snap store.Snapshot) bool { return snap.Auth.Data.IsAuthenticated })

	status, body := s.do(http.MethodGet, "/api/tickets?status=unpaid", "", true)
	s.Require().Equal(http.StatusOK, status)
	s.Len(body["data"], 1)

	payment := `{"card_number":"4539 5787 6362 1486","expiry_month":12,"expiry_year":2030,
		"cvv":"123","cardholder_name":"Jordan Rivera","amount_cents":6500,"billing_zip":"94105"}`
	status, body = s.do(http.MethodPost, "/api/tickets/tkt-1001/pay", payment, true)
	s.Require().Equal(http.StatusOK, status, body)

	snap := s.waitForSnapshot(conn, func(snap store.Snapshot) bool { return snap.Tickets.Data.LastPayment != nil })
	s.Equal("tkt-1001", snap.Tickets.Data.LastPayment.TicketID)
	s.False(snap.Tickets.IsLoading)

	sent := s.fake.RequestCount()
	status, body = s.do(http.MethodPost, "/api/tickets/tkt-1001/pay", payment, true)
	s.Equal(http.StatusTooManyRequests, status)
	s.Equal(security.MsgTooManyAttempts, body["detail"])
	s.Equal(sent, s.fake.RequestCount(), "a blocked payment never reaches the backend")
	s.False(s.logs.ContainsText("4539 5787 6362 1486"), "card numbers are never logged")
}

func (s *GatewayFlowTestSuite) TestLoginLockout() {
	bad := `{"email":"driver@example.com","password":"Wrong!Pass9"}`
	for i := 0; i < 3; i++ {
		status, _ := s.do(http.MethodPost, "/api/auth/login", bad, false)
		s.Equal(http.StatusUnauthorized, status)
	}

	status, body := s.do(http.MethodPost, "/api/auth/login",
		`{"email":"driver@example.com","password":"`+testutil.FakePassword+`"}`, false)
	s.Equal(http.StatusTooManyRequests, status)
	s.Equal(security.MsgTooManyAttempts, body["detail"])
	s.Zero(s.app.Sessions.Len(), "failed logins leave no session behind")
	s.False(s.logs.ContainsText("Wrong!Pass9"), "passwords are never logged")
}

func (s *GatewayFlowTestSuite) TestLogoutClearsState() {
	s.login()
	s.True(s.session(s.token).Auth.Data.IsAuthenticated)
	conn := s.dialStream()
	defer conn.Close()
	s.waitForSnapshot(conn, func(snap store.Snapshot) bool { return snap.Auth.Data.IsAuthenticated })

	status, _ := s.do(http.MethodPost, "/api/auth/logout", "", true)
	s.Require().Equal(http.StatusOK, status)
	s.waitForSnapshot(conn, func(snap store.Snapshot) bool { return !snap.Auth.Data.IsAuthenticated })

	status, _ = s.do(http.MethodGet, "/api/state", "", true)
	s.Equal(http.StatusUnauthorized, status)
	status, _ = s.do(http.MethodGet, "/api/auth/session", "", true)
	s.Equal(http.StatusUnauthorized, status)
}

func (s *GatewayFlowTestSuite) TestSessionsAreIsolated() {
	s.login()
	driver := s.fake.Fixtures.User().Email

	anonymous := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/state"},
		{http.MethodGet, "/api/auth/session"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodGet, "/api/profile"},
	}
	for _, tt := range anonymous {
		status, body := s.doAs(tt.method, tt.path, "", "")
		s.Equal(http.StatusUnauthorized, status, tt.path)
		s.NotContains(fmt.Sprint(body), driver, tt.path)
	}

	_, resp, err := s.dial("")
	s.Require().Error(err)
	s.Require().NotNil(resp)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	s.True(s.session(s.token).Auth.Data.IsAuthenticated, "anonymous sign-out leaves the driver signed in")

	reg := s.fake.Fixtures.Registration()
	status, body := s.do(http.MethodPost, "/api/auth/signup", fmt.Sprintf(
		`{"email":%q,"password":%q,"first_name":%q,"last_name":%q,"phone":%q}`,
		reg.Email, reg.Password, reg.FirstName, reg.LastName, reg.Phone), false)
	s.Require().Equal(http.StatusCreated, status, body)
	other, _ := body["data"].(map[string]any)["token"].(string)
	s.Require().NotEmpty(other)
	s.Require().NotEqual(s.token, other)

	status, body = s.doAs(http.MethodGet, "/api/state", "", other)
	s.Require().Equal(http.StatusOK, status, body)
	user := body["auth"].(map[string]any)["data"].(map[string]any)["user"].(map[string]any)
	s.Equal(reg.Email, user["email"])
	s.NotContains(fmt.Sprint(body), driver)

	status, _ = s.doAs(http.MethodPost, "/api/auth/logout", "", other)
	s.Require().Equal(http.StatusOK, status)
	s.True(s.session(s.token).Auth.Data.IsAuthenticated, "one user's sign-out leaves the other signed in")
	s.Equal(driver, s.session(s.token).Auth.Data.User.Email)
}

func (s *GatewayFlowTestSuite) TestDisputeWithEvidence() {
	s.login()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "meter-photo.png")
	s.Require().NoError(err)
	_, err = part.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 128)...))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/api/profile/documents", &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	var uploaded struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&uploaded))
	resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Require().NotEmpty(uploaded.Data.ID)

	dispute := `{"reason":"The meter was broken and would not accept payment.","document_ids":["` + uploaded.Data.ID + `"]}`
	status, body := s.do(http.MethodPost, "/api/tickets/tkt-1001/dispute", dispute, true)
	s.Require().Equal(http.StatusCreated, status, body)

	tk, ok := s.fake.Ticket("tkt-1001")
	s.Require().True(ok)
	s.Equal("disputed", string(tk.Status))
	s.Len(s.session(s.token).Profile.Data.Documents, 1)
}

func TestGatewayFlowTestSuite(t *testing.T) {
	suite.Run(t, new(GatewayFlowTestSuite))
}
