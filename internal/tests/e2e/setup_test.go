package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/app"
	"github.com/you/accountsvc/internal/mocks"
	testconfig "github.com/you/accountsvc/internal/tests/config"
)

const testPassword = "e2e-Passw0rd!"

var otpPattern = regexp.MustCompile(`<h2>(\w+)</h2>`)

// TestSuite runs the service against the live Postgres and Redis
type TestSuite struct {
	Container *app.Container
	Server    *httptest.Server
	Mailbox   *mocks.MockNotificationService
}

func NewTestSuite(t *testing.T) *TestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testconfig.LoadTestConfig(t)
	mailbox := mocks.NewMockNotificationService()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	container, err := app.NewContainer(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)),
		app.WithNotificationService(mailbox))
	require.NoError(t, err, "live stores unreachable")

	server := httptest.NewServer(container.Router)
	t.Cleanup(func() {
		server.Close()
		_ = container.Close()
	})

	return &TestSuite{Container: container, Server: server, Mailbox: mailbox}
}

// UniqueEmail returns an address no other run uses and removes its account afterwards
func (s *TestSuite) UniqueEmail(t *testing.T) string {
	t.Helper()
	email := "e2e-" + uuid.NewString()[:8] + "@example.com"
	t.Cleanup(func() {
		ctx := context.Background()
		user, err := s.Container.UserRepo.FindByEmail(ctx, email)
		if err != nil {
			return
		}
		_, _ = s.Container.UserRepo.DeleteByID(ctx, user.ID)
	})
	return email
}

// Client returns a browser-like client that keeps cookies and does not follow redirects
func (s *TestSuite) Client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// LastOTP extracts the code from the newest mail sent to email
func (s *TestSuite) LastOTP(t *testing.T, email string) string {
	t.Helper()
	sent := s.Mailbox.Sent()
	for i := len(sent) - 1; i >= 0; i-- {
		if sent[i].To != email {
			continue
		}
		m := otpPattern.FindStringSubmatch(sent[i].HTML)
		require.Len(t, m, 2, "no code in mail body")
		return m[1]
	}
	t.Fatalf("no mail sent to %s", email)
	return ""
}

func (s *TestSuite) PostForm(t *testing.T, client *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(s.Server.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *TestSuite) Do(t *testing.T, client *http.Client, method, path, token, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// Register signs up and verifies a fresh account
func (s *TestSuite) Register(t *testing.T, client *http.Client) string {
	t.Helper()
	email := s.UniqueEmail(t)
	resp := s.PostForm(t, client, "/auth/register", url.Values{
		"name": {"E2E User"}, "email": {email}, "password": {testPassword},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = s.Do(t, client, http.MethodGet,
		"/auth/verify-otp?email="+url.QueryEscape(email)+"&otp="+s.LastOTP(t, email), "", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	return email
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	msg, _ := decode(t, resp)["error"].(string)
	return msg
}

func dataField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data envelope")
	return data[key]
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrUserNotFound)
}
