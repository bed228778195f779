package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/boruta-admin/internal/oauth"
	"github.com/naveenspark/boruta-admin/internal/session"
	"github.com/naveenspark/boruta-admin/internal/storage"
	"github.com/naveenspark/boruta-admin/pkg/client"
	"github.com/naveenspark/boruta-admin/pkg/domain"
)

// setupEnv points the CLI at baseURL with an isolated home directory and
// returns the storage file path. With a token, a session valid for an hour
// is stored.
func setupEnv(t *testing.T, baseURL, token string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "storage.json")
	t.Setenv("BORUTA_ADMIN_STORAGE_PATH", path)
	t.Setenv("BORUTA_ADMIN_BASE_URL", baseURL)
	t.Setenv("BORUTA_ADMIN_CLIENT_ID", "")

	if token != "" {
		store, err := storage.OpenFile(path)
		if err != nil {
			t.Fatal(err)
		}
		expiresAt := time.Now().Add(time.Hour).UnixMilli()
		if err := store.Set(session.KeyAccessToken, token); err != nil {
			t.Fatal(err)
		}
		if err := store.Set(session.KeyTokenExpiresAt, strconv.FormatInt(expiresAt, 10)); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"data": data}) //nolint:errcheck
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not authenticated", fmt.Errorf("%w: run login", session.ErrNotAuthenticated), exitAuthRequired},
		{"authentication refused", &session.AuthenticationError{Code: "access_denied"}, exitAuthRequired},
		{"unauthorized", fmt.Errorf("client.ListScopes: %w", &client.HTTPError{StatusCode: 401}), exitAuthRequired},
		{"validation", domain.ValidationErrors{"name": {"can't be blank"}}, exitInvalid},
		{"wrapped validation", &client.HTTPError{StatusCode: 422, Errors: domain.ValidationErrors{"name": {"x"}}}, exitInvalid},
		{"server error", &client.HTTPError{StatusCode: 500}, exitError},
		{"other", errors.New("boom"), exitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{-time.Second, "0s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m05s"},
		{2*time.Hour + 7*time.Minute, "2h07m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestScopesListJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scopes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		writeData(w, http.StatusOK, []map[string]any{
			{"id": "1", "name": "users:read", "public": true},
			{"id": "2", "name": "users:write", "public": false, "created_at": "ignored"},
		})
	}))
	defer srv.Close()
	setupEnv(t, srv.URL, "tok")

	out, _, err := execute(t, "scopes", "list", "-o", "json")
	if err != nil {
		t.Fatalf("scopes list: %v", err)
	}
	var got []domain.ScopePayload
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	want := []domain.ScopePayload{
		{ID: "1", Name: "users:read", Public: true},
		{ID: "2", Name: "users:write"},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("scopes = %+v, want %+v", got, want)
	}
}

func TestScopesListTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, []map[string]any{{"id": "1", "name": "users:read", "public": true}})
	}))
	defer srv.Close()
	setupEnv(t, srv.URL, "tok")

	out, _, err := execute(t, "scopes", "list")
	if err != nil {
		t.Fatalf("scopes list: %v", err)
	}
	for _, want := range []string{"NAME", "users:read", "yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestScopesListRequiresSession(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1", "")
	_, _, err := execute(t, "scopes", "list")
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if exitCode(err) != exitAuthRequired {
		t.Errorf("exit code = %d, want %d", exitCode(err), exitAuthRequired)
	}
}

func TestScopesRejectsUnknownFormat(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1", "tok")
	_, _, err := execute(t, "scopes", "list", "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "unknown output format") {
		t.Errorf("err = %v, want unknown output format", err)
	}
}

func TestScopesCreateValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"scope":{"id":null,"name":"","public":false}}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"errors":{"name":["can't be blank"]}}`) //nolint:errcheck
	}))
	defer srv.Close()
	setupEnv(t, srv.URL, "tok")

	_, stderr, err := execute(t, "scopes", "create")
	if exitCode(err) != exitInvalid {
		t.Fatalf("exit code = %d (err %v), want %d", exitCode(err), err, exitInvalid)
	}
	if !strings.Contains(stderr, "name can't be blank") {
		t.Errorf("expected field error on stderr, got %q", stderr)
	}
}

func TestScopesUpdateAppliesChangedFlags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/scopes/1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		switch r.Method {
		case http.MethodGet:
			writeData(w, http.StatusOK, map[string]any{"id": "1", "name": "old", "public": true})
		case http.MethodPatch:
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"scope":{"id":"1","name":"new","public":true}}` {
				t.Errorf("body = %s", body)
			}
			writeData(w, http.StatusOK, map[string]any{"id": "1", "name": "new", "public": true})
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()
	setupEnv(t, srv.URL, "tok")

	out, _, err := execute(t, "scopes", "update", "1", "--name", "new", "-o", "yaml")
	if err != nil {
		t.Fatalf("scopes update: %v", err)
	}
	if !strings.Contains(out, "name: new") || !strings.Contains(out, "public: true") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestScopesDelete(t *testing.T) {
	var deleted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/api/scopes/7" {
			deleted = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
		t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
	}))
	defer srv.Close()
	setupEnv(t, srv.URL, "tok")

	out, _, err := execute(t, "scopes", "delete", "7")
	if err != nil {
		t.Fatalf("scopes delete: %v", err)
	}
	if !deleted || !strings.Contains(out, "Scope 7 deleted") {
		t.Errorf("deleted=%v output=%q", deleted, out)
	}
}

func TestClientsCreateSendsChecklistOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Client domain.ClientPayload `json:"client"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		got := strings.Join(body.Client.SupportedGrantTypes, ",")
		if got != "authorization_code,refresh_token" {
			t.Errorf("supported_grant_types = %s", got)
		}
		if len(body.Client.RedirectURIs) != 1 || body.Client.RedirectURIs[0] != "https://app.example/cb" {
			t.Errorf("redirect_uris = %v", body.Client.RedirectURIs)
		}
		if !body.Client.PKCE {
			t.Error("expected pkce=true")
		}
		writeData(w, http.StatusCreated, map[string]any{
			"id":                    "c1",
			"redirect_uris":         body.Client.RedirectURIs,
			"supported_grant_types": body.Client.SupportedGrantTypes,
			"pkce":                  true,
		})
	}))
	defer srv.Close()
	setupEnv(t, srv.URL, "tok")

	out, _, err := execute(t, "clients", "create",
		"--redirect-uri", "https://app.example/cb",
		"--grant-type", "refresh_token", "--grant-type", "authorization_code",
		"--pkce", "-o", "yaml")
	if err != nil {
		t.Fatalf("clients create: %v", err)
	}
	if !strings.Contains(out, "id: c1") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestClientsCreateUnknownGrantType(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1", "tok")
	_, _, err := execute(t, "clients", "create", "--grant-type", "device_code")
	if err == nil || !strings.Contains(err.Error(), `unknown grant type "device_code"`) {
		t.Errorf("err = %v", err)
	}
}

func TestClientsValidateDuplicateScopes(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1", "")
	_, stderr, err := execute(t, "clients", "validate", "--authorized-scope", "s1", "--authorized-scope", "s1")
	if exitCode(err) != exitInvalid {
		t.Fatalf("exit code = %d (err %v), want %d", exitCode(err), err, exitInvalid)
	}
	if !strings.Contains(stderr, "authorized_scopes must be unique") {
		t.Errorf("stderr = %q", stderr)
	}
}

func TestClientsValidateOK(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1", "")
	out, _, err := execute(t, "clients", "validate", "--authorized-scope", "s1", "--authorized-scope", "s2")
	if err != nil {
		t.Fatalf("clients validate: %v", err)
	}
	if !strings.Contains(out, "Client is valid.") {
		t.Errorf("output = %q", out)
	}
}

func TestStatus(t *testing.T) {
	t.Run("not authenticated", func(t *testing.T) {
		setupEnv(t, "http://127.0.0.1:1", "")
		out, _, err := execute(t, "status")
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range []string{"Not authenticated", "boruta-admin login", "home"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})
	t.Run("authenticated", func(t *testing.T) {
		setupEnv(t, "http://127.0.0.1:1", "tok")
		out, _, err := execute(t, "status")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "Authenticated") || !strings.Contains(out, "Expires") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestLogoutClearsToken(t *testing.T) {
	path := setupEnv(t, "http://127.0.0.1:1", "tok")
	out, _, err := execute(t, "logout")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Logged out.") {
		t.Errorf("output = %q", out)
	}
	store, err := storage.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if tok, ok := store.Get(session.KeyAccessToken); ok {
		t.Errorf("token still stored: %q", tok)
	}
}

func TestLoginRequiresClientID(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1", "")
	_, _, err := execute(t, "login")
	if err == nil || !strings.Contains(err.Error(), "client_id") {
		t.Errorf("err = %v, want client_id required", err)
	}
}

func TestRootWithoutSessionPrintsOverview(t *testing.T) {
	setupEnv(t, "http://127.0.0.1:1", "")
	out, _, err := execute(t)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "boruta-admin login") || !strings.Contains(out, "Commands") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTUIRejectedTokenPrintsHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	setupEnv(t, srv.URL, "tok")

	out, _, err := execute(t, "tui")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "To sign in: boruta-admin login") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

// queueAuthorizer replays authorization responses.
type queueAuthorizer struct {
	responses []oauth.Response
	calls     int
}

func (q *queueAuthorizer) LoginURL() string { return "http://auth.example/oauth/authorize" }

func (q *queueAuthorizer) Callback(context.Context) (oauth.Response, error) {
	resp := q.responses[q.calls]
	q.calls++
	return resp, nil
}

func (q *queueAuthorizer) OnSilentRefresh(func(oauth.Response)) {}

func TestAwaitCallbackRetriesRefusals(t *testing.T) {
	refused := oauth.Response{Error: "access_denied"}
	granted := oauth.Response{AccessToken: "tok", ExpiresIn: 3600}

	t.Run("granted on third try", func(t *testing.T) {
		q := &queueAuthorizer{responses: []oauth.Response{refused, refused, granted}}
		m, err := session.New(session.Options{Store: storage.NewMemory(), Authorizer: q})
		if err != nil {
			t.Fatal(err)
		}
		if err := awaitCallback(context.Background(), m); err != nil {
			t.Fatalf("awaitCallback: %v", err)
		}
		if q.calls != 3 || !m.IsAuthenticated() {
			t.Errorf("calls=%d authenticated=%v", q.calls, m.IsAuthenticated())
		}
	})

	t.Run("gives up", func(t *testing.T) {
		q := &queueAuthorizer{responses: []oauth.Response{refused, refused, refused, granted}}
		m, err := session.New(session.Options{Store: storage.NewMemory(), Authorizer: q})
		if err != nil {
			t.Fatal(err)
		}
		err = awaitCallback(context.Background(), m)
		var authErr *session.AuthenticationError
		if !errors.As(err, &authErr) || authErr.Code != "access_denied" {
			t.Fatalf("err = %v, want access_denied", err)
		}
		if q.calls != maxLoginAttempts {
			t.Errorf("calls = %d, want %d", q.calls, maxLoginAttempts)
		}
	})
}
