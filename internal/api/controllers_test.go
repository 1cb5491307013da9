package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"leverage-core/internal/events"
	"leverage-core/internal/monitor"
	"leverage-core/internal/preset"
	"leverage-core/pkg/db"
)

func newTestAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations: %v", err)
	}

	server := NewServer(
		events.NewBus(),
		database,
		monitor.NewSystemMetrics(),
		[]preset.Preset{
			{ID: "conservative", Name: "Conservative", ExposureMode: "margin", RiskMode: "percent", RiskValue: 1},
		},
		SystemMeta{Language: "en", Version: "test"},
		"test-secret",
		HistoryLimits{DefaultLimit: 50, MaxLimit: 500},
		RateLimits{PerSecond: 1000, Burst: 1000},
	)

	httpServer := httptest.NewServer(server.Router)
	t.Cleanup(func() {
		httpServer.Close()
		_ = database.Close()
	})
	return httpServer
}

func doJSONRequest(t *testing.T, client *http.Client, method, url, token string, payload any, out any) int {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func registerAndLogin(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	client := ts.Client()

	creds := map[string]string{"email": email, "password": "super-secret"}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/auth/register", "", creds, nil); code != http.StatusCreated {
		t.Fatalf("register status=%d", code)
	}

	var login struct {
		Token string `json:"token"`
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/auth/login", "", creds, &login); code != http.StatusOK {
		t.Fatalf("login status=%d", code)
	}
	if login.Token == "" {
		t.Fatal("empty token after login")
	}
	return login.Token
}

func TestCalculateEndpoint(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()

	payload := map[string]any{
		"entry_price":    63250,
		"stop_price":     61800,
		"exposure_mode":  "margin",
		"margin_capital": 5000,
		"risk_mode":      "amount",
		"risk_value":     300,
	}

	var out struct {
		Result struct {
			Ready       bool     `json:"ready"`
			Direction   string   `json:"direction"`
			MaxLeverage *float64 `json:"max_leverage"`
			Warnings    []string `json:"warnings"`
		} `json:"result"`
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/calculate", "", payload, &out); code != http.StatusOK {
		t.Fatalf("calculate status=%d", code)
	}
	if !out.Result.Ready || out.Result.Direction != "Long" {
		t.Fatalf("ready=%v direction=%s, expected ready Long", out.Result.Ready, out.Result.Direction)
	}
	if out.Result.MaxLeverage == nil || *out.Result.MaxLeverage < 2.61 || *out.Result.MaxLeverage > 2.62 {
		t.Fatalf("max_leverage=%v, expected ~2.617", out.Result.MaxLeverage)
	}
	if len(out.Result.Warnings) != 0 {
		t.Fatalf("warnings=%v, expected none", out.Result.Warnings)
	}
}

func TestCalculateReturnsLocalizedWarnings(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()

	payload := map[string]any{"entry_price": 100, "stop_price": 100}

	var out struct {
		Result struct {
			Ready    bool     `json:"ready"`
			Warnings []string `json:"warnings"`
		} `json:"result"`
		WarningMessages map[string]string `json:"warning_messages"`
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/calculate", "", payload, &out); code != http.StatusOK {
		t.Fatalf("calculate status=%d", code)
	}
	if out.Result.Ready {
		t.Fatal("expected not-ready result")
	}
	if len(out.Result.Warnings) != 1 || out.Result.Warnings[0] != "stop_equals_entry" {
		t.Fatalf("warnings=%v, expected [stop_equals_entry]", out.Result.Warnings)
	}
	if out.WarningMessages["stop_equals_entry"] == "" {
		t.Fatal("missing localized message for stop_equals_entry")
	}
}

func TestHistoryRequiresAuth(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()

	if code := doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/history", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("status=%d, expected 401", code)
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/history", "", map[string]any{}, nil); code != http.StatusUnauthorized {
		t.Fatalf("status=%d, expected 401", code)
	}
}

func TestHistoryLifecycle(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()
	token := registerAndLogin(t, ts, "trader@example.com")

	payload := map[string]any{
		"entry_price":    63250,
		"stop_price":     61800,
		"take_profit":    66150,
		"exposure_mode":  "margin",
		"margin_capital": 5000,
		"risk_mode":      "amount",
		"risk_value":     300,
		"note":           "BTC swing idea",
	}

	var saved struct {
		Record struct {
			ID    string `json:"id"`
			Ready bool   `json:"ready"`
			Note  string `json:"note"`
		} `json:"record"`
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/history", token, payload, &saved); code != http.StatusCreated {
		t.Fatalf("save status=%d", code)
	}
	if saved.Record.ID == "" || !saved.Record.Ready {
		t.Fatalf("unexpected saved record: %+v", saved.Record)
	}

	t.Run("list", func(t *testing.T) {
		var records []struct {
			ID string `json:"id"`
		}
		if code := doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/history", token, nil, &records); code != http.StatusOK {
			t.Fatalf("list status=%d", code)
		}
		if len(records) != 1 || records[0].ID != saved.Record.ID {
			t.Fatalf("records=%+v, expected the saved record", records)
		}
	})

	t.Run("get", func(t *testing.T) {
		var record struct {
			ID   string `json:"id"`
			Note string `json:"note"`
		}
		url := fmt.Sprintf("%s/api/history/%s", ts.URL, saved.Record.ID)
		if code := doJSONRequest(t, client, http.MethodGet, url, token, nil, &record); code != http.StatusOK {
			t.Fatalf("get status=%d", code)
		}
		if record.Note != "BTC swing idea" {
			t.Fatalf("note=%q, expected saved note", record.Note)
		}
	})

	t.Run("isolation", func(t *testing.T) {
		otherToken := registerAndLogin(t, ts, "other@example.com")
		url := fmt.Sprintf("%s/api/history/%s", ts.URL, saved.Record.ID)
		if code := doJSONRequest(t, client, http.MethodGet, url, otherToken, nil, nil); code != http.StatusNotFound {
			t.Fatalf("status=%d, expected 404 for foreign record", code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		url := fmt.Sprintf("%s/api/history/%s", ts.URL, saved.Record.ID)
		if code := doJSONRequest(t, client, http.MethodDelete, url, token, nil, nil); code != http.StatusOK {
			t.Fatalf("delete status=%d", code)
		}
		if code := doJSONRequest(t, client, http.MethodGet, url, token, nil, nil); code != http.StatusNotFound {
			t.Fatalf("status=%d, expected 404 after delete", code)
		}
	})
}

func TestHistoryExportCSV(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()
	token := registerAndLogin(t, ts, "export@example.com")

	payload := map[string]any{
		"entry_price":    63250,
		"stop_price":     61800,
		"exposure_mode":  "margin",
		"margin_capital": 5000,
		"risk_mode":      "amount",
		"risk_value":     300,
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/history", token, payload, nil); code != http.StatusCreated {
		t.Fatalf("save status=%d", code)
	}

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/history/export", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content-type=%q, expected text/csv", ct)
	}

	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d, expected header plus one record", len(rows))
	}
	if rows[0][0] != "id" || rows[0][2] != "direction" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][2] != "Long" {
		t.Fatalf("direction column=%q, expected Long", rows[1][2])
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()

	creds := map[string]string{"email": "dup@example.com", "password": "super-secret"}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/auth/register", "", creds, nil); code != http.StatusCreated {
		t.Fatalf("first register status=%d", code)
	}

	var out struct {
		Code string `json:"code"`
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/auth/register", "", creds, &out); code != http.StatusConflict {
		t.Fatalf("second register status=%d, expected 409", code)
	}
	if out.Code != "EMAIL_ALREADY_REGISTERED" {
		t.Fatalf("code=%q, expected EMAIL_ALREADY_REGISTERED", out.Code)
	}
}

// dialWS opens a websocket connection and exchanges one calculation round
// trip so the server side is known to be fully subscribed before returning.
func dialWS(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := conn.WriteJSON(map[string]any{"entry_price": 100, "stop_price": 90}); err != nil {
		t.Fatalf("ws write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var resp struct {
		Type string `json:"type"`
	}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("ws read: %v", err)
	}
	if resp.Type != "result" {
		t.Fatalf("type=%q, expected result", resp.Type)
	}
	return conn
}

func TestWebSocketStreamIsScopedToOwner(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()
	ownerToken := registerAndLogin(t, ts, "owner@example.com")
	otherToken := registerAndLogin(t, ts, "other@example.com")

	ownerConn := dialWS(t, ts, ownerToken)
	otherConn := dialWS(t, ts, otherToken)
	anonConn := dialWS(t, ts, "")

	payload := map[string]any{
		"entry_price":    63250,
		"stop_price":     61800,
		"exposure_mode":  "margin",
		"margin_capital": 5000,
		"risk_mode":      "amount",
		"risk_value":     300,
		"note":           "private note",
	}
	if code := doJSONRequest(t, client, http.MethodPost, ts.URL+"/api/history", ownerToken, payload, nil); code != http.StatusCreated {
		t.Fatalf("save status=%d", code)
	}

	t.Run("owner receives the saved record", func(t *testing.T) {
		_ = ownerConn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type   string `json:"type"`
			Record struct {
				Note string `json:"note"`
			} `json:"record"`
		}
		if err := ownerConn.ReadJSON(&msg); err != nil {
			t.Fatalf("owner read: %v", err)
		}
		if msg.Type != "calculation_saved" || msg.Record.Note != "private note" {
			t.Fatalf("got %+v, expected the saved record", msg)
		}
	})

	t.Run("other user receives nothing", func(t *testing.T) {
		_ = otherConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		var msg json.RawMessage
		if err := otherConn.ReadJSON(&msg); err == nil {
			t.Fatalf("foreign socket received %s, expected nothing", msg)
		}
	})

	t.Run("anonymous socket receives nothing", func(t *testing.T) {
		_ = anonConn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		var msg json.RawMessage
		if err := anonConn.ReadJSON(&msg); err == nil {
			t.Fatalf("anonymous socket received %s, expected nothing", msg)
		}
	})
}

func TestPresetsEndpoint(t *testing.T) {
	ts := newTestAPIServer(t)
	client := ts.Client()

	var out struct {
		Presets []struct {
			ID string `json:"id"`
		} `json:"presets"`
	}
	if code := doJSONRequest(t, client, http.MethodGet, ts.URL+"/api/presets", "", nil, &out); code != http.StatusOK {
		t.Fatalf("presets status=%d", code)
	}
	if len(out.Presets) != 1 || out.Presets[0].ID != "conservative" {
		t.Fatalf("presets=%+v, expected the configured preset", out.Presets)
	}
}
