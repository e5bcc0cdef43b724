package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"havenstore/pkg/models"
)

func TestHTTPMutationAndHistory(t *testing.T) {
	g, _ := newTestGateway(t, Options{})
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	body := `{"room":"general","msg":{"text":"over http"}}`
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/mutations", strings.NewReader(body))
	req.Header.Set(headerUser, "ari")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res MutationResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.True(t, res.Success)
	require.NotNil(t, res.Message)
	assert.Equal(t, "over http", res.Message.Text)

	greq, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/rooms/general/messages", nil)
	greq.Header.Set(headerUser, "bo")
	gresp, err := http.DefaultClient.Do(greq)
	require.NoError(t, err)
	defer gresp.Body.Close()
	require.Equal(t, http.StatusOK, gresp.StatusCode)

	var page struct {
		Messages []models.SanitizedMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(gresp.Body).Decode(&page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "over http", page.Messages[0].Text)
}

func TestHTTPStatusMapping(t *testing.T) {
	g, _ := newTestGateway(t, Options{})
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	post := func(t *testing.T, user, body string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/mutations", strings.NewReader(body))
		if user != "" {
			req.Header.Set(headerUser, user)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusUnauthorized, post(t, "", `{"room":"r"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, "ari", `not json`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, post(t, "ari", `{"room":"r"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound,
		post(t, "ari", `{"room":"r","action":"delete","messageId":"ghost"}`).StatusCode)
}

func TestHTTPForbiddenStatus(t *testing.T) {
	g, _ := newTestGateway(t, Options{Permissions: DenyAllPermissions{}})
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	// seed via the gateway directly
	m := mustCreate(t, g, "acme__general", "ari", "hands off")

	body := `{"room":"acme__general","action":"delete","messageId":"` + m.ID + `"}`
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/mutations", strings.NewReader(body))
	req.Header.Set(headerUser, "intruder")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.False(t, payload.Success)
	assert.NotEmpty(t, payload.Error)
}

func TestHealthz(t *testing.T) {
	g, _ := newTestGateway(t, Options{})
	srv := httptest.NewServer(g.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
