package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inbucket/mailbag/pkg/config"
	"github.com/inbucket/mailbag/pkg/mailbox"
	"github.com/inbucket/mailbag/pkg/msghub"
	"github.com/inbucket/mailbag/pkg/rest/model"
	"github.com/inbucket/mailbag/pkg/server/web"
)

// Routes may only be registered once against the shared web.Router.
var routesOnce sync.Once

// setupWebServer starts a registry and binds it to the shared router.
func setupWebServer(t *testing.T) *mailbox.Registry {
	t.Helper()
	conf := &config.Root{
		Web: config.Web{
			Addr:           "127.0.0.1:0",
			MonitorHistory: 30,
		},
		Mailbox: config.Mailbox{
			Domain:          "example.com",
			LocalPrefix:     "mb",
			DefaultPageSize: 20,
			OpTimeout:       5 * time.Second,
		},
	}
	hub := msghub.New(conf.Web.MonitorHistory)
	reg, err := mailbox.New(conf.Mailbox, hub)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Start(ctx)
	go reg.Start(ctx)

	routesOnce.Do(func() {
		SetupRoutes(web.Router.PathPrefix("/api/").Subrouter())
	})
	web.NewServer(conf, make(chan bool), reg, hub)
	return reg
}

func testRestRequest(method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	}
	req.Header.Add("Accept", "application/json")
	w := httptest.NewRecorder()
	web.Router.ServeHTTP(w, req)
	return w
}

func testRestGet(url string) *httptest.ResponseRecorder {
	return testRestRequest("GET", url, "")
}

func testRestPost(url, body string) *httptest.ResponseRecorder {
	return testRestRequest("POST", url, body)
}

func testRestDelete(url string) *httptest.ResponseRecorder {
	return testRestRequest("DELETE", url, "")
}

// decodeJSON unmarshals a recorded response body into v.
func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

// createTestMailbox allocates a mailbox through the API.
func createTestMailbox(t *testing.T) string {
	t.Helper()
	w := testRestPost("/api/v1/mailbox", "")
	require.Equal(t, http.StatusOK, w.Code)
	v := &model.JSONMailboxV1{}
	decodeJSON(t, w, v)
	require.NotEmpty(t, v.Mailbox)
	return v.Mailbox
}

// postTestMessage stores a message through the API, returning its ID.
func postTestMessage(t *testing.T, mailbox, subject string) string {
	t.Helper()
	body := `{"from":"from@example.com","subject":"` + subject + `","body":"body of ` + subject + `"}`
	w := testRestPost("/api/v1/mailbox/"+mailbox, body)
	require.Equal(t, http.StatusOK, w.Code)
	v := &model.JSONMessageIDV1{}
	decodeJSON(t, w, v)
	require.NotEmpty(t, v.ID)
	return v.ID
}
