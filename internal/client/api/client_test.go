package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

func TestClient_LoginSendsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@example.com", body["email"])
		assert.Equal(t, "secret123", body["password"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"success":true,"token":"tok","user":{"_id":"u1","name":"Ann","email":"ann@example.com"}}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	res, err := c.Login(context.Background(), "ann@example.com", []byte("secret123"))
	require.NoError(t, err)
	assert.Equal(t, "tok", res.Token)
	assert.Equal(t, "u1", res.User.ID)
	assert.Empty(t, c.Token())
}

func TestClient_AuthedCallsNeedToken(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)

	_, err := c.Me(context.Background())
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	_, err = c.Predict(context.Background(), "a.png", pngBytes)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestClient_DecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"success":false,"error":"unauthenticated","message":"Token has expired"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetToken("old")

	_, err := c.Stats(context.Background())
	require.Error(t, err)

	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusUnauthorized, ae.Status)
	assert.Equal(t, "unauthenticated", ae.Kind)
	assert.Equal(t, "Token has expired", ae.Error())
	assert.True(t, IsUnauthorized(err))
}

func TestClient_PlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL, time.Second).Ping(context.Background())
	var ae *APIError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, http.StatusBadGateway, ae.Status)
	assert.Equal(t, "bad gateway", ae.Message)
}

func TestClient_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, time.Second).Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestClient_PredictSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, pngBytes, data)
		assert.Equal(t, "fridge.png", hdr.Filename)
		assert.Equal(t, "image/png", hdr.Header.Get("Content-Type"))

		io.WriteString(w, `{"success":true,"data":{"_id":"p1","predictions":[{"name":"egg","confidence":0.9}]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetToken("tok")
	p, err := c.Predict(context.Background(), "/tmp/photos/fridge.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "egg", p.Items[0].Name)
}

func TestClient_HistoryQuery(t *testing.T) {
	var gotQuery []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = append(gotQuery, r.URL.RawQuery)
		io.WriteString(w, `{"success":true,"count":0,"data":[]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	c.SetToken("tok")

	page, err := c.History(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Nil(t, page.Pagination)

	_, err = c.History(context.Background(), 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "limit=5&page=2"}, gotQuery)
}
