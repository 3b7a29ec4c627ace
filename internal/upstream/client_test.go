package upstream

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit_feed_proxy/internal/headers"
	"transit_feed_proxy/internal/testutil"
)

func TestGetSendsHeadersAndReadsBody(t *testing.T) {
	var gotAuth string
	url, closeUpstream := testutil.StartUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("feed-bytes"))
	}))
	defer closeUpstream()

	client := NewClient(Config{})
	resp, err := client.Get(context.Background(), url, headers.List{{Name: "Authorization", Value: "Bearer tok"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []byte("feed-bytes"), resp.Body)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestPostDeliversBody(t *testing.T) {
	var gotBody []byte
	var gotMethod string
	url, closeUpstream := testutil.StartUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer closeUpstream()

	client := NewClient(Config{})
	_, err := client.Post(context.Background(), url, nil, []byte("<Siri/>"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, []byte("<Siri/>"), gotBody)
}

func TestNonSuccessStatusIsNotAnError(t *testing.T) {
	url, closeUpstream := testutil.StartUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer closeUpstream()

	client := NewClient(Config{})
	resp, err := client.Get(context.Background(), url, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestConnectionRefusedSurfacesTypedError(t *testing.T) {
	url, closeUpstream := testutil.StartUpstream(t, nil)
	closeUpstream()

	client := NewClient(Config{})
	_, err := client.Get(context.Background(), url, nil)
	require.Error(t, err)

	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, CategoryConnectFailed, ue.Category)
	assert.Equal(t, url, ue.URL)
}

func TestRequestTimeout(t *testing.T) {
	url, closeUpstream := testutil.StartUpstream(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer closeUpstream()

	client := NewClient(Config{RequestTimeout: 50 * time.Millisecond})
	_, err := client.Get(context.Background(), url, nil)
	require.Error(t, err)

	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, CategoryTimeout, ue.Category)
}

func TestInvalidURL(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Get(context.Background(), "http://invalid host/", nil)
	var ue *Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, CategoryOther, ue.Category)
}
