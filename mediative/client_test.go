package mediative_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/dropsync/mediative"
)

func newClient(srv *httptest.Server) *mediative.Client {
	return mediative.New(mediative.Config{
		APIURL:         srv.URL,
		HostURL:        srv.URL + "/",
		Domain:         "beta.omi.tv",
		PublicKey:      "pub",
		PrivateKey:     "priv",
		RequestTimeout: 5 * time.Second,
	})
}

func assertCommonHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, "MediativeApi", r.Header.Get("X-Requested-With"))
	assert.Equal(t, "1.1", r.Header.Get("X-Requested-Version"))
	assert.Equal(t, "application/json", r.Header.Get("Accept"))
}

func TestClient_Login(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		want     mediative.Token
		wantCode string
	}{
		{
			name:   "numeric expiresTime",
			status: http.StatusOK,
			body:   `{"auth":{"token":{"domain":"beta.omi.tv","created":"2024-01-01","token":"abc","expires":"2024-01-02","expiresTime":1704153600}}}`,
			want: mediative.Token{
				Domain: "beta.omi.tv", Created: "2024-01-01", Token: "abc", Expires: "2024-01-02", ExpiresTime: 1704153600,
			},
		},
		{
			name:   "string expiresTime",
			status: http.StatusOK,
			body:   `{"auth":{"token":{"token":"abc","expiresTime":"1704153600"}}}`,
			want:   mediative.Token{Token: "abc", ExpiresTime: 1704153600},
		},
		{name: "missing token", status: http.StatusOK, body: `{"auth":{}}`, wantCode: mediative.CodeNoToken},
		{name: "empty token", status: http.StatusOK, body: `{"auth":{"token":{"token":""}}}`, wantCode: mediative.CodeNoToken},
		{name: "malformed json", status: http.StatusOK, body: `{"auth":`, wantCode: mediative.CodeInvalidResponse},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"bad keys"}`, wantCode: mediative.CodeUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/login.json", r.URL.Path)
				assert.Equal(t, "beta.omi.tv", r.URL.Query().Get("domain"))
				user, pass, ok := r.BasicAuth()
				assert.True(t, ok)
				assert.Equal(t, "pub", user)
				assert.Equal(t, "priv", pass)
				assertCommonHeaders(t, r)

				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			got, err := newClient(srv).Login(context.Background())
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errx.IsCodeIn(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_LoginTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := newClient(srv)
	srv.Close()

	_, err := c.Login(context.Background())
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, mediative.CodeRequestFailed))
}

func TestClient_LoginCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newClient(srv).Login(ctx)
	assert.True(t, errx.IsCodeIn(err, mediative.CodeRequestFailed))
}

func TestClient_Refresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/refresh/old-token.json", r.URL.Path)
		assert.Equal(t, "beta.omi.tv", r.URL.Query().Get("domain"))
		_, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assertCommonHeaders(t, r)

		_, _ = io.WriteString(w, `{"token":"new-token","expiresTime":1900000000}`)
	}))
	defer srv.Close()

	got, err := newClient(srv).Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.Equal(t, "new-token", got.Token)
	assert.Equal(t, int64(1900000000), got.ExpiresTime)
}

func TestClient_UploadChunk(t *testing.T) {
	type seen struct {
		rangeHdr, filename, chunk, contentType string
		body                                   []byte
	}
	var (
		mu       sync.Mutex
		requests []seen
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/uploads/chunk.json", r.URL.Path)
		assert.Equal(t, "beta.omi.tv", r.URL.Query().Get("d"))
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		assertCommonHeaders(t, r)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		requests = append(requests, seen{
			rangeHdr:    r.Header.Get("Content-Range"),
			filename:    r.Header.Get("Original-Filename"),
			chunk:       r.Header.Get("Chunk"),
			contentType: r.Header.Get("Content-Type"),
			body:        body,
		})

		if len(requests) == 1 {
			_, _ = io.WriteString(w, `{"id":42}`)
			return
		}
		_, _ = io.WriteString(w, `{"filename":"srv-clip.mp4","response":{"uploads":[{"Upload":{"id":"77","title":"clip"}}]}}`)
	}))
	defer srv.Close()
	c := newClient(srv)

	first, err := c.UploadChunk(context.Background(), "tok", mediative.Chunk{
		Filename: "clip.mp4", Offset: 0, Size: 6, Data: []byte("abcd"),
	})
	require.NoError(t, err)
	assert.Equal(t, "42", first.ID)
	assert.Nil(t, first.Upload)

	last, err := c.UploadChunk(context.Background(), "tok", mediative.Chunk{
		Filename: "clip.mp4", ContinuationID: first.ID, Offset: 4, Size: 6, Data: []byte("ef"),
	})
	require.NoError(t, err)
	assert.Empty(t, last.ID)
	assert.Equal(t, "srv-clip.mp4", last.Filename)
	require.NotNil(t, last.Upload)
	assert.Equal(t, mediative.UploadRef{ID: "77", Title: "clip"}, *last.Upload)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, requests, 2)
	assert.Equal(t, "bytes 0-4/6", requests[0].rangeHdr)
	assert.Equal(t, "clip.mp4", requests[0].filename)
	assert.Empty(t, requests[0].chunk)
	assert.Equal(t, "application/octet-stream", requests[0].contentType)
	assert.Equal(t, []byte("abcd"), requests[0].body)

	assert.Equal(t, "bytes 4-6/6", requests[1].rangeHdr)
	assert.Empty(t, requests[1].filename)
	assert.Equal(t, "42", requests[1].chunk)
}

func TestClient_UploadChunkRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"disk full"}`)
	}))
	defer srv.Close()

	_, err := newClient(srv).UploadChunk(context.Background(), "tok", mediative.Chunk{Size: 1, Data: []byte("a")})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, mediative.CodeUnexpectedStatus))
}

func TestClient_CreateMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/medias.json", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
		assert.NoError(t, r.ParseForm())

		assert.Equal(t, "LocalVideo", r.PostForm.Get("type"))
		assert.Equal(t, "copyright", r.PostForm.Get("license"))
		assert.Equal(t, "{}", r.PostForm.Get("settings"))
		assert.Equal(t, `{"filenames":["srv-clip.mp4"]}`, r.PostForm.Get("local_datas"))
		assert.Equal(t, "{}", r.PostForm.Get("distant_datas"))
		assert.Equal(t, "{}", r.PostForm.Get("thumbnails"))
		assert.True(t, r.PostForm.Has("tags"))
		assert.Equal(t, "false", r.PostForm.Get("approved"))
		assert.Equal(t, "clip", r.PostForm.Get("title"))
		assert.Equal(t, "clip", r.PostForm.Get("description"))
		assert.Equal(t, "77", r.PostForm.Get("Upload[id]"))

		_, _ = io.WriteString(w, `{"response":{"medias":[{"Media":{"id":"9"}}]}}`)
	}))
	defer srv.Close()

	out, err := newClient(srv).CreateMedia(context.Background(), "tok", mediative.Media{
		Filename: "srv-clip.mp4", UploadID: "77", Title: "clip",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "response")
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/medias.json", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "beta.omi.tv", r.URL.Query().Get("d"))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	out, err := newClient(srv).Get(context.Background(), "tok", "medias", map[string]string{"page": "2"})
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
}
