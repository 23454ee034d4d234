package ingest_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/dropsync/filestore"
	"github.com/rise-and-shine/dropsync/ingest"
	"github.com/rise-and-shine/dropsync/mediative"
	"github.com/rise-and-shine/dropsync/scheduler"
	"github.com/rise-and-shine/dropsync/session"
	"github.com/rise-and-shine/dropsync/transfer"
)

type fakeAuth struct{ err error }

func (f fakeAuth) EnsureAuthenticated(context.Context) (session.Token, error) {
	if f.err != nil {
		return session.Token{}, f.err
	}
	return session.Token{Token: "tok"}, nil
}

type fakeUploader struct {
	res   transfer.Result
	err   error
	calls int
}

func (f *fakeUploader) Upload(context.Context, string, string) (transfer.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeRegistrar struct {
	err   error
	media []mediative.Media
}

func (f *fakeRegistrar) CreateMedia(_ context.Context, _ string, m mediative.Media) (map[string]any, error) {
	f.media = append(f.media, m)
	return map[string]any{"id": 1}, f.err
}

type fakeRemover struct {
	err     error
	removed []string
}

func (f *fakeRemover) Remove(path string) error {
	f.removed = append(f.removed, path)
	return f.err
}

var uploaded = transfer.Result{
	Chunks: 1,
	Bytes:  10,
	Final: mediative.ChunkResponse{
		Filename: "srv-clip.mp4",
		Upload:   &mediative.UploadRef{ID: "77", Title: "clip"},
	},
}

func TestPipeline_StageGating(t *testing.T) {
	boom := errx.New("boom", errx.WithCode("BOOM"))

	tests := []struct {
		name         string
		authErr      error
		upload       transfer.Result
		uploadErr    error
		registerErr  error
		removeErr    error
		wantCode     string
		wantUploads  int
		wantRegister int
		wantRemove   int
	}{
		{name: "all stages succeed", upload: uploaded, wantUploads: 1, wantRegister: 1, wantRemove: 1},
		{name: "auth failure stops everything", authErr: boom, wantCode: "BOOM"},
		{name: "chunk failure skips registration", uploadErr: boom, wantCode: "BOOM", wantUploads: 1},
		{
			name: "registration failure keeps the file", upload: uploaded, registerErr: boom,
			wantCode: ingest.CodeRegisterFailed, wantUploads: 1, wantRegister: 1,
		},
		{name: "cleanup failure is not a job failure", upload: uploaded, removeErr: boom, wantUploads: 1, wantRegister: 1, wantRemove: 1},
		{
			name: "empty file skips registration and deletion", upload: transfer.Result{},
			wantCode: ingest.CodeNothingUploaded, wantUploads: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUploader{res: tt.upload, err: tt.uploadErr}
			reg := &fakeRegistrar{err: tt.registerErr}
			rm := &fakeRemover{err: tt.removeErr}
			p := ingest.New(fakeAuth{err: tt.authErr}, up, reg, rm)

			err := p.Handle(context.Background(), scheduler.NewJob("/in/clip.mp4"))

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errx.IsCodeIn(err, tt.wantCode), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantUploads, up.calls)
			assert.Len(t, reg.media, tt.wantRegister)
			assert.Len(t, rm.removed, tt.wantRemove)
		})
	}
}

func TestPipeline_RegistersServerFilename(t *testing.T) {
	reg := &fakeRegistrar{}
	p := ingest.New(fakeAuth{}, &fakeUploader{res: uploaded}, reg, &fakeRemover{})

	require.NoError(t, p.Handle(context.Background(), scheduler.NewJob("/in/clip.mp4")))

	require.Len(t, reg.media, 1)
	assert.Equal(t, mediative.Media{Filename: "srv-clip.mp4", UploadID: "77", Title: "clip"}, reg.media[0])
}

// vendor is an httptest stand-in for the Mediative API that records the
// order of requests it served.
type vendor struct {
	mu       sync.Mutex
	requests []string
	media    map[string]string
	logins   int
}

func (v *vendor) record(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.requests = append(v.requests, s)
}

func (v *vendor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/login.json":
		v.mu.Lock()
		v.logins++
		v.mu.Unlock()
		_, _ = fmt.Fprintf(w, `{"auth":{"token":{"token":"tok","expiresTime":%d}}}`, time.Now().Add(time.Hour).Unix())

	case "/uploads/chunk.json":
		body, _ := io.ReadAll(r.Body)
		rng := r.Header.Get("Content-Range")
		v.record("chunk " + rng + " " + r.Header.Get("Chunk"))

		var start, end, size int
		_, _ = fmt.Sscanf(rng, "bytes %d-%d/%d", &start, &end, &size)
		if end-start != len(body) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if end == size {
			_, _ = io.WriteString(w, `{"filename":"srv-clip.mp4","response":{"uploads":[{"Upload":{"id":77,"title":"clip"}}]}}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"id":"u-%d"}`, end)

	case "/medias.json":
		_ = r.ParseForm()
		v.mu.Lock()
		v.media = map[string]string{}
		for k := range r.PostForm {
			v.media[k] = r.PostForm.Get(k)
		}
		v.mu.Unlock()
		v.record("media")
		_, _ = io.WriteString(w, `{"id":1}`)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	v := &vendor{}
	srv := httptest.NewServer(v)
	defer srv.Close()

	api := mediative.New(mediative.Config{
		APIURL:         srv.URL,
		HostURL:        srv.URL,
		Domain:         "beta.omi.tv",
		PublicKey:      "pub",
		PrivateKey:     "priv",
		RequestTimeout: 5 * time.Second,
	})
	store := filestore.NewOS()
	p := ingest.New(session.New(api), transfer.NewEngine(api, store), api, store)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 5<<20/2), 0o600))

	require.NoError(t, p.Handle(context.Background(), scheduler.NewJob(path)))

	assert.Equal(t, []string{
		"chunk bytes 0-1048576/2621440 ",
		"chunk bytes 1048576-2097152/2621440 u-1048576",
		"chunk bytes 2097152-2621440/2621440 u-2097152",
		"media",
	}, v.requests)
	assert.Equal(t, 1, v.logins)
	assert.Equal(t, "77", v.media["Upload[id]"])
	assert.Equal(t, `{"filenames":["srv-clip.mp4"]}`, v.media["local_datas"])
	assert.Equal(t, "clip", v.media["title"])
	assert.NoFileExists(t, path)
}

func TestPipeline_EndToEnd_RegistrationFailureKeepsFile(t *testing.T) {
	v := &vendor{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/medias.json" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		v.ServeHTTP(w, r)
	}))
	defer srv.Close()

	api := mediative.New(mediative.Config{
		APIURL: srv.URL, HostURL: srv.URL, Domain: "d", PublicKey: "pub", PrivateKey: "priv",
		RequestTimeout: 5 * time.Second,
	})
	store := filestore.NewOS()
	p := ingest.New(session.New(api), transfer.NewEngine(api, store), api, store)

	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

	err := p.Handle(context.Background(), scheduler.NewJob(path))

	assert.True(t, errx.IsCodeIn(err, ingest.CodeRegisterFailed))
	assert.FileExists(t, path)
}
