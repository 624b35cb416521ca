package cli

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/config"
	"github.com/dmitrijs2005/ascgate/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	keyPath := filepath.Join(t.TempDir(), "AuthKey_CLI.p8")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), 0o600))

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.KeyID = "CLI"
	cfg.IssuerID = "issuer"
	cfg.PrivateKeyPath = keyPath
	cfg.APIRoot = root
	cfg.LogLevel = "error"
	return cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Run(context.Background(), cfg, args, &out, &errOut)
	return out.String(), err
}

func TestToken(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com/v1")

	out, err := run(t, cfg, "token")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "."), 3)

	out, err = run(t, cfg, "token", "--json")
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.NotEmpty(t, v["token"])
	assert.NotEmpty(t, v["expiresAt"])
}

func TestToken_MissingIdentity(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com/v1")
	cfg.KeyID = ""

	_, err := run(t, cfg, "token")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestGet_PassesOrderedParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/apps", r.URL.Path)
		assert.Equal(t, "filter%5Bplatform%5D=IOS&limit=5", r.URL.RawQuery)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "Bearer "))
		_, _ = io.WriteString(w, `{"data":[{"type":"apps","id":"1"}]}`)
	}))
	defer srv.Close()

	out, err := run(t, testConfig(t, srv.URL+"/v1"), "get", "/apps", "filter[platform]=IOS", "skip=", "limit=5")
	require.NoError(t, err)

	var resp struct {
		Status  int
		Records []struct{ ID string }
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 200, resp.Status)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "1", resp.Records[0].ID)
}

func TestGet_AllPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"data":[{"type":"apps","id":"1"}],"links":{"self":"s","next":"http://`+r.Host+`/v1/apps?cursor=2"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"type":"apps","id":"2"}],"links":{"self":"s2"}}`)
	}))
	defer srv.Close()

	out, err := run(t, testConfig(t, srv.URL+"/v1"), "get", "/apps", "--all")
	require.NoError(t, err)

	var resp struct {
		Records []struct{ ID string }
		Links   struct{ Next string }
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "2", resp.Records[1].ID)
	assert.Empty(t, resp.Links.Next)
}

func TestGet_DomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"errors":[{"title":"Bad"}]}`)
	}))
	defer srv.Close()

	_, err := run(t, testConfig(t, srv.URL+"/v1"), "get", "/apps")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDomain)
	assert.Contains(t, err.Error(), "Bad")
}

func TestGet_OpaqueBodyPrintedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "plain text")
	}))
	defer srv.Close()

	out, err := run(t, testConfig(t, srv.URL+"/v1"), "get", "/apps")
	require.NoError(t, err)
	assert.Equal(t, "plain text\n", out)
}

func TestPost_Body(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		data, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"data":{"type":"bundleIds"}}`, string(data))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"data":{"type":"bundleIds","id":"b1"}}`)
	}))
	defer srv.Close()
	cfg := testConfig(t, srv.URL+"/v1")

	body := filepath.Join(t.TempDir(), "body.json")
	require.NoError(t, os.WriteFile(body, []byte(`{"data":{"type":"bundleIds"}}`), 0o600))

	out, err := run(t, cfg, "post", "/bundleIds", "--body", body)
	require.NoError(t, err)
	assert.Contains(t, out, `"b1"`)

	_, err = run(t, cfg, "post", "/bundleIds")
	assert.ErrorIs(t, err, common.ErrConfiguration)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"data":`), 0o600))
	_, err = run(t, cfg, "patch", "/bundleIds/b1", "--body", bad)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestParseParams(t *testing.T) {
	q, err := parseParams([]string{"b=2", "a=1", "e="})
	require.NoError(t, err)
	assert.Equal(t, "b=2&a=1", q.Encode())

	_, err = parseParams([]string{"novalue"})
	assert.ErrorIs(t, err, common.ErrConfiguration)
	_, err = parseParams([]string{"=x"})
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestRun_InvalidFlagValue(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com/v1")
	_, err := run(t, cfg, "token", "--upload-concurrency=0")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

// ascServer serves reserve, part PUT, commit PATCH and asset DELETE.
type ascServer struct {
	srv      *httptest.Server
	mu       sync.Mutex
	failPart   bool
	failCommit bool
	parts      [][]byte
	commits    int
	deletes    []string
}

func newASCServer(t *testing.T) *ascServer {
	a := &ascServer{}
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/appScreenshots":
			var in struct {
				Data struct {
					Attributes struct {
						FileName string `json:"fileName"`
						FileSize int64  `json:"fileSize"`
					} `json:"attributes"`
				} `json:"data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&in)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
				"type": "appScreenshots", "id": "asset-1",
				"attributes": map[string]any{
					"fileName":           in.Data.Attributes.FileName,
					"fileSize":           in.Data.Attributes.FileSize,
					"sourceFileChecksum": "sum",
					"uploadOperations": []map[string]any{{
						"method": "PUT", "url": a.srv.URL + "/upload/0", "offset": 0, "length": in.Data.Attributes.FileSize,
						"requestHeaders": []map[string]string{{"name": "Content-Type", "value": "image/png"}},
					}},
				},
			}})
		case r.Method == http.MethodPut:
			if a.failPart {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			data, _ := io.ReadAll(r.Body)
			a.parts = append(a.parts, data)
		case r.Method == http.MethodPatch:
			a.commits++
			if a.failCommit {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = io.WriteString(w, `{"data":{"type":"appScreenshots","id":"asset-1"}}`)
		case r.Method == http.MethodDelete:
			a.deletes = append(a.deletes, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(a.srv.Close)
	return a
}

func TestUpload_EndToEndWithJournalAndMetrics(t *testing.T) {
	asc := newASCServer(t)
	cfg := testConfig(t, asc.srv.URL+"/v1")

	dir := t.TempDir()
	file := filepath.Join(dir, "home.png")
	require.NoError(t, os.WriteFile(file, []byte("png-bytes"), 0o600))
	journal := filepath.Join(dir, "state", "journal.db")
	metricsFile := filepath.Join(dir, "ascgate.prom")

	out, err := run(t, cfg, "upload", "--parent", "set-1", "--journal", journal, "--metrics-file", metricsFile, file)
	require.NoError(t, err)

	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "committed", view.State)
	assert.Equal(t, "home.png", view.FileName)
	assert.Equal(t, int64(9), view.FileSize)
	assert.Equal(t, 1, view.Parts)

	require.Len(t, asc.parts, 1)
	assert.Equal(t, "png-bytes", string(asc.parts[0]))
	assert.Equal(t, 1, asc.commits)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "ascgate_upload_sessions_total")

	out, err = run(t, cfg, "sessions", "--journal", journal, "--prune", "1ns")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestUpload_FailureListedThenDiscarded(t *testing.T) {
	asc := newASCServer(t)
	asc.failPart = true
	cfg := testConfig(t, asc.srv.URL+"/v1")

	dir := t.TempDir()
	file := filepath.Join(dir, "home.png")
	require.NoError(t, os.WriteFile(file, []byte("png-bytes"), 0o600))
	journal := filepath.Join(dir, "journal.db")

	out, err := run(t, cfg, "upload", "--parent", "set-1", "--journal", journal, file)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDomain)
	assert.Contains(t, out, `"failed"`)
	assert.Equal(t, 0, asc.commits)

	out, err = run(t, cfg, "sessions", "--journal", journal)
	require.NoError(t, err)
	var views []sessionView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "asset-1", views[0].AssetID)
	assert.Equal(t, "screenshot", views[0].Kind)

	_, err = run(t, cfg, "commit", "--journal", journal, "asset-1")
	assert.ErrorIs(t, err, common.ErrInvalidState)
	assert.Equal(t, 0, asc.commits)

	_, err = run(t, cfg, "discard", "--journal", journal, "asset-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"/v1/appScreenshots/asset-1"}, asc.deletes)

	out, err = run(t, cfg, "sessions", "--journal", journal)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestCommit_RetriesFromJournal(t *testing.T) {
	asc := newASCServer(t)
	asc.failCommit = true
	cfg := testConfig(t, asc.srv.URL+"/v1")

	dir := t.TempDir()
	file := filepath.Join(dir, "home.png")
	require.NoError(t, os.WriteFile(file, []byte("png-bytes"), 0o600))
	journal := filepath.Join(dir, "journal.db")

	_, err := run(t, cfg, "upload", "--parent", "set-1", "--journal", journal, file)
	require.ErrorIs(t, err, common.ErrCommit)
	require.Len(t, asc.parts, 1)
	failedCommits := asc.commits

	asc.mu.Lock()
	asc.failCommit = false
	asc.mu.Unlock()

	out, err := run(t, cfg, "commit", "--journal", journal, "asset-1")
	require.NoError(t, err)
	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "committed", view.State)
	assert.Equal(t, "sum", view.Checksum)
	assert.Equal(t, "home.png", view.FileName)
	assert.Equal(t, failedCommits+1, asc.commits)
	// parts are not sent again
	assert.Len(t, asc.parts, 1)

	out, err = run(t, cfg, "sessions", "--journal", journal)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestCommit_UnknownAsset(t *testing.T) {
	journal := filepath.Join(t.TempDir(), "journal.db")
	_, err := run(t, testConfig(t, "https://api.example.com/v1"), "commit", "--journal", journal, "asset-9")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = run(t, testConfig(t, "https://api.example.com/v1"), "commit", "asset-9")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestUpload_NeedsParent(t *testing.T) {
	cfg := testConfig(t, "https://api.example.com/v1")
	_, err := run(t, cfg, "upload", "shot.png")
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = run(t, cfg, "upload", "--kind", "video", "--parent", "p", "shot.png")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestSessions_NeedsJournal(t *testing.T) {
	_, err := run(t, testConfig(t, "https://api.example.com/v1"), "sessions")
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

type memS3 struct{ data []byte }

func (m memS3) HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(m.data)))}, nil
}

func (m memS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	var from, to int
	_, _ = fmt.Sscanf(aws.ToString(in.Range), "bytes=%d-%d", &from, &to)
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(m.data[from : to+1]))}, nil
}

func TestUpload_FromS3(t *testing.T) {
	asc := newASCServer(t)
	cfg := testConfig(t, asc.srv.URL+"/v1")

	var out bytes.Buffer
	app := NewApp(cfg, &out, io.Discard)
	var gotOpts source.S3Options
	app.newS3 = func(_ context.Context, opts source.S3Options) (source.S3API, error) {
		gotOpts = opts
		return memS3{data: []byte("from-s3")}, nil
	}

	root := app.RootCommand()
	root.SetArgs([]string{"upload", "--parent", "set-1", "--s3-endpoint", "http://minio:9000", "s3://assets/shots/home.png"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NoError(t, app.Close())

	assert.Equal(t, "http://minio:9000", gotOpts.Endpoint)
	require.Len(t, asc.parts, 1)
	assert.Equal(t, "from-s3", string(asc.parts[0]))
	assert.Contains(t, out.String(), `"home.png"`)
}
