package s3blob

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

const testBucket = "statements"

type object struct {
	body        []byte
	contentType string
}

// fakeS3 is a path-style, single-bucket, in-memory object store covering
// the calls the reader and writer make.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
}

type listResult struct {
	XMLName     xml.Name      `xml:"ListBucketResult"`
	Name        string        `xml:"Name"`
	Prefix      string        `xml:"Prefix"`
	KeyCount    int           `xml:"KeyCount"`
	IsTruncated bool          `xml:"IsTruncated"`
	Contents    []listContent `xml:"Contents"`
}

type listContent struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	Size         int    `xml:"Size"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+testBucket)
	key := strings.TrimPrefix(path, "/")

	switch {
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = object{body: body, contentType: r.Header.Get("Content-Type")}
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && key == "":
		prefix := r.URL.Query().Get("prefix")
		res := listResult{Name: testBucket, Prefix: prefix}
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			res.Contents = append(res.Contents, listContent{
				Key:          k,
				LastModified: "2025-06-01T12:00:00.000Z",
				Size:         len(f.objects[k].body),
			})
		}
		res.KeyCount = len(res.Contents)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(res)
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		obj, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				_, _ = w.Write([]byte(`<Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`))
			}
			return
		}
		w.Header().Set("Content-Type", obj.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(obj.body)
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) contentType(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key].contentType
}

func newTestClient(t *testing.T) (*Client, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string]object{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), ClientConfig{
		Endpoint:       srv.URL,
		Region:         "us-east-1",
		Bucket:         testBucket,
		AccessKey:      "test",
		SecretKey:      "test",
		ForcePathStyle: true,
	})
	require.NoError(t, err)
	return c, fake
}

func TestNewRequiresBucketAndRegion(t *testing.T) {
	_, err := New(context.Background(), ClientConfig{Region: "us-east-1"})
	assert.Error(t, err)
	_, err = New(context.Background(), ClientConfig{Bucket: "b"})
	assert.Error(t, err)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://r2.example.com", normaliseEndpoint("r2.example.com", true))
	assert.Equal(t, "http://already:9000", normaliseEndpoint("http://already:9000", true))
}

func TestPutGetListExists(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	w, r := NewWriter(c), NewReader(c)

	require.NoError(t, c.Health(ctx))

	path := "statements/0xabc/2025-06-01-1.csv"
	require.NoError(t, w.Put(ctx, path, bytes.NewReader([]byte("a,b\n1,2\n")), "text/csv"))
	assert.Equal(t, "text/csv", fake.contentType(path))

	body, err := r.Get(ctx, path)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))

	ok, err := r.Exists(ctx, path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(ctx, "statements/0xabc/missing.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, w.Put(ctx, "statements/0xdef/x.csv", strings.NewReader("x"), "text/csv"))
	infos, err := r.List(ctx, "statements/0xabc/")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, path, infos[0].Path)
	assert.Equal(t, int64(8), infos[0].Size)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), infos[0].LastModified.UTC())
}

func TestGetMissingIsNotFound(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := NewReader(c).Get(context.Background(), "nope.csv")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
