package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
	"time"
)

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	if _, err := parseBaseURL("   "); err == nil {
		t.Fatalf("parseBaseURL accepted an empty address")
	}

	u, err := parseBaseURL("10.0.0.5:8080")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" {
		t.Fatalf("scheme = %q, want http", u.Scheme)
	}
	if u.Host != "10.0.0.5:8080" {
		t.Fatalf("host = %q, want 10.0.0.5:8080", u.Host)
	}

	u, err = parseBaseURL("https://example.com:1234/path?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}
}

func TestClient_FetchesEndpointsAndEncodesQueries(t *testing.T) {
	t.Parallel()

	var gotMetaQuery url.Values
	var gotReadQuery url.Values
	var gotUserAgent string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/logging/categories":
			_ = json.NewEncoder(w).Encode(categoryListResponse{Categories: []Category{{Name: "trace", Path: "/log/trace"}}})
		case "/logging/objects":
			_ = json.NewEncoder(w).Encode(objectListResponse{Objects: []Object{{Name: "tcp", Info: "tcp trace"}}})
		case "/logging/metadata":
			gotMetaQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(Metadata{Files: []string{"tcp.0"}, SizeInBytes: 4096, MTime: "2024-03-02T10:15:30Z"})
		case "/logging/read":
			gotReadQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(RangeResult{Lines: []string{"a", "b"}, EndOffset: 4096})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "line-3")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	categories, err := c.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories returned error: %v", err)
	}
	if len(categories) != 1 || categories[0].Name != "trace" {
		t.Fatalf("ListCategories payload = %#v, want trace", categories)
	}

	objects, err := c.ListObjects(ctx, "trace")
	if err != nil {
		t.Fatalf("ListObjects returned error: %v", err)
	}
	if len(objects) != 1 || objects[0].Name != "tcp" {
		t.Fatalf("ListObjects payload = %#v, want tcp", objects)
	}

	meta, err := c.GetMetadata(ctx, "trace", "tcp")
	if err != nil {
		t.Fatalf("GetMetadata returned error: %v", err)
	}
	if meta.SizeInBytes != 4096 {
		t.Fatalf("SizeInBytes = %d, want 4096", meta.SizeInBytes)
	}
	if gotMetaQuery.Get("alias") != "line-3" || gotMetaQuery.Get("category") != "trace" || gotMetaQuery.Get("object") != "tcp" {
		t.Fatalf("metadata query = %v, want alias/category/object encoded", gotMetaQuery)
	}

	read, err := c.ReadRange(ctx, "trace", "tcp", 1024, ReadToEnd)
	if err != nil {
		t.Fatalf("ReadRange returned error: %v", err)
	}
	if !reflect.DeepEqual(read.Lines, []string{"a", "b"}) || read.EndOffset != 4096 {
		t.Fatalf("ReadRange payload = %#v", read)
	}
	if gotReadQuery.Get("begin") != "1024" || gotReadQuery.Get("end") != "-1" {
		t.Fatalf("read query = %v, want begin=1024 end=-1", gotReadQuery)
	}

	if gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUserAgent, defaultUserAgent)
	}
}

func TestClient_ReadRangeRejectsNegativeBegin(t *testing.T) {
	c, err := NewClient("10.0.0.5:8080", "")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.ReadRange(context.Background(), "trace", "tcp", -5, ReadToEnd); err == nil {
		t.Fatalf("ReadRange accepted a negative begin")
	}
}

func TestClient_ErrorStatusSurfaces(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, "")
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.GetMetadata(context.Background(), "trace", "tcp"); err == nil {
		t.Fatalf("GetMetadata returned nil error, want status error")
	}
}

func TestMetadataParsedMTime(t *testing.T) {
	m := Metadata{MTime: "2024-03-02T10:15:30Z"}
	want := time.Date(2024, time.March, 2, 10, 15, 30, 0, time.UTC)
	if got := m.ParsedMTime(); !got.Equal(want) {
		t.Fatalf("ParsedMTime = %v, want %v", got, want)
	}
	if got := (Metadata{MTime: "garbage"}).ParsedMTime(); !got.IsZero() {
		t.Fatalf("ParsedMTime(garbage) = %v, want zero", got)
	}
	if got := (Metadata{}).ParsedMTime(); !got.IsZero() {
		t.Fatalf("ParsedMTime(empty) = %v, want zero", got)
	}
}
