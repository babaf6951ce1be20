package acoustid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubExecutor struct {
	output []byte
	err    error
}

func (s stubExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	return s.output, s.err
}

func TestLookupParsesMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("client"); got != "key" {
			t.Errorf("unexpected client param: %q", got)
		}
		if got := r.URL.Query().Get("fingerprint"); got != "AQAAf4mSJEuS" {
			t.Errorf("unexpected fingerprint param: %q", got)
		}
		w.Write([]byte(`{"status":"ok","results":[
			{"id":"acoust-1","score":0.92,"recordings":[{"id":"mbid-1"},{"id":"mbid-2"}]},
			{"id":"acoust-2","score":0.41,"recordings":[]}
		]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL},
		WithExecutor(stubExecutor{output: []byte(`{"duration":296,"fingerprint":"AQAAf4mSJEuS"}`)}))

	matches, err := client.Lookup(context.Background(), "/tmp/purple-rain.flac")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].Score != 0.92 {
		t.Errorf("unexpected score: %v", matches[0].Score)
	}
	if len(matches[0].RecordingIDs) != 2 || matches[0].RecordingIDs[0] != "mbid-1" {
		t.Errorf("unexpected recording ids: %v", matches[0].RecordingIDs)
	}
}

func TestLookupServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","error":{"message":"invalid API key"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL},
		WithExecutor(stubExecutor{output: []byte(`{"duration":296,"fingerprint":"AQAA"}`)}))

	if _, err := client.Lookup(context.Background(), "/tmp/f.flac"); err == nil {
		t.Fatal("expected service error")
	}
}

func TestLookupRequiresAPIKey(t *testing.T) {
	client := NewClient(Config{})
	if _, err := client.Lookup(context.Background(), "/tmp/f.flac"); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestLookupFpcalcFailure(t *testing.T) {
	client := NewClient(Config{APIKey: "key", BaseURL: "http://127.0.0.1:0"},
		WithExecutor(stubExecutor{err: context.DeadlineExceeded}))
	if _, err := client.Lookup(context.Background(), "/tmp/f.flac"); err == nil {
		t.Fatal("expected fpcalc error")
	}
}

func TestFingerprintRejectsEmptyOutput(t *testing.T) {
	client := NewClient(Config{APIKey: "key"},
		WithExecutor(stubExecutor{output: []byte(`{"duration":100,"fingerprint":""}`)}))
	if _, err := client.fingerprint(context.Background(), "/tmp/f.flac"); err == nil {
		t.Fatal("expected error for empty fingerprint")
	}
}
