package blob

import (
	"errors"
	"net/http"
	"testing"

	"boxmark/internal/store"
)

func TestClassifyStatus(t *testing.T) {
	base := errors.New("request failed")
	tests := []struct {
		code      int
		transient bool
		invalid   bool
	}{
		{http.StatusServiceUnavailable, true, false},
		{http.StatusInternalServerError, true, false},
		{http.StatusTooManyRequests, true, false},
		{http.StatusBadRequest, false, true},
		{http.StatusRequestEntityTooLarge, false, true},
		{http.StatusForbidden, false, false},
	}
	for _, tt := range tests {
		err := classifyStatus(tt.code, base)
		if got := store.Transient(err); got != tt.transient {
			t.Errorf("%d: transient = %v, want %v", tt.code, got, tt.transient)
		}
		if got := errors.Is(err, store.ErrValidation); got != tt.invalid {
			t.Errorf("%d: validation = %v, want %v", tt.code, got, tt.invalid)
		}
	}
}

func TestConfigFinalize(t *testing.T) {
	cfg := &Config{AccountURL: "https://acct.blob.core.windows.net/", Prefix: "boxes"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.ContainerName != "annotations" || cfg.Prefix != "boxes/" {
		t.Fatalf("config = %+v", cfg)
	}

	t.Setenv("BOXMARK_TEST_BLOB_CONTAINER", "other")
	cfg = &Config{ConnectionString: "UseDevelopmentStorage=true"}
	if err := cfg.Finalize(&Env{ContainerName: "BOXMARK_TEST_BLOB_CONTAINER"}); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if cfg.ContainerName != "other" {
		t.Fatalf("container = %q, want env override", cfg.ContainerName)
	}

	if err := (&Config{}).Finalize(nil); err == nil {
		t.Fatal("expected missing credentials error")
	}
}

func TestKey(t *testing.T) {
	s := &Store{prefix: "p/"}
	if got := s.key("train/1.jpg"); got != "p/train/1.jpg.json" {
		t.Fatalf("key = %q", got)
	}
}
