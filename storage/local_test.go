package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(t.TempDir(), "test-secret")
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	return s
}

func TestLocalStorePutOpenRemove(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()
	data := []byte("audio-bytes")

	if err := s.Put(ctx, "7/track/audio.mp3", bytes.NewReader(data), int64(len(data)), "audio/mpeg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	f, err := s.Open("7/track/audio.mp3")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got, _ := io.ReadAll(f)
	f.Close()
	if !bytes.Equal(got, data) {
		t.Fatalf("read back %q, want %q", got, data)
	}

	if err := s.Remove(ctx, "7/track/audio.mp3"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	// 重复删除不报错
	if err := s.Remove(ctx, "7/track/audio.mp3"); err != nil {
		t.Fatalf("Remove of missing object should be silent, got %v", err)
	}
}

func TestLocalStoreNeutralizesTraversal(t *testing.T) {
	s := newTestLocalStore(t)

	if err := s.Put(context.Background(), "../../escape.mp3", strings.NewReader("x"), 1, "audio/mpeg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// 越界路径被归一化回库目录内
	if _, err := os.Stat(filepath.Join(s.BaseDir(), "escape.mp3")); err != nil {
		t.Fatalf("object should land inside the library dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.BaseDir(), "..", "escape.mp3")); err == nil {
		t.Fatal("object must not escape the library dir")
	}
}

func TestLocalStoreSignedURLVerifies(t *testing.T) {
	s := newTestLocalStore(t)

	signed, err := s.SignedURL(context.Background(), "7/track/audio.mp3", time.Minute)
	if err != nil {
		t.Fatalf("SignedURL failed: %v", err)
	}

	u, err := url.Parse(signed)
	if err != nil {
		t.Fatalf("signed URL does not parse: %v", err)
	}
	key, err := url.PathUnescape(strings.TrimPrefix(u.Path, "/media/"))
	if err != nil {
		t.Fatal(err)
	}

	q := u.Query()
	if !s.VerifyToken(key, q.Get("exp"), q.Get("sig")) {
		t.Fatal("freshly signed URL should verify")
	}
	if s.VerifyToken(key, q.Get("exp"), "deadbeef") {
		t.Fatal("forged signature should not verify")
	}
	if s.VerifyToken("other/key", q.Get("exp"), q.Get("sig")) {
		t.Fatal("signature must be bound to the object key")
	}
}

func TestLocalStoreExpiredTokenRejected(t *testing.T) {
	s := newTestLocalStore(t)

	signed, err := s.SignedURL(context.Background(), "a.mp3", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	u, _ := url.Parse(signed)
	q := u.Query()
	if s.VerifyToken("a.mp3", q.Get("exp"), q.Get("sig")) {
		t.Fatal("expired token should not verify")
	}
}

func TestGuessContentType(t *testing.T) {
	cases := []struct {
		filename string
		declared string
		want     string
	}{
		{"song.mp3", "", "audio/mpeg"},
		{"song.MP3", "application/octet-stream", "audio/mpeg"},
		{"voice.m4a", "", "audio/mp4"},
		{"take.wav", "", "audio/wav"},
		{"rec.amr", "", "audio/amr"},
		{"clip.3gp", "", "audio/3gpp"},
		{"cover.png", "", "image/png"},
		{"cover.jpg", "image/jpeg", "image/jpeg"},
		{"data.bin", "", "application/octet-stream"},
		{"song.mp3", "audio/flac", "audio/flac"}, // 明确声明的类型优先
	}
	for _, tc := range cases {
		if got := GuessContentType(tc.filename, tc.declared); got != tc.want {
			t.Errorf("GuessContentType(%q, %q) = %q, want %q", tc.filename, tc.declared, got, tc.want)
		}
	}
}
