package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sign_learn_backend/internal/config"
)

type presigningProvider struct {
	LocalStorageProvider
	err    error
	expiry time.Duration
}

func (p *presigningProvider) PresignedURL(ctx context.Context, filename string, expiry time.Duration) (string, error) {
	p.expiry = expiry
	if p.err != nil {
		return "", p.err
	}
	return "https://cdn.example.com/" + filename + "?sig=1", nil
}

func TestLocalStorageUploadAndDelete(t *testing.T) {
	root := t.TempDir()
	svc := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: root}})

	url, err := svc.Upload(context.Background(), "signs/hola.mp4", strings.NewReader("video"), 5, "video/mp4")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if url != "/uploads/signs/hola.mp4" {
		t.Fatalf("unexpected url %s", url)
	}
	data, err := os.ReadFile(filepath.Join(root, "signs", "hola.mp4"))
	if err != nil || string(data) != "video" {
		t.Fatalf("unexpected file content %q (%v)", data, err)
	}

	if err := svc.Delete(context.Background(), "signs/hola.mp4"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "signs", "hola.mp4")); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, got %v", err)
	}
}

func TestLocalStorageStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	p := &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: root}}

	if _, err := p.Upload(context.Background(), "../../escape.mp4", strings.NewReader("x"), 1, "video/mp4"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "escape.mp4")); err != nil {
		t.Fatalf("expected file kept under root: %v", err)
	}
	if _, err := p.Upload(context.Background(), "", io.LimitReader(strings.NewReader(""), 0), 0, ""); err == nil {
		t.Fatalf("expected empty filename to fail")
	}
}

func TestResolveSign(t *testing.T) {
	local := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{}}, Expiry: time.Minute}
	cases := map[string]string{
		"":                             "",
		"https://videos.example/a.mp4": "https://videos.example/a.mp4",
		"HTTP://videos.example/b.mp4":  "HTTP://videos.example/b.mp4",
		"signs/hola.mp4":               "/uploads/signs/hola.mp4",
		"/signs/adios.mp4":             "/uploads/signs/adios.mp4",
	}
	for ref, want := range cases {
		if got := local.ResolveSign(context.Background(), ref); got != want {
			t.Fatalf("ResolveSign(%q): expected %q, got %q", ref, want, got)
		}
	}
}

func TestResolveSignPresigns(t *testing.T) {
	provider := &presigningProvider{LocalStorageProvider: LocalStorageProvider{Config: &config.StorageConfig{}}}
	svc := &StorageService{Provider: provider, Expiry: 15 * time.Minute}

	if got := svc.ResolveSign(context.Background(), "/signs/hola.mp4"); got != "https://cdn.example.com/signs/hola.mp4?sig=1" {
		t.Fatalf("unexpected presigned url %s", got)
	}
	if provider.expiry != 15*time.Minute {
		t.Fatalf("expected expiry 15m, got %s", provider.expiry)
	}

	provider.err = errors.New("offline")
	if got := svc.ResolveSign(context.Background(), "signs/hola.mp4"); got != "/uploads/signs/hola.mp4" {
		t.Fatalf("expected fallback url, got %s", got)
	}
}

func TestNewStorageServiceDefaultExpiry(t *testing.T) {
	svc := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "local", LocalPath: t.TempDir()}})
	if svc.Expiry != defaultSignURLExpiry {
		t.Fatalf("expected default expiry, got %s", svc.Expiry)
	}
	if _, ok := svc.Provider.(*LocalStorageProvider); !ok {
		t.Fatalf("expected local provider, got %T", svc.Provider)
	}
}
