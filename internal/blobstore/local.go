package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type localConfig struct {
	Dir string `json:"dir"`
}

type localStore struct {
	dir string
}

func init() {
	Register("local", createLocalStore)
}

func createLocalStore(args interface{}) (Store, error) {
	cfg := &localConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("local store dir is required")
	}
	return &localStore{dir: cfg.Dir}, nil
}

func (s *localStore) path(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key")
	}
	return filepath.Join(s.dir, filepath.FromSlash(key)), nil
}

func (s *localStore) Get(ctx context.Context, key string) (*Object, error) {
	_ = ctx
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Object{Data: data, ContentType: detectContentType(data)}, nil
}

func (s *localStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	_ = ctx
	_ = contentType
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	path, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *localStore) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	_ = ctx
	_ = ttl
	path, err := s.path(key)
	if err != nil {
		return "", err
	}
	return "file://" + path, nil
}

func detectContentType(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}
