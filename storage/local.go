package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LocalStore 本地磁盘后端，未配置 MinIO 时作为离线音乐库使用
// 签名URL指向 /media/{key}，由服务端校验 HMAC 后回源磁盘
type LocalStore struct {
	baseDir string
	secret  []byte
}

// NewLocalStore creates a disk-backed store rooted at baseDir.
func NewLocalStore(baseDir, secret string) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建本地音乐库目录失败: %w", err)
	}
	return &LocalStore{baseDir: baseDir, secret: []byte(secret)}, nil
}

// BaseDir returns the library root on disk.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

func (s *LocalStore) pathFor(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("非法对象键: %s", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

// Put writes the object to disk, creating parent directories.
func (s *LocalStore) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("创建对象目录失败: %w", err)
	}

	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("写入对象 %s 失败: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(p)
		return fmt.Errorf("写入对象 %s 失败: %w", key, err)
	}
	return nil
}

// SignedURL returns a /media URL carrying an expiry and an HMAC token.
func (s *LocalStore) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	exp := time.Now().Add(expiry).Unix()
	sig := s.sign(key, exp)
	return fmt.Sprintf("/media/%s?exp=%d&sig=%s", url.PathEscape(key), exp, sig), nil
}

// Remove deletes the object file. Missing files are ignored.
func (s *LocalStore) Remove(ctx context.Context, key string) error {
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除对象 %s 失败: %w", key, err)
	}
	return nil
}

// Open returns a reader for a stored object, for the /media handler.
func (s *LocalStore) Open(key string) (*os.File, error) {
	p, err := s.pathFor(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// VerifyToken checks the expiry and HMAC of a /media request.
func (s *LocalStore) VerifyToken(key, expStr, sig string) bool {
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil || time.Now().Unix() > exp {
		return false
	}
	expected := s.sign(key, exp)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *LocalStore) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", key, exp)
	return hex.EncodeToString(mac.Sum(nil))
}
