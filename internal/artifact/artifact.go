// Package artifact keeps per-session files, currently the join-link QR code.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/life-stream-dev/life-stream-go-trivia-coordinator/internal/logger"
)

const imageSize = 256

// Store writes artifacts under one directory, named by session id.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path is where the join-link image of id lives.
func (s *Store) Path(id string) string {
	return filepath.Join(s.dir, filepath.Base(id)+".png")
}

// WriteJoinLink renders url as a PNG QR code for id.
func (s *Store) WriteJoinLink(id, url string) error {
	if err := qrcode.WriteFile(url, qrcode.Medium, imageSize, s.Path(id)); err != nil {
		return fmt.Errorf("write join link for %s: %w", id, err)
	}
	logger.DebugF("Join link for %s written to %s", id, s.Path(id))
	return nil
}

func (s *Store) Exists(id string) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Remove deletes every artifact of id. Missing files are not an error.
func (s *Store) Remove(id string) error {
	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove join link for %s: %w", id, err)
	}
	return nil
}
