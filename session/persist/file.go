// Package persist stores the signed-in session between runs of the console.
package persist

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jrsteele09/bizadmin/session"
	"github.com/pkg/errors"
)

var _ session.Persister = (*FilePersister)(nil)

// FilePersister writes the session as JSON to a file readable only by the current user.
type FilePersister struct {
	path string
}

func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// DefaultSessionFile is ~/.bizadmin/session.json.
func DefaultSessionFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "[DefaultSessionFile] home directory")
	}
	return filepath.Join(home, ".bizadmin", "session.json"), nil
}

func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Load(_ context.Context) (*session.Session, error) {
	data, err := os.ReadFile(p.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FilePersister.Load] read")
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "[FilePersister.Load] decode")
	}
	return &s, nil
}

func (p *FilePersister) Save(_ context.Context, s *session.Session) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return errors.Wrap(err, "[FilePersister.Save] create directory")
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FilePersister.Save] encode")
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FilePersister.Save] write")
	}
	return errors.Wrap(os.Rename(tmp, p.path), "[FilePersister.Save] rename")
}

func (p *FilePersister) Clear(_ context.Context) error {
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FilePersister.Clear] remove")
	}
	return nil
}
