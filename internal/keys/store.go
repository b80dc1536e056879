package keys

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"framecloak/internal/fileutil"
	"framecloak/internal/services"
)

const (
	publicFile  = "public.key"
	privateFile = "private.key"
	lockFile    = "keys.lock"
	archiveDir  = "archive"
)

var errNoKeys = services.Wrap(services.ErrConfiguration, "keys", "load", "no key pair available; run `framecloak keys init`", nil)

// FileStore persists a key pair as hex files in a directory. Generation and
// rotation are serialized across processes with a file lock.
type FileStore struct {
	dir  string
	lock *flock.Flock
	now  func() time.Time
}

// NewFileStore returns a store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
		now:  time.Now,
	}
}

// Dir returns the key directory.
func (s *FileStore) Dir() string { return s.dir }

// KeyPair implements Provider by loading the persisted pair.
func (s *FileStore) KeyPair() (*KeyPair, error) {
	return s.Load()
}

// Load reads and validates the persisted pair.
func (s *FileStore) Load() (*KeyPair, error) {
	privText, err := os.ReadFile(filepath.Join(s.dir, privateFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNoKeys
	}
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "keys", "load", "read private key", err)
	}
	pubText, err := os.ReadFile(filepath.Join(s.dir, publicFile))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "keys", "load", "read public key", err)
	}
	priv, err := decodeKey(string(privText))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "keys", "load", "parse private key", err)
	}
	pub, err := decodeKey(string(pubText))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "keys", "load", "parse public key", err)
	}
	kp := &KeyPair{Public: pub, Private: priv}
	if err := kp.Validate(); err != nil {
		return nil, err
	}
	return kp, nil
}

// Ensure returns the persisted pair, generating one first when none exists.
// created reports whether a new pair was written.
func (s *FileStore) Ensure() (kp *KeyPair, created bool, err error) {
	unlock, err := s.acquire()
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	kp, err = s.Load()
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, errNoKeys) {
		return nil, false, err
	}
	kp, err = Generate()
	if err != nil {
		return nil, false, err
	}
	if err := s.write(kp); err != nil {
		return nil, false, err
	}
	return kp, true, nil
}

// Rotate archives the current pair (if any) and writes a fresh one. It returns
// the new pair and the archive directory, which is empty when there was
// nothing to archive.
func (s *FileStore) Rotate() (*KeyPair, string, error) {
	unlock, err := s.acquire()
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	archived := ""
	if _, err := os.Stat(filepath.Join(s.dir, privateFile)); err == nil {
		archived = filepath.Join(s.dir, archiveDir, s.now().UTC().Format("20060102T150405.000000000Z"))
		if err := os.MkdirAll(archived, 0o700); err != nil {
			return nil, "", services.Wrap(services.ErrCollaborator, "keys", "rotate", "create archive directory", err)
		}
		for _, name := range []string{privateFile, publicFile} {
			src := filepath.Join(s.dir, name)
			if err := os.Rename(src, filepath.Join(archived, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, "", services.Wrap(services.ErrCollaborator, "keys", "rotate", "archive "+name, err)
			}
		}
	}

	kp, err := Generate()
	if err != nil {
		return nil, "", err
	}
	if err := s.write(kp); err != nil {
		return nil, "", err
	}
	return kp, archived, nil
}

func (s *FileStore) acquire() (func(), error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "keys", "lock", "create key directory", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrCollaborator, "keys", "lock", "acquire key lock", err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrCollaborator, "keys", "lock", "another process is updating keys in "+s.dir, nil)
	}
	return func() { _ = s.lock.Unlock() }, nil
}

func (s *FileStore) write(kp *KeyPair) error {
	if err := fileutil.WriteFileAtomic(filepath.Join(s.dir, privateFile), []byte(hex.EncodeToString(kp.Private[:])+"\n"), 0o600); err != nil {
		return services.Wrap(services.ErrCollaborator, "keys", "write", "write private key", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(s.dir, publicFile), []byte(kp.PublicHex()+"\n"), 0o644); err != nil {
		return services.Wrap(services.ErrCollaborator, "keys", "write", "write public key", err)
	}
	return nil
}

// ListArchives returns archived key directories, oldest first.
func (s *FileStore) ListArchives() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, archiveDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			out = append(out, filepath.Join(s.dir, archiveDir, entry.Name()))
		}
	}
	return out, nil
}
