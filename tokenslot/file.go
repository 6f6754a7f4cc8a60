package tokenslot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filippo.io/age"
)

const slotFileMode = 0o600

// File persists the token in a single file. Writes go through a temp file and
// rename so a reader never sees a partial record.
type File struct {
	path     string
	identity *age.X25519Identity

	mu  sync.Mutex
	now func() time.Time
}

// FileOption configures a [File] slot.
type FileOption func(*File)

// WithIdentity seals records with the identity's recipient and opens them with
// the identity. Records written without sealing are rejected once an identity
// is set.
func WithIdentity(id *age.X25519Identity) FileOption {
	return func(f *File) {
		f.identity = id
	}
}

// NewFile returns a slot stored at path. The parent directory is created on
// first write.
func NewFile(path string, opts ...FileOption) *File {
	f := &File{path: path, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the file backing the slot.
func (f *File) Path() string {
	return f.path
}

// Sealed reports whether records are encrypted at rest.
func (f *File) Sealed() bool {
	return f.identity != nil
}

// Read returns the stored token. A missing file is an empty slot.
func (f *File) Read(ctx context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(data) == 0 {
		return "", false, nil
	}

	if f.identity != nil {
		data, err = f.open(data)
		if err != nil {
			return "", false, err
		}
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		return "", false, err
	}
	return rec.Token, rec.Token != "", nil
}

// Write stores token, replacing any previous value. Writing the empty token
// is equivalent to Clear.
func (f *File) Write(ctx context.Context, token string) error {
	if token == "" {
		return f.Clear(ctx)
	}

	data, err := EncodeRecord(token, f.now())
	if err != nil {
		return err
	}
	if f.identity != nil {
		data, err = f.seal(data)
		if err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeAtomic(data)
}

// Clear removes the file. Clearing an empty slot is a no-op.
func (f *File) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (f *File) writeAtomic(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tmp, err := os.CreateTemp(dir, ".slot-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(slotFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (f *File) seal(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, f.identity.Recipient())
	if err != nil {
		return nil, fmt.Errorf("seal token record: %w", err)
	}
	if _, err := w.Write(plain); err != nil {
		return nil, fmt.Errorf("seal token record: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("seal token record: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *File) open(sealed []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(sealed), f.identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return plain, nil
}
