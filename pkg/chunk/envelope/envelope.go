// Package envelope prepares chunks for distribution: xz compression followed
// by optional OpenPGP encryption, and the reverse.
package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/ulikunitz/xz"
)

// DefaultRecipient is the key identity chunks are encrypted to when no
// recipient is configured.
const DefaultRecipient = "trec-kba"

var (
	// ErrNoRecipient is returned when no key in the public keyring matches the recipient.
	ErrNoRecipient = errors.New("envelope: no matching recipient key")
	// ErrNoPrivateKey is returned when decrypting without a private keyring.
	ErrNoPrivateKey = errors.New("envelope: no private key")
)

// EncryptOptions selects the encryption stage. A nil PublicKeyRing disables
// encryption.
type EncryptOptions struct {
	PublicKeyRing openpgp.EntityList
	// Recipient matches a substring of a key identity or a hex key id.
	Recipient string
}

// DecryptOptions selects the decryption stage. A nil PrivateKeyRing means the
// input is only xz-compressed.
type DecryptOptions struct {
	PrivateKeyRing openpgp.EntityList
	Passphrase     []byte
}

// encryptConfig leaves compression to xz.
func encryptConfig() *packet.Config {
	return &packet.Config{DefaultCompressionAlgo: packet.CompressionNone}
}

// CompressAndEncrypt xz-compresses data and, when a public keyring is given,
// encrypts the result.
func CompressAndEncrypt(data []byte, opts EncryptOptions) ([]byte, error) {
	var out bytes.Buffer
	w, err := NewWriter(&out, opts)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("envelope: compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// DecryptAndUncompress reverses CompressAndEncrypt.
func DecryptAndUncompress(data []byte, opts DecryptOptions) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(data), opts)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("envelope: uncompress: %w", err)
	}
	return out, nil
}

type stackedWriter struct {
	io.Writer
	closers []io.Closer
}

// Close closes the stages innermost first; the destination itself is left open.
func (s *stackedWriter) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("envelope: close: %w", err)
		}
	}
	s.closers = nil
	return firstErr
}

// NewWriter returns a writer that compresses, then optionally encrypts, into
// dst. Close must be called to flush both stages; it does not close dst.
func NewWriter(dst io.Writer, opts EncryptOptions) (io.WriteCloser, error) {
	var closers []io.Closer
	sink := dst
	if opts.PublicKeyRing != nil {
		to, err := recipients(opts.PublicKeyRing, opts.Recipient)
		if err != nil {
			return nil, err
		}
		plain, err := openpgp.Encrypt(dst, to, nil, nil, encryptConfig())
		if err != nil {
			return nil, fmt.Errorf("envelope: encrypt: %w", err)
		}
		sink = plain
		closers = append(closers, plain)
	}
	xw, err := xz.NewWriter(sink)
	if err != nil {
		return nil, fmt.Errorf("envelope: xz: %w", err)
	}
	closers = append([]io.Closer{xw}, closers...)
	return &stackedWriter{Writer: xw, closers: closers}, nil
}

// NewReader returns a reader that optionally decrypts, then decompresses, src.
// Integrity failures of the encrypted stream surface from Read at EOF.
func NewReader(src io.Reader, opts DecryptOptions) (io.Reader, error) {
	body := src
	if opts.PrivateKeyRing != nil {
		if err := unlock(opts.PrivateKeyRing, opts.Passphrase); err != nil {
			return nil, err
		}
		md, err := openpgp.ReadMessage(src, opts.PrivateKeyRing, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("envelope: decrypt: %w", err)
		}
		body = md.UnverifiedBody
	}
	xr, err := xz.NewReader(body)
	if err != nil {
		return nil, fmt.Errorf("envelope: xz: %w", err)
	}
	return xr, nil
}

// LoadKeyRing reads an armored or binary OpenPGP keyring from path.
func LoadKeyRing(path string) (openpgp.EntityList, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("envelope: read keyring: %w", err)
	}
	var ring openpgp.EntityList
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("-----BEGIN PGP")) {
		ring, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(raw))
	} else {
		ring, err = openpgp.ReadKeyRing(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("envelope: parse keyring %s: %w", path, err)
	}
	return ring, nil
}

func recipients(ring openpgp.EntityList, recipient string) ([]*openpgp.Entity, error) {
	if recipient == "" {
		recipient = DefaultRecipient
	}
	needle := strings.ToLower(recipient)
	var out []*openpgp.Entity
	for _, e := range ring {
		if matches(e, needle) {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoRecipient, recipient)
	}
	return out, nil
}

func matches(e *openpgp.Entity, needle string) bool {
	if e.PrimaryKey != nil {
		id := strings.ToLower(e.PrimaryKey.KeyIdString())
		if hexID := strings.TrimPrefix(needle, "0x"); len(hexID) >= 8 && strings.HasSuffix(id, hexID) {
			return true
		}
	}
	for name := range e.Identities {
		if strings.Contains(strings.ToLower(name), needle) {
			return true
		}
	}
	return false
}

// unlock decrypts any passphrase-protected private keys in ring.
func unlock(ring openpgp.EntityList, passphrase []byte) error {
	var found bool
	for _, e := range ring {
		if e.PrivateKey == nil {
			continue
		}
		found = true
		if e.PrivateKey.Encrypted {
			if err := e.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("envelope: unlock key %s: %w", e.PrimaryKey.KeyIdString(), err)
			}
		}
		for _, sub := range e.Subkeys {
			if sub.PrivateKey != nil && sub.PrivateKey.Encrypted {
				if err := sub.PrivateKey.Decrypt(passphrase); err != nil {
					return fmt.Errorf("envelope: unlock subkey %s: %w", sub.PublicKey.KeyIdString(), err)
				}
			}
		}
	}
	if !found {
		return ErrNoPrivateKey
	}
	return nil
}
