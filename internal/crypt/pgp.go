package crypt

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"courier-go/internal/config"
	"courier-go/internal/courier"
)

const messageType = "PGP MESSAGE"

// messageMarker identifies armored PGP content; files without it are handed
// through Decrypt untouched.
var messageMarker = []byte("-----BEGIN " + messageType + "-----")

// PGPCrypter implements courier.Crypter with OpenPGP. Keys live in two
// armored keyring files; the recipient and optional signer are addressed by
// hex fingerprint (full or suffix). Encrypted private keys are unlocked with
// the configured passphrase.
type PGPCrypter struct {
	publicKeyringPath  string
	privateKeyringPath string
	recipientFP        string
	signingFP          string
	passphrase         []byte
	comment            string
}

var _ courier.Crypter = (*PGPCrypter)(nil)

// NewPGPCrypter creates a PGPCrypter from configuration. The recipient
// fingerprint is obligatory; everything else has workable defaults.
func NewPGPCrypter(cfg config.EncryptionConfig) (*PGPCrypter, error) {
	if cfg.RecipientFingerprint == "" {
		return nil, &courier.ConfigurationError{Reason: "pgp encryption requires recipient_fingerprint"}
	}
	if cfg.PublicKeyringPath == "" || cfg.PrivateKeyringPath == "" {
		return nil, &courier.ConfigurationError{Reason: "pgp encryption requires keyring paths"}
	}
	return &PGPCrypter{
		publicKeyringPath:  cfg.PublicKeyringPath,
		privateKeyringPath: cfg.PrivateKeyringPath,
		recipientFP:        cfg.RecipientFingerprint,
		signingFP:          cfg.SigningFingerprint,
		passphrase:         []byte(cfg.Passphrase),
		comment:            cfg.Comment,
	}, nil
}

// Encrypt encrypts each file to the recipient key, signing when a signer is
// configured. Output is armored, with the configured Comment header if any.
func (c *PGPCrypter) Encrypt(paths []string) ([][]byte, error) {
	pubRing, err := readKeyring(c.publicKeyringPath)
	if err != nil {
		return nil, err
	}
	recipient, err := entityByFingerprint(pubRing, c.recipientFP)
	if err != nil {
		return nil, err
	}

	var signer *openpgp.Entity
	if c.signingFP != "" {
		privRing, err := readKeyring(c.privateKeyringPath)
		if err != nil {
			return nil, err
		}
		signer, err = entityByFingerprint(privRing, c.signingFP)
		if err != nil {
			return nil, err
		}
		if err := c.unlockEntity(signer); err != nil {
			return nil, err
		}
	}

	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		var buf bytes.Buffer
		var headers map[string]string
		if c.comment != "" {
			headers = map[string]string{"Comment": c.comment}
		}
		aw, err := armor.Encode(&buf, messageType, headers)
		if err != nil {
			return nil, fmt.Errorf("creating armor for %s: %w", p, err)
		}
		pw, err := openpgp.Encrypt(aw, []*openpgp.Entity{recipient}, signer,
			&openpgp.FileHints{FileName: filepath.Base(p)}, nil)
		if err != nil {
			return nil, fmt.Errorf("encrypting %s: %w", p, err)
		}
		if _, err := pw.Write(data); err != nil {
			return nil, fmt.Errorf("encrypting %s: %w", p, err)
		}
		if err := pw.Close(); err != nil {
			return nil, fmt.Errorf("finalizing encryption of %s: %w", p, err)
		}
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("finalizing armor of %s: %w", p, err)
		}
		buf.WriteByte('\n')
		out = append(out, buf.Bytes())
	}
	return out, nil
}

// Decrypt decrypts each file with the private keyring. Files that do not
// contain an armored PGP message are returned unchanged; the peer may send
// plaintext next to ciphertext and that is not an error.
func (c *PGPCrypter) Decrypt(paths []string) ([][]byte, error) {
	keyring, err := c.decryptionKeyring()
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !bytes.Contains(raw, messageMarker) {
			out = append(out, raw)
			continue
		}

		block, err := armor.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding armor of %s: %w", p, err)
		}
		md, err := openpgp.ReadMessage(block.Body, keyring, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("decrypting %s: %w", p, err)
		}
		data, err := io.ReadAll(md.UnverifiedBody)
		if err != nil {
			return nil, fmt.Errorf("decrypting %s: %w", p, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// ImportKeys adds armored keys to the keyrings: public keys to the public
// ring, keys with private material to the private ring. Returns the primary
// fingerprints of the imported keys.
func (c *PGPCrypter) ImportKeys(paths []string) ([]string, error) {
	var fingerprints []string
	var pubNew, privNew openpgp.EntityList
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("opening key file %s: %w", p, err)
		}
		entities, err := openpgp.ReadArmoredKeyRing(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("reading key file %s: %w", p, err)
		}
		for _, e := range entities {
			fingerprints = append(fingerprints, hex.EncodeToString(e.PrimaryKey.Fingerprint[:]))
			if e.PrivateKey != nil {
				privNew = append(privNew, e)
			} else {
				pubNew = append(pubNew, e)
			}
		}
	}

	if len(pubNew) > 0 {
		if err := c.appendToKeyring(c.publicKeyringPath, openpgp.PublicKeyType, pubNew, false); err != nil {
			return nil, err
		}
	}
	if len(privNew) > 0 {
		if err := c.appendToKeyring(c.privateKeyringPath, openpgp.PrivateKeyType, privNew, true); err != nil {
			return nil, err
		}
	}
	return fingerprints, nil
}

// decryptionKeyring loads both rings (private first, for decryption keys;
// public for signature verification) and unlocks encrypted private keys.
func (c *PGPCrypter) decryptionKeyring() (openpgp.EntityList, error) {
	privRing, err := readKeyring(c.privateKeyringPath)
	if err != nil {
		return nil, err
	}
	if len(privRing) == 0 {
		return nil, &courier.ConfigurationError{Reason: "pgp decryption requires a private keyring with at least one key"}
	}
	for _, e := range privRing {
		if err := c.unlockEntity(e); err != nil {
			return nil, err
		}
	}
	pubRing, err := readKeyring(c.publicKeyringPath)
	if err != nil {
		return nil, err
	}
	return append(privRing, pubRing...), nil
}

// unlockEntity decrypts an entity's private key material with the
// configured passphrase, if it is encrypted.
func (c *PGPCrypter) unlockEntity(e *openpgp.Entity) error {
	keys := []interface{ Decrypt([]byte) error }{}
	if e.PrivateKey != nil && e.PrivateKey.Encrypted {
		keys = append(keys, e.PrivateKey)
	}
	for i := range e.Subkeys {
		sk := &e.Subkeys[i]
		if sk.PrivateKey != nil && sk.PrivateKey.Encrypted {
			keys = append(keys, sk.PrivateKey)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if len(c.passphrase) == 0 {
		return &courier.ConfigurationError{Reason: "pgp private key is encrypted but no passphrase is configured"}
	}
	for _, k := range keys {
		if err := k.Decrypt(c.passphrase); err != nil {
			return fmt.Errorf("unlocking private key: %w", err)
		}
	}
	return nil
}

// appendToKeyring rewrites a keyring file as a single armored block holding
// the existing entities plus the new ones.
func (c *PGPCrypter) appendToKeyring(path, blockType string, add openpgp.EntityList, private bool) error {
	existing, err := readKeyring(path)
	if err != nil {
		return err
	}
	all := append(existing, add...)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating keyring directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("writing keyring %s: %w", path, err)
	}
	defer f.Close()

	aw, err := armor.Encode(f, blockType, nil)
	if err != nil {
		return fmt.Errorf("creating keyring armor: %w", err)
	}
	for _, e := range all {
		if private && e.PrivateKey != nil {
			err = e.SerializePrivateWithoutSigning(aw, nil)
		} else {
			err = e.Serialize(aw)
		}
		if err != nil {
			return fmt.Errorf("serializing key %s: %w", hex.EncodeToString(e.PrimaryKey.Fingerprint[:]), err)
		}
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("finalizing keyring armor: %w", err)
	}
	return nil
}

// readKeyring reads an armored keyring file. A missing file is an empty
// keyring, not an error.
func readKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening keyring %s: %w", path, err)
	}
	defer f.Close()

	ring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("reading keyring %s: %w", path, err)
	}
	return ring, nil
}

// entityByFingerprint finds the entity whose primary key fingerprint ends
// with the given hex string (spaces ignored, case-insensitive).
func entityByFingerprint(ring openpgp.EntityList, fp string) (*openpgp.Entity, error) {
	want := strings.ToLower(strings.ReplaceAll(fp, " ", ""))
	for _, e := range ring {
		got := hex.EncodeToString(e.PrimaryKey.Fingerprint[:])
		if strings.HasSuffix(got, want) {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no key with fingerprint %s in keyring", fp)
}
