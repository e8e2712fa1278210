package crypt

import (
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"

	"courier-go/internal/config"
)

func writeArmoredKey(t *testing.T, path, blockType string, serialize func(io.Writer) error) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	aw, err := armor.Encode(f, blockType, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := serialize(aw); err != nil {
		t.Fatal(err)
	}
	if err := aw.Close(); err != nil {
		t.Fatal(err)
	}
}

func newKeyPair(t *testing.T) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity("Courier Test", "", "courier@example.com", nil)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return entity
}

func newTestPGPCrypter(t *testing.T, entity *openpgp.Entity, comment string) *PGPCrypter {
	t.Helper()
	dir := t.TempDir()
	pub := filepath.Join(dir, "pubring.asc")
	priv := filepath.Join(dir, "secring.asc")
	writeArmoredKey(t, pub, openpgp.PublicKeyType, entity.Serialize)
	writeArmoredKey(t, priv, openpgp.PrivateKeyType, func(w io.Writer) error {
		return entity.SerializePrivate(w, nil)
	})

	c, err := NewPGPCrypter(config.EncryptionConfig{
		Type:                 "pgp",
		PublicKeyringPath:    pub,
		PrivateKeyringPath:   priv,
		RecipientFingerprint: hex.EncodeToString(entity.PrimaryKey.Fingerprint[:]),
		Comment:              comment,
	})
	if err != nil {
		t.Fatalf("NewPGPCrypter: %v", err)
	}
	return c
}

func TestPGPRoundTrip(t *testing.T) {
	entity := newKeyPair(t)
	c := newTestPGPCrypter(t, entity, "courier transfer")

	dir := t.TempDir()
	plain := filepath.Join(dir, "report.csv")
	content := []byte("id,amount\n1,400\n")
	if err := os.WriteFile(plain, content, 0644); err != nil {
		t.Fatal(err)
	}

	encrypted, err := c.Encrypt([]string{plain})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if len(encrypted) != 1 {
		t.Fatalf("got %d outputs, want 1", len(encrypted))
	}
	armored := string(encrypted[0])
	if !strings.Contains(armored, "-----BEGIN PGP MESSAGE-----") {
		t.Errorf("output is not armored:\n%s", armored)
	}
	if !strings.Contains(armored, "Comment: courier transfer") {
		t.Errorf("missing comment header:\n%s", armored)
	}
	if bytes.Contains(encrypted[0], content) {
		t.Error("ciphertext contains plaintext")
	}

	cipherFile := filepath.Join(dir, "report.csv.pgp")
	if err := os.WriteFile(cipherFile, encrypted[0], 0644); err != nil {
		t.Fatal(err)
	}
	decrypted, err := c.Decrypt([]string{cipherFile})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted[0], content) {
		t.Errorf("decrypted = %q, want %q", decrypted[0], content)
	}
}

func TestPGPEncryptSigned(t *testing.T) {
	entity := newKeyPair(t)
	c := newTestPGPCrypter(t, entity, "")
	c.signingFP = hex.EncodeToString(entity.PrimaryKey.Fingerprint[:])

	dir := t.TempDir()
	plain := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(plain, []byte("signed payload"), 0644); err != nil {
		t.Fatal(err)
	}

	encrypted, err := c.Encrypt([]string{plain})
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	cipherFile := filepath.Join(dir, "note.txt.pgp")
	if err := os.WriteFile(cipherFile, encrypted[0], 0644); err != nil {
		t.Fatal(err)
	}
	decrypted, err := c.Decrypt([]string{cipherFile})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if string(decrypted[0]) != "signed payload" {
		t.Errorf("decrypted = %q", decrypted[0])
	}
}

func TestPGPDecryptPassesThroughPlaintext(t *testing.T) {
	entity := newKeyPair(t)
	c := newTestPGPCrypter(t, entity, "")

	plain := filepath.Join(t.TempDir(), "readme.txt")
	content := []byte("not encrypted at all")
	if err := os.WriteFile(plain, content, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := c.Decrypt([]string{plain})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(out[0], content) {
		t.Errorf("out = %q, want %q", out[0], content)
	}
}

func TestPGPEncryptUnknownRecipient(t *testing.T) {
	entity := newKeyPair(t)
	c := newTestPGPCrypter(t, entity, "")
	c.recipientFP = "deadbeefdeadbeef"

	plain := filepath.Join(t.TempDir(), "a.txt")
	if err := os.WriteFile(plain, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Encrypt([]string{plain}); err == nil {
		t.Fatal("expected error for unknown recipient fingerprint")
	}
}

func TestPGPImportKeys(t *testing.T) {
	entity := newKeyPair(t)
	c := newTestPGPCrypter(t, entity, "")

	peer := newKeyPair(t)
	peerFile := filepath.Join(t.TempDir(), "peer.asc")
	writeArmoredKey(t, peerFile, openpgp.PublicKeyType, peer.Serialize)

	fps, err := c.ImportKeys([]string{peerFile})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	peerFP := hex.EncodeToString(peer.PrimaryKey.Fingerprint[:])
	if len(fps) != 1 || fps[0] != peerFP {
		t.Fatalf("fingerprints = %v, want [%s]", fps, peerFP)
	}

	// The imported key is usable as a recipient, and the original is still there.
	plain := filepath.Join(t.TempDir(), "b.txt")
	if err := os.WriteFile(plain, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	c.recipientFP = peerFP
	if _, err := c.Encrypt([]string{plain}); err != nil {
		t.Errorf("encrypt to imported key: %v", err)
	}
	c.recipientFP = hex.EncodeToString(entity.PrimaryKey.Fingerprint[:])
	if _, err := c.Encrypt([]string{plain}); err != nil {
		t.Errorf("encrypt to pre-existing key: %v", err)
	}
}

func TestNewPGPCrypterRequiresRecipient(t *testing.T) {
	_, err := NewPGPCrypter(config.EncryptionConfig{
		Type:               "pgp",
		PublicKeyringPath:  "pub.asc",
		PrivateKeyringPath: "sec.asc",
	})
	if err == nil {
		t.Fatal("expected error for missing recipient fingerprint")
	}
}
