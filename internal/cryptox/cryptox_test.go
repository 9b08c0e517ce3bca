package cryptox

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uniclip/uniclipboard/internal/common"
	"github.com/uniclip/uniclipboard/internal/models"
)

func testMasterKey(t *testing.T, b byte) models.MasterKey {
	t.Helper()
	raw := make([]byte, models.KeyLen)
	for i := range raw {
		raw[i] = b
	}
	mk, err := models.NewMasterKey(raw)
	require.NoError(t, err)
	return mk
}

func testKek(t *testing.T, b byte) models.Kek {
	t.Helper()
	raw := make([]byte, models.KeyLen)
	for i := range raw {
		raw[i] = b
	}
	k, err := models.NewKek(raw)
	require.NoError(t, err)
	return k
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	mk := testMasterKey(t, 0x11)
	aad := BlobAad("blob-1")

	blob, err := Encrypt(mk, []byte("clipboard payload"), aad)
	require.NoError(t, err)
	require.Equal(t, models.EncryptedBlobVersion, blob.Version)
	require.Equal(t, models.AeadXChaCha20Poly1305, blob.Aead)
	require.Len(t, blob.Nonce, 24)
	require.Equal(t, AadFingerprint(aad), blob.AadFingerprint)

	plain, err := Decrypt(mk, blob, aad)
	require.NoError(t, err)
	require.Equal(t, []byte("clipboard payload"), plain)
}

func TestDecrypt_AadMismatchIsCorruption(t *testing.T) {
	mk := testMasterKey(t, 0x11)

	blob, err := Encrypt(mk, []byte("payload"), BlobAad("blob-1"))
	require.NoError(t, err)

	_, err = Decrypt(mk, blob, BlobAad("blob-2"))
	require.ErrorIs(t, err, common.ErrCorruptedBlob)
}

func TestDecrypt_WrongKeyIsCorruption(t *testing.T) {
	mk := testMasterKey(t, 0x11)
	other := testMasterKey(t, 0x22)
	aad := InlineAad("event-1", "rep-1")

	blob, err := Encrypt(mk, []byte("payload"), aad)
	require.NoError(t, err)

	_, err = Decrypt(other, blob, aad)
	require.ErrorIs(t, err, common.ErrCorruptedBlob)
}

func TestWrapUnwrapMasterKey(t *testing.T) {
	kek := testKek(t, 0x33)
	mk := testMasterKey(t, 0x44)

	blob, err := WrapMasterKey(kek, mk)
	require.NoError(t, err)
	require.Empty(t, blob.AadFingerprint, "wrap uses no AAD")

	got, err := UnwrapMasterKey(kek, blob)
	require.NoError(t, err)
	require.Equal(t, mk.Bytes(), got.Bytes())
}

func TestUnwrapMasterKey_WrongKekIsWrongPassphrase(t *testing.T) {
	kek := testKek(t, 0x33)
	mk := testMasterKey(t, 0x44)

	blob, err := WrapMasterKey(kek, mk)
	require.NoError(t, err)

	_, err = UnwrapMasterKey(testKek(t, 0x55), blob)
	require.ErrorIs(t, err, common.ErrWrongPassphrase)
}

func TestDeriveKek_Deterministic(t *testing.T) {
	salt := make([]byte, SaltLen)
	params := models.KdfParams{Alg: models.KdfArgon2id, MemKiB: 8 * 1024, Iters: 1, Parallelism: 1}

	k1, err := DeriveKek("secret", salt, params)
	require.NoError(t, err)
	k2, err := DeriveKek("secret", salt, params)
	require.NoError(t, err)
	require.Equal(t, k1.Bytes(), k2.Bytes())

	k3, err := DeriveKek("other", salt, params)
	require.NoError(t, err)
	require.NotEqual(t, k1.Bytes(), k3.Bytes())
}

func TestDeriveKek_RejectsBadInputs(t *testing.T) {
	params := models.DefaultKdfParams()

	_, err := DeriveKek("secret", make([]byte, 8), params)
	require.Error(t, err)

	params.Alg = "scrypt"
	_, err = DeriveKek("secret", make([]byte, SaltLen), params)
	require.Error(t, err)
}

func TestHashPin_VerifyPin(t *testing.T) {
	encoded, err := HashPin("123456")
	require.NoError(t, err)
	require.Len(t, encoded, PinHashEncoding)
	require.Equal(t, byte(0x01), encoded[0])

	require.True(t, VerifyPin("123456", encoded))
	require.False(t, VerifyPin("654321", encoded))
	require.False(t, VerifyPin("123456", encoded[:len(encoded)-1]))
}

func TestNewPin_SixDigits(t *testing.T) {
	for i := 0; i < 16; i++ {
		pin, err := NewPin()
		require.NoError(t, err)
		require.Len(t, pin, 6)
		for _, c := range pin {
			require.True(t, c >= '0' && c <= '9')
		}
	}
}

func TestIdentityFingerprint_Format(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	fp := IdentityFingerprint(pub)
	require.Len(t, fp, 19, "16 chars grouped by 4 with 3 dashes")
	parts := strings.Split(fp, "-")
	require.Len(t, parts, 4)
	for _, p := range parts {
		require.Len(t, p, 4)
	}

	require.Equal(t, fp, IdentityFingerprint(pub), "function of the public key only")

	pub2, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	require.NotEqual(t, fp, IdentityFingerprint(pub2))
}

func TestPairingShortCode_BindsTranscript(t *testing.T) {
	pubA, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pubB, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	nonceA := []byte("nonce-initiator-")
	nonceB := []byte("nonce-responder-")

	code := PairingShortCode("session-1", nonceA, nonceB, pubA, pubB, 1)
	require.Len(t, code, ShortCodeLen)
	require.Equal(t, code, PairingShortCode("session-1", nonceA, nonceB, pubA, pubB, 1))

	require.NotEqual(t, code, PairingShortCode("session-2", nonceA, nonceB, pubA, pubB, 1))
	require.NotEqual(t, code, PairingShortCode("session-1", nonceB, nonceA, pubA, pubB, 1))
	require.NotEqual(t, code, PairingShortCode("session-1", nonceA, nonceB, pubB, pubA, 1))
	require.NotEqual(t, code, PairingShortCode("session-1", nonceA, nonceB, pubA, pubB, 2))
}

func TestContentHash_Format(t *testing.T) {
	h := ContentHash([]byte("hello"))
	require.True(t, strings.HasPrefix(h, "blake3v1:"))
	require.Len(t, h, len("blake3v1:")+64)
	require.Equal(t, h, ContentHash([]byte("hello")))
	require.NotEqual(t, h, ContentHash([]byte("world")))
}

func TestSnapshotHash_ContentOnly(t *testing.T) {
	snap := models.SystemClipboardSnapshot{
		TsMs: 1,
		Representations: []models.ObservedClipboardRepresentation{
			{ID: "r1", FormatID: "public.utf8-plain-text", Mime: "text/plain", Bytes: []byte("hello")},
			{ID: "r2", FormatID: "public.png", Mime: "image/png", Bytes: []byte{1, 2, 3}},
		},
	}

	same := models.SystemClipboardSnapshot{
		TsMs: 999,
		Representations: []models.ObservedClipboardRepresentation{
			{ID: "x1", FormatID: "text", Bytes: []byte("hello")},
			{ID: "x2", FormatID: "image", Bytes: []byte{1, 2, 3}},
		},
	}

	require.Equal(t, SnapshotHash(snap), SnapshotHash(same), "metadata must not influence the hash")

	different := same
	different.Representations = different.Representations[:1]
	require.NotEqual(t, SnapshotHash(snap), SnapshotHash(different))
}
