package feed

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func getTestMetadata() *Metadata {
	id := getTestID()
	return &Metadata{
		Feed:            id.Feed,
		Epoch:           id.Epoch,
		ProtocolVersion: ProtocolVersion,
	}
}

func TestDigest(t *testing.T) {
	digest, err := Digest(getTestMetadata(), []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	compareByteSliceToExpectedHex(t, "digest", digest[:], "0x92d8604b38dcb8bdfc34c59a8ec2ea43db146e19c10326c365f619076154b935")

	// same inputs, same digest
	again, _ := Digest(getTestMetadata(), []byte("hello"))
	if again != digest {
		t.Fatal("Expected digest to be deterministic")
	}

	meta := getTestMetadata()
	meta.Epoch.Level--
	other, _ := Digest(meta, []byte("hello"))
	if other == digest {
		t.Fatal("Expected a different epoch to change the digest")
	}
}

func TestDigestDataChecks(t *testing.T) {
	if _, err := Digest(getTestMetadata(), nil); err == nil {
		t.Fatal("Expected digest of empty data to fail")
	}
	if _, err := Digest(getTestMetadata(), make([]byte, MaxUpdateDataLength+1)); err == nil {
		t.Fatal("Expected digest of oversized data to fail")
	}
	if _, err := Digest(getTestMetadata(), make([]byte, MaxUpdateDataLength)); err != nil {
		t.Fatalf("Expected digest of max sized data to succeed, got %v", err)
	}
	meta := getTestMetadata()
	meta.Epoch.Time = MaxTime + 1
	if _, err := Digest(meta, []byte("hello")); err == nil {
		t.Fatal("Expected digest with an overflowing epoch time to fail")
	}
}

func TestSignAndVerify(t *testing.T) {
	privKey, err := crypto.HexToECDSA("deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	if err != nil {
		t.Fatal(err)
	}
	signer := NewGenericSigner(privKey)

	meta := getTestMetadata()
	meta.Feed.User = signer.Address()
	data := []byte("hello")

	digest, err := Digest(meta, data)
	if err != nil {
		t.Fatal(err)
	}
	signature, err := signer.Sign(digest)
	if err != nil {
		t.Fatal(err)
	}
	if err := Verify(meta, data, signature[:]); err != nil {
		t.Fatalf("Expected signature to verify, got %v", err)
	}
	if err := Verify(meta, []byte("jello"), signature[:]); err == nil {
		t.Fatal("Expected signature over different data to fail")
	}
	if err := Verify(meta, data, signature[:64]); err == nil {
		t.Fatal("Expected truncated signature to fail")
	}

	other := getTestMetadata()
	if err := Verify(other, data, signature[:]); err == nil {
		t.Fatal("Expected signature by a non owner to fail")
	}
	if feedErr, ok := Verify(other, data, signature[:]).(*Error); !ok || feedErr.Code() != ErrInvalidSignature {
		t.Fatalf("Expected ErrInvalidSignature, got %v", feedErr)
	}
	if !bytes.Equal(signer.Address().Bytes(), crypto.PubkeyToAddress(privKey.PublicKey).Bytes()) {
		t.Fatal("Expected signer address to match the private key")
	}
}
