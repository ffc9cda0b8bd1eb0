package content

import (
	"testing"

	digest "github.com/opencontainers/go-digest"
)

func TestMarshalDigestMatchesSHA256(t *testing.T) {
	b, d, err := marshalDigest(map[string]string{"appId": "cam", "version": "1.0.0"})
	if err != nil {
		t.Fatalf("marshalDigest: %v", err)
	}

	want := digest.FromBytes(b)
	if d != want {
		t.Fatalf("digest = %s, want %s", d, want)
	}
	if d.Algorithm() != digest.SHA256 {
		t.Fatalf("algorithm = %s, want sha256", d.Algorithm())
	}
}

func TestMarshalDigestDeterministic(t *testing.T) {
	value := struct {
		B string
		A string
	}{B: "2", A: "1"}

	_, d1, err := marshalDigest(value)
	if err != nil {
		t.Fatalf("marshalDigest: %v", err)
	}
	_, d2, err := marshalDigest(value)
	if err != nil {
		t.Fatalf("marshalDigest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digests differ across identical calls: %s != %s", d1, d2)
	}
}
