package address

import "testing"

func TestRoutingKeyPrefersHashKey(t *testing.T) {
	rk := RoutingKey([]byte("user:42"), []byte("profile"))
	if string(rk) != "user:42" {
		t.Fatalf("got %q, want %q", rk, "user:42")
	}
}

func TestRoutingKeyFallsBackToSortKey(t *testing.T) {
	rk := RoutingKey(nil, []byte("profile"))
	if string(rk) != "profile" {
		t.Fatalf("got %q, want %q", rk, "profile")
	}
}

func TestPartitionIndexRejectsNonPowerOfTwo(t *testing.T) {
	if _, err := PartitionIndex([]byte("k"), 3); err == nil {
		t.Fatal("expected error for non power-of-two partition count")
	}
}

func TestPartitionIndexIsStableAndInRange(t *testing.T) {
	const partitionCount = 8
	rk := RoutingKey([]byte("user:42"), nil)
	pi, err := PartitionIndex(rk, partitionCount)
	if err != nil {
		t.Fatalf("PartitionIndex: %v", err)
	}
	if pi < 0 || pi >= partitionCount {
		t.Fatalf("partition index %d out of range [0,%d)", pi, partitionCount)
	}

	pi2, err := PartitionIndex(rk, partitionCount)
	if err != nil {
		t.Fatalf("PartitionIndex: %v", err)
	}
	if pi != pi2 {
		t.Fatalf("PartitionIndex not stable: %d != %d", pi, pi2)
	}
}

func TestPartitionIndexMatchesMask(t *testing.T) {
	rk := []byte("some-key")
	h := Hash64(rk)
	pi, err := PartitionIndex(rk, 16)
	if err != nil {
		t.Fatalf("PartitionIndex: %v", err)
	}
	if want := int32(h & 15); pi != want {
		t.Fatalf("pi = %d, want %d", pi, want)
	}
}
