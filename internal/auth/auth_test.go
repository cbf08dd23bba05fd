package auth

import (
	"sync"
	"testing"
)

func TestSignHexGolden(t *testing.T) {
	// Fixed vector so signature drift shows up as a test failure.
	got := SignHex("secret", "AUTH1700000000000000")
	want := "972fdb5f9dd2676d1d363fff221e4db3f14cf7a1bd7cf5c2baae317251d6aca9f1412106221dbac44d35ce125fbf4840"
	if got != want {
		t.Fatalf("SignHex() = %s, want %s", got, want)
	}
}

func TestNonceStrictlyIncreasing(t *testing.T) {
	source := NewNonceSource()
	prev := source.Next()
	for i := 0; i < 10_000; i++ {
		next := source.Next()
		if next <= prev {
			t.Fatalf("nonce %d not greater than %d", next, prev)
		}
		prev = next
	}
}

func TestNonceConcurrentUniqueness(t *testing.T) {
	source := NewNonceSource()
	const workers, perWorker = 8, 500
	seen := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				seen <- source.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)
	unique := make(map[int64]struct{}, workers*perWorker)
	for nonce := range seen {
		if _, dup := unique[nonce]; dup {
			t.Fatalf("duplicate nonce %d", nonce)
		}
		unique[nonce] = struct{}{}
	}
}

func TestCredentialsConfigured(t *testing.T) {
	if (Credentials{Key: "k"}).Configured() {
		t.Fatalf("missing secret must not report configured")
	}
	if !(Credentials{Key: "k", Secret: "s"}).Configured() {
		t.Fatalf("full pair must report configured")
	}
}
