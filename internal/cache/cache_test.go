package cache

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestIsCacheable(t *testing.T) {
	cases := []struct {
		name   string
		method string
		params string
		want   bool
	}{
		{"immutable method", "eth_chainId", `[]`, true},
		{"immutable by hash", "eth_getBlockByHash", `["0xdead",false]`, true},
		{"specific block", "eth_getStorageAt", `["0xabc","0x8","0x10"]`, true},
		{"latest block", "eth_getStorageAt", `["0xabc","0x8","latest"]`, false},
		{"pending block", "eth_getBalance", `["0xabc","pending"]`, false},
		{"missing block param", "eth_getBalance", `["0xabc"]`, false},
		{"unknown method", "eth_sendRawTransaction", `["0xf86c"]`, false},
		{"block param not a string", "eth_call", `[{"to":"0xabc"},{"blockNumber":"0x1"}]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsCacheable(tc.method, json.RawMessage(tc.params))
			if got != tc.want {
				t.Errorf("IsCacheable(%s, %s) = %v, want %v", tc.method, tc.params, got, tc.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	k1 := Key("eth_getBalance", json.RawMessage(`["0xabc","0x10"]`))
	k2 := Key("eth_getBalance", json.RawMessage(`["0xabc","0x10"]`))
	k3 := Key("eth_getBalance", json.RawMessage(`["0xdef","0x10"]`))
	k4 := Key("eth_getCode", json.RawMessage(`["0xabc","0x10"]`))

	if k1 != k2 {
		t.Error("same request must produce the same key")
	}
	if k1 == k3 {
		t.Error("different params must produce different keys")
	}
	if k1 == k4 {
		t.Error("different methods must produce different keys")
	}
	if Key("eth_chainId", nil) != Key("eth_chainId", nil) {
		t.Error("nil params must produce a stable key")
	}
}

func TestMemoryCache_GetSet(t *testing.T) {
	mc, err := NewMemoryCache(4, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	if _, ok := mc.Get("missing"); ok {
		t.Error("Get on empty cache must miss")
	}

	mc.Set("k", []byte("v"))
	data, ok := mc.Get("k")
	if !ok || string(data) != "v" {
		t.Errorf("Get = %q, %v; want v, true", data, ok)
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	mc, err := NewMemoryCache(4, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("k", []byte("v"))
	time.Sleep(60 * time.Millisecond)

	if _, ok := mc.Get("k"); ok {
		t.Error("entry should have expired")
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	mc, err := NewMemoryCache(2, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}
	defer mc.Close()

	mc.Set("a", []byte("1"))
	mc.Set("b", []byte("2"))
	mc.Set("c", []byte("3"))

	if _, ok := mc.Get("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := mc.Get("c"); !ok {
		t.Error("newest entry should be present")
	}
}

func TestMemoryCache_ConcurrentClose(t *testing.T) {
	mc, err := NewMemoryCache(4, time.Minute)
	if err != nil {
		t.Fatalf("NewMemoryCache: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mc.Close()
		}()
	}
	wg.Wait()
}

func TestNoopCache(t *testing.T) {
	nc := NewNoopCache()
	nc.Set("k", []byte("v"))
	if _, ok := nc.Get("k"); ok {
		t.Error("noop cache must never hit")
	}
	nc.Close()
}
