package jsonrpc

import (
	"errors"
	"testing"
)

func TestNewRequest_PlaceholderID(t *testing.T) {
	req, err := NewRequest("eth_blockNumber", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if req.ID != 0 {
		t.Errorf("ID = %d, want placeholder 0", req.ID)
	}
	if req.JSONRPC != Version {
		t.Errorf("JSONRPC = %s, want %s", req.JSONRPC, Version)
	}
}

func TestRequest_WireShape(t *testing.T) {
	req, err := NewRequest("eth_getStorageAt", []string{"0xabc", "0x8", "latest"})
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.ID = 7

	data, err := req.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	want := `{"jsonrpc":"2.0","id":7,"method":"eth_getStorageAt","params":["0xabc","0x8","latest"]}`
	if string(data) != want {
		t.Errorf("wire shape:\n got %s\nwant %s", data, want)
	}
}

func TestRequest_WireShape_NoParams(t *testing.T) {
	req, err := NewRequest("eth_chainId", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}

	data, err := req.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	want := `{"jsonrpc":"2.0","id":0,"method":"eth_chainId"}`
	if string(data) != want {
		t.Errorf("wire shape:\n got %s\nwant %s", data, want)
	}
}

func TestNewRequest_UnencodableParams(t *testing.T) {
	_, err := NewRequest("eth_call", make(chan int))
	if err == nil {
		t.Fatal("expected error for unencodable params")
	}
	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Errorf("error = %T, want *EncodeError", err)
	}
}

func TestMarshalRequests(t *testing.T) {
	req1, _ := NewRequest("eth_chainId", nil)
	req2, _ := NewRequest("net_version", nil)
	req1.ID = 3
	req2.ID = 4

	data, err := MarshalRequests([]*Request{req1, req2})
	if err != nil {
		t.Fatalf("MarshalRequests: %v", err)
	}

	want := `[{"jsonrpc":"2.0","id":3,"method":"eth_chainId"},{"jsonrpc":"2.0","id":4,"method":"net_version"}]`
	if string(data) != want {
		t.Errorf("batch shape:\n got %s\nwant %s", data, want)
	}
}

func TestRequest_Validate(t *testing.T) {
	req := &Request{JSONRPC: "1.0", Method: "eth_chainId"}
	if err := req.Validate(); err == nil {
		t.Error("expected error for wrong version")
	}

	req = &Request{JSONRPC: Version}
	if err := req.Validate(); err == nil {
		t.Error("expected error for missing method")
	}

	req = &Request{JSONRPC: Version, Method: "eth_chainId"}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
