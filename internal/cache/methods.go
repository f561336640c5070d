package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// methodCacheable lists methods whose results are immutable once created
// and can be cached unconditionally on the client side.
var methodCacheable = map[string]bool{
	"eth_getBlockByHash":                    true,
	"eth_getTransactionByHash":              true,
	"eth_getTransactionReceipt":             true,
	"eth_getBlockTransactionCountByHash":    true,
	"eth_getTransactionByBlockHashAndIndex": true,
	"eth_chainId":                           true,
	"net_version":                           true,
}

// methodBlockParamIndex maps block-dependent methods to the position of
// their block parameter. These are cacheable only when that parameter is a
// specific block number, not a dynamic tag.
var methodBlockParamIndex = map[string]int{
	"eth_getBlockByNumber":    0,
	"eth_getBalance":          1,
	"eth_getCode":             1,
	"eth_getTransactionCount": 1,
	"eth_call":                1,
	"eth_getStorageAt":        2,
}

// dynamicBlockTags resolve to different blocks over time - not cacheable
var dynamicBlockTags = map[string]bool{
	"latest":    true,
	"pending":   true,
	"earliest":  true,
	"safe":      true,
	"finalized": true,
}

// IsCacheable reports whether a single call's result may be cached, based
// on the method and its raw params.
func IsCacheable(method string, params json.RawMessage) bool {
	if methodCacheable[method] {
		return true
	}

	idx, ok := methodBlockParamIndex[method]
	if !ok {
		return false
	}

	var paramsArray []json.RawMessage
	if err := json.Unmarshal(params, &paramsArray); err != nil {
		return false
	}
	if idx >= len(paramsArray) {
		// Missing block param defaults to latest
		return false
	}

	var tag string
	if err := json.Unmarshal(paramsArray[idx], &tag); err != nil {
		// Block param can be an object (eth_call); skip caching those
		return false
	}
	return !dynamicBlockTags[strings.ToLower(tag)]
}

// Key creates a cache key for a request from its method and params
func Key(method string, params json.RawMessage) string {
	normalized := params
	if len(normalized) == 0 {
		normalized = []byte("[]")
	}
	hash := sha256.Sum256(normalized)
	return method + ":" + hex.EncodeToString(hash[:8])
}
