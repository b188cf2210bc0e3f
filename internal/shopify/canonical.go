package shopify

import (
	"net/url"
	"sort"
	"strings"
)

// Canonicalize renders the signed part of a callback query: every parameter
// except hmac and signature, keys sorted, repeated values comma-joined in
// their original order, pairs joined with "&". Values are used as decoded.
func Canonicalize(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(params[k], ","))
	}
	return strings.Join(parts, "&")
}
