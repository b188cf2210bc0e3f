package shopify

import "strings"

const shopSuffix = ".myshopify.com"

// NormalizeShop trims and lower-cases a shop parameter.
func NormalizeShop(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsValidShopDomain reports whether shop looks like <store>.myshopify.com.
// The extra checks keep the value safe to use as a URL host.
func IsValidShopDomain(shop string) bool {
	if !strings.HasSuffix(shop, shopSuffix) {
		return false
	}
	if strings.ContainsAny(shop, "/ \t\r\n?#@:\\") {
		return false
	}
	return len(shop) >= len("a"+shopSuffix)
}
