package shopify

// AccessToken is a shop access token. It renders as [REDACTED] through fmt,
// encoding/json and encoding.TextMarshaler so it cannot leak into logs or
// response bodies; call Value for the raw credential.
type AccessToken string

const redacted = "[REDACTED]"

func (t AccessToken) Value() string { return string(t) }

func (t AccessToken) IsEmpty() bool { return t == "" }

func (t AccessToken) String() string { return redacted }

func (t AccessToken) GoString() string { return "shopify.AccessToken{" + redacted + "}" }

func (t AccessToken) MarshalText() ([]byte, error) { return []byte(redacted), nil }

func (t AccessToken) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }
