package relaySigner

// IRelaySigner signs relay requests with the client key named in the AAT.
// The relay network checks the signature against the token's client public key.
type IRelaySigner interface {
	// SignRelay signs the request hash of a relay and returns the raw signature
	SignRelay(requestHash []byte) ([]byte, error)
	// PublicKey returns the client public key matching the signatures
	PublicKey() []byte
}
