package keys

// Provider supplies the key pair used by a Cipher.
type Provider interface {
	KeyPair() (*KeyPair, error)
}

// Static is a Provider that always returns the same pair.
type Static struct {
	Pair *KeyPair
}

func (s Static) KeyPair() (*KeyPair, error) {
	if s.Pair == nil {
		return nil, errNoKeys
	}
	return s.Pair, nil
}
