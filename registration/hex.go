package registration

import (
	"encoding/hex"
	"fmt"
	"strings"

	"sigaddr/signature"
)

// decodeHex accepts "488B05", "48 8B 05" and "48,8B,05".
func decodeHex(name, field, s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', ',', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, nil
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s: %v", signature.ErrMalformedSignature, name, field, err)
	}
	return b, nil
}
