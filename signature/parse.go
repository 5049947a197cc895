package signature

import (
	"fmt"
	"strings"
)

// Parse parses a human-authored signature such as "48 8B 05 ?? ?? ?? ?? 90".
// Tokens are separated by whitespace or commas; "?" and "??" are wildcards and
// any other token is a run of hex digits of even length ("488B05" is three
// bytes).
func Parse(name, signature string) (*Pattern, error) {
	tokens := strings.FieldsFunc(signature, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: %q: empty signature", ErrMalformedSignature, name)
	}

	var (
		bytes []byte
		mask  []bool
	)
	for _, tok := range tokens {
		if tok == "?" || tok == "??" {
			bytes = append(bytes, 0)
			mask = append(mask, false)
			continue
		}

		if len(tok)%2 != 0 {
			return nil, fmt.Errorf("%w: %q: odd-length hex run %q", ErrMalformedSignature, name, tok)
		}

		for i := 0; i < len(tok); i += 2 {
			hi, ok1 := fromHexChar(tok[i])
			lo, ok2 := fromHexChar(tok[i+1])
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: %q: invalid hex byte %q", ErrMalformedSignature, name, tok[i:i+2])
			}
			bytes = append(bytes, hi<<4|lo)
			mask = append(mask, true)
		}
	}

	return NewPattern(name, bytes, mask)
}

// MustParse is like Parse but panics on error. It is meant for registration
// code that runs at program initialization.
func MustParse(name, signature string) *Pattern {
	p, err := Parse(name, signature)
	if err != nil {
		panic(err)
	}
	return p
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
