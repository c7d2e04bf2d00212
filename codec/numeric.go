package codec

import (
	"github.com/vintasoftware/kill-the-clipboard/shcerr"
)

// minNumericChar and maxNumericChar bound the characters the SMART Health
// Cards numeric encoding can represent: ord(c)-45 must fall in [0,77],
// i.e. c must fall in ['-', 'z'], which covers every character that can
// appear in a compact JWS: base64url's alphabet, and the '.' separators.
const (
	minNumericChar = 45  // '-'
	maxNumericChar = 122 // 'z'
)

// EncodeJwsToNumeric maps each character of a JWS compact-serialization
// string to a two-digit zero-padded decimal equal to ord(c)-45, per the
// SMART Health Cards QR numeric encoding.
func EncodeJwsToNumeric(jws string) (string, error) {
	digits := make([]byte, 0, len(jws)*2)
	for _, r := range jws {
		if r < minNumericChar || r > maxNumericChar {
			return "", shcerr.Newf(shcerr.QrCode, "character %q out of encodable range", r)
		}
		v := int(r) - minNumericChar
		digits = append(digits, byte('0'+v/10), byte('0'+v%10))
	}
	return string(digits), nil
}

// DecodeNumericToJws reverses EncodeJwsToNumeric.
func DecodeNumericToJws(numeric string) (string, error) {
	if len(numeric)%2 != 0 {
		return "", shcerr.New(shcerr.QrCode, "numeric payload has odd length")
	}

	chars := make([]byte, 0, len(numeric)/2)
	for i := 0; i < len(numeric); i += 2 {
		hi, lo := numeric[i], numeric[i+1]
		if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
			return "", shcerr.New(shcerr.QrCode, "numeric payload contains a non-digit pair")
		}
		v := int(hi-'0')*10 + int(lo-'0')
		if v > maxNumericChar-minNumericChar {
			return "", shcerr.Newf(shcerr.QrCode, "numeric pair %d exceeds maximum of 77", v)
		}
		chars = append(chars, byte(v+minNumericChar))
	}
	return string(chars), nil
}
