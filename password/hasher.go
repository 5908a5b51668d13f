package password

import "errors"

// MinLength is the shortest password accepted by Policy.
const MinLength = 8

var (
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password is empty")
	// ErrTooShort is returned by Policy for passwords under MinLength bytes.
	ErrTooShort = errors.New("password must be at least 8 characters")
	// ErrMalformedHash is returned when a stored hash cannot be decoded.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher turns plaintext into a stored hash and checks plaintext against one.
//
// Verify reports (false, nil) for a well-formed hash that does not match and a
// non-nil error only when the stored hash cannot be interpreted.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
}

// Compare reports whether password matches encodedHash. Mismatch and malformed
// hashes both yield false.
func Compare(h Hasher, password, encodedHash string) bool {
	if h == nil || encodedHash == "" {
		return false
	}
	ok, err := h.Verify(password, encodedHash)
	return err == nil && ok
}

// Policy enforces the minimum password length. Password bytes are used exactly
// as provided (no Unicode normalization).
func Policy(password string) error {
	if len(password) < MinLength {
		return ErrTooShort
	}
	return nil
}
