// Package jwt issues and verifies session tokens.
//
// Every token carries sub, role, fingerprint, jti, iat and exp, plus iss/aud
// when configured and caller-supplied claims under "ext". The jti is 20 random
// bytes hex encoded. Verification is strict: the algorithm is pinned, exp is
// mandatory and issuer/audience must match when set.
package jwt
