package auth

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/labandina/internal/common"
)

// BearerToken extracts the token from an Authorization header value.
//
// ok is false when no credential was supplied at all. A non-nil error means a
// credential was present but is not a usable bearer token.
func BearerToken(header string) (token string, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false, nil
	}

	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", true, fmt.Errorf("%w: unsupported authorization scheme", common.ErrTokenMalformed)
	}

	token = strings.TrimSpace(rest)
	if token == "" {
		return "", true, fmt.Errorf("%w: empty bearer token", common.ErrTokenMalformed)
	}

	return token, true, nil
}
