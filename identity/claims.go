package identity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/upb/identity-gateway/models"
)

// DecodedToken is the verified identity carried by a bearer token
type DecodedToken struct {
	UID       string
	Role      models.Role // empty when the token carries no role claim
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    map[string]interface{}
}

// decodeClaims builds a DecodedToken from a verified claim set. The role is
// read from roleClaim and left empty when absent or not a string.
func decodeClaims(claims map[string]interface{}, roleClaim string) (*DecodedToken, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	decoded := &DecodedToken{
		UID:    sub,
		Claims: claims,
	}
	if role, ok := claims[roleClaim].(string); ok {
		decoded.Role = models.Role(role)
	}
	if email, ok := claims["email"].(string); ok {
		decoded.Email = email
	}
	if iat, ok := numericTime(claims["iat"]); ok {
		decoded.IssuedAt = iat
	}
	if exp, ok := numericTime(claims["exp"]); ok {
		decoded.ExpiresAt = exp
	}

	return decoded, nil
}

// numericTime converts a JWT NumericDate claim value into a time
func numericTime(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return time.Time{}, false
			}
			n = int64(f)
		}
		return time.Unix(n, 0).UTC(), true
	default:
		return time.Time{}, false
	}
}
