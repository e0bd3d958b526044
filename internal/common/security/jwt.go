package security

import (
	"errors"
	"time"
	"skill_forge/internal/platform/config"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

var TokenAuth *jwtauth.JWTAuth

func InitJWT() {
	TokenAuth = jwtauth.New("HS256", config.AppConfig.JWTKey, nil)
}

// GenerateToken mints a token whose subject is the external identity
// reference. The internal user id deliberately never appears in tokens; the
// identity resolver maps the external id on every authenticated request.
func GenerateToken(externalID, role string) (string, error) {
	claims := jwt.MapClaims{
		"external_id": externalID,
		"role":        role,
		"exp":         time.Now().Add(config.AppConfig.JWTExp).Unix(),
		"iat":         time.Now().Unix(),
	}
	_, tokenString, err := TokenAuth.Encode(claims)
	return tokenString, err
}

func GetExternalIDFromClaims(claims jwt.MapClaims) (string, error) {
	id, ok := claims["external_id"].(string)
	if !ok {
		return "", errors.New("external_id claim is missing or not a string")
	}
	return id, nil
}

func GetUserRoleFromClaims(claims jwt.MapClaims) (string, error) {
	role, ok := claims["role"].(string)
	if !ok {
		return "", errors.New("role claim is missing or not a string")
	}
	return role, nil
}
