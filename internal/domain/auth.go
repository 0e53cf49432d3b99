package domain

import (
	"github.com/dgrijalva/jwt-go"
)

// Claim is the JWT payload issued after a successful wallet
// authentication; the uid is the wallet account uid.
type Claim struct {
	UserUID  string `json:"user_uid"`
	Username string `json:"username"`
	jwt.StandardClaims
}
