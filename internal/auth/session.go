// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTicketMismatch is returned when a valid ticket names a different seat.
	ErrTicketMismatch = errors.New("reconnect ticket does not match this seat")
	ErrTicketRequired = errors.New("reconnect ticket required")
)

// Ticket is what a reconnect token proves: the holder owned a seat under a
// given connection id.
type Ticket struct {
	Username string
	RoomCode string
	ConnID   string
}

// Tickets signs and verifies reconnect tokens with an ed25519 key pair.
type Tickets struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// expireAfter of zero means tokens carry no exp claim.
	expireAfter time.Duration
}

// ParseExpireTime reads a TOKEN_EXPIRE_TIME value. "never", "0" and "" disable expiry.
func ParseExpireTime(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// NewTickets generates a fresh key pair at runtime.
func NewTickets(expireAfter time.Duration) (*Tickets, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Tickets{privateKey: priv, publicKey: pub, expireAfter: expireAfter}, nil
}

// NewTicketsFromPath reads raw ed25519 keys from disk.
func NewTicketsFromPath(privatePath, publicPath string, expireAfter time.Duration) (*Tickets, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("unexpected ed25519 key sizes")
	}
	return &Tickets{
		privateKey:  ed25519.PrivateKey(privateKeyData),
		publicKey:   ed25519.PublicKey(publicKeyData),
		expireAfter: expireAfter,
	}, nil
}

// Issue signs a ticket with "sub" = username.
func (t *Tickets) Issue(tk Ticket) (string, error) {
	claims := jwt.MapClaims{
		"sub":  tk.Username,
		"room": tk.RoomCode,
		"cid":  tk.ConnID,
		"iat":  time.Now().Unix(),
	}
	if t.expireAfter > 0 {
		claims["exp"] = time.Now().Add(t.expireAfter).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(t.privateKey)
}

// Verify checks the signature and expiry and returns the ticket's claims.
func (t *Tickets) Verify(tokenString string) (Ticket, error) {
	tok, err := jwt.Parse(tokenString, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return t.publicKey, nil
	})
	if err != nil {
		return Ticket{}, fmt.Errorf("jwt parse error: %w", err)
	}
	if !tok.Valid {
		return Ticket{}, fmt.Errorf("invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Ticket{}, fmt.Errorf("invalid jwt claims")
	}
	username, ok := claims["sub"].(string)
	if !ok {
		return Ticket{}, fmt.Errorf("missing sub in jwt")
	}
	room, _ := claims["room"].(string)
	cid, _ := claims["cid"].(string)
	return Ticket{Username: username, RoomCode: room, ConnID: cid}, nil
}

// VerifyFor checks that the token was issued for connID.
func (t *Tickets) VerifyFor(tokenString, connID string) (Ticket, error) {
	tk, err := t.Verify(tokenString)
	if err != nil {
		return Ticket{}, err
	}
	if tk.ConnID != connID {
		return Ticket{}, ErrTicketMismatch
	}
	return tk, nil
}
