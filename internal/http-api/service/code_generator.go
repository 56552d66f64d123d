package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"yamdb/internal/http-api/models"

	"golang.org/x/crypto/hkdf"
)

const (
	codeKeyInfo  = "yamdb confirmation code"
	codeMACBytes = 12
	codeNonceLen = 4
)

// CodeGenerator issues confirmation codes bound to the account state.
//
// A code has the form base36(issued) "-" nonce "-" mac, where mac is a
// truncated HMAC-SHA256 over the account id, username, email, role,
// superuser flag, issue time and nonce. Editing any of those fields, or
// letting the code age past its TTL, invalidates it.
type CodeGenerator struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewCodeGenerator(secret string, ttl time.Duration) *CodeGenerator {
	key := make([]byte, sha256.Size)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(codeKeyInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails past 255*hash length of output
		panic(err)
	}
	return &CodeGenerator{key: key, ttl: ttl, now: time.Now}
}

// Make returns a fresh code for u.
func (g *CodeGenerator) Make(u *models.User) (string, error) {
	nonce := make([]byte, codeNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	issued := g.now().Unix()
	ts := strconv.FormatInt(issued, 36)
	n := hex.EncodeToString(nonce)
	return ts + "-" + n + "-" + g.mac(u, issued, n), nil
}

// Check reports whether code is a live code for u.
func (g *CodeGenerator) Check(u *models.User, code string) bool {
	if code == "" || u.ConfirmationCode == "" {
		return false
	}
	parts := strings.Split(code, "-")
	if len(parts) != 3 {
		return false
	}
	issued, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil {
		return false
	}
	age := g.now().Sub(time.Unix(issued, 0))
	if age < 0 || age > g.ttl {
		return false
	}
	if !hmac.Equal([]byte(parts[2]), []byte(g.mac(u, issued, parts[1]))) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(u.ConfirmationCode)) == 1
}

func (g *CodeGenerator) mac(u *models.User, issued int64, nonce string) string {
	h := hmac.New(sha256.New, g.key)
	fmt.Fprintf(h, "%d|%s|%s|%s|%t|%d|%s",
		u.ID, u.Username, u.Email, u.Role, u.IsSuperuser, issued, nonce)
	return hex.EncodeToString(h.Sum(nil)[:codeMACBytes])
}
