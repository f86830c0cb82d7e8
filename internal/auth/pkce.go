package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCECookieName はログイン開始からコールバックまでcode verifierを保持するCookie名。
const PKCECookieName = "wd_pkce"

// PKCECookieMaxAge はcode verifier Cookieの有効期間（秒）。
const PKCECookieMaxAge = 600

// GenerateVerifier はRFC 7636のcode verifier（43文字のbase64url）を生成する。
func GenerateVerifier() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ChallengeS256 はcode verifierからS256方式のcode challengeを計算する。
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
