package auth

import (
	"crypto/sha256"
	"fmt"

	"github.com/gorilla/securecookie"
)

// sessionCodecName はsecurecookieのエンコード名。Cookie名と一致させる。
const sessionCodecName = "taskdeck_session"

// SessionCodec は不透明なセッションハンドルとトランスポート上の表現を
// 相互変換する。HMAC-SHA256で署名するため、Cookie値の改竄は復号時に検出される。
// トランスポートには依存しない（http.Requestを直接扱わない）。
type SessionCodec struct {
	sc *securecookie.SecureCookie
}

// NewSessionCodec はSessionCodecを生成する。
// secretはSESSION_SECRET環境変数由来の文字列で、長さを問わず
// SHA-256で64バイトの鍵素材に引き伸ばして使用する。
func NewSessionCodec(secret string) *SessionCodec {
	hashKey := sha256.Sum256([]byte("taskdeck-hash:" + secret))
	blockKey := sha256.Sum256([]byte("taskdeck-block:" + secret))
	return &SessionCodec{
		sc: securecookie.New(hashKey[:], blockKey[:]),
	}
}

// Encode はセッションIDを署名付きのCookie値にエンコードする。
func (c *SessionCodec) Encode(sessionID string) (string, error) {
	encoded, err := c.sc.Encode(sessionCodecName, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to encode session handle: %w", err)
	}
	return encoded, nil
}

// Decode はCookie値からセッションIDを復元する。
// 署名不一致や破損した値はエラーを返し、未認証として扱われる。
func (c *SessionCodec) Decode(value string) (string, error) {
	var sessionID string
	if err := c.sc.Decode(sessionCodecName, value, &sessionID); err != nil {
		return "", fmt.Errorf("failed to decode session handle: %w", err)
	}
	return sessionID, nil
}
