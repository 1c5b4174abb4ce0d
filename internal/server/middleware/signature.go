// Package middleware holds the gin middlewares guarding the gateway's HTTP
// surface: webhook signature verification and outbound-send throttling.
package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const signatureHeader = "X-Hub-Signature-256"

// VerifySignature checks an X-Hub-Signature-256 value against the HMAC-SHA256
// of body keyed by secret. The sha256= prefix is stripped when present and
// the comparison is constant-time. An empty secret always fails: the
// verifier fails closed rather than silently passing.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, "sha256=")
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hmac.Equal(mac.Sum(nil), provided)
}

// WebhookSignature returns a middleware authenticating webhook POSTs. It is
// bound only to the webhook route; other routes never pass through it. When
// enabled is false (local development) every request passes without
// computing the HMAC.
func WebhookSignature(secret string, enabled bool, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		signature := c.GetHeader(signatureHeader)
		if signature == "" {
			logger.Warn("webhook received without signature", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Error("failed reading webhook body", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unreadable body"})
			return
		}
		// The handler still needs to bind the payload.
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !VerifySignature(body, signature, secret) {
			logger.Warn("webhook signature verification failed",
				zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Next()
	}
}
