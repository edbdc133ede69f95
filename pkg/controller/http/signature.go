package http

import (
	"net/http"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/domain/types"
)

// SignatureGate checks the X-Hub-Signature-256 (or legacy X-Hub-Signature)
// header of a webhook against the shared secret
type SignatureGate struct {
	secret []byte
}

// NewSignatureGate creates a gate for secret. With an empty secret no
// signature can be valid.
func NewSignatureGate(secret string) *SignatureGate {
	return &SignatureGate{secret: []byte(secret)}
}

// Check reports whether a signature header is present and, if so, whether
// it matches body
func (g *SignatureGate) Check(header http.Header, body []byte) model.AuthResult {
	signature := header.Get(types.HeaderSignature256)
	if signature == "" {
		signature = header.Get(types.HeaderSignature)
	}
	if signature == "" {
		return model.AuthMissingSignature
	}

	if len(g.secret) == 0 {
		return model.AuthInvalidSignature
	}
	if err := github.ValidateSignature(signature, body, g.secret); err != nil {
		return model.AuthInvalidSignature
	}
	return model.AuthAuthenticated
}
