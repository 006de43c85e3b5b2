package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// credentialKind classifies what a request presented as its token.
type credentialKind int

const (
	credentialMissing credentialKind = iota
	credentialMalformed
	credentialOK
)

func (k credentialKind) String() string {
	switch k {
	case credentialOK:
		return "ok"
	case credentialMalformed:
		return "malformed_header"
	default:
		return "missing"
	}
}

// credential is the token a request presented, if any.
type credential struct {
	kind  credentialKind
	token string
}

// parseBearer parses an Authorization header of the form "Bearer <token>".
// The scheme is case-insensitive and the header must split into exactly
// two whitespace-separated fields.
func parseBearer(header string) credential {
	if header == "" {
		return credential{kind: credentialMissing}
	}

	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return credential{kind: credentialMalformed}
	}
	return credential{kind: credentialOK, token: fields[1]}
}

// extractCredential takes the token query parameter when present, even if
// empty, and falls back to the Authorization header otherwise.
func extractCredential(r *http.Request) credential {
	if values, ok := r.URL.Query()["token"]; ok {
		return credential{kind: credentialOK, token: values[0]}
	}
	return parseBearer(r.Header.Get("Authorization"))
}

// tokenAuthorizer checks requests against one shared secret. An empty
// secret rejects everything.
type tokenAuthorizer struct {
	secret []byte
}

func newTokenAuthorizer(secret string) *tokenAuthorizer {
	return &tokenAuthorizer{secret: []byte(secret)}
}

// authorize reports whether r carries the secret, and why not if it
// does not.
func (a *tokenAuthorizer) authorize(r *http.Request) (bool, string) {
	if len(a.secret) == 0 {
		return false, "no_secret_configured"
	}

	cred := extractCredential(r)
	if cred.kind != credentialOK {
		return false, cred.kind.String()
	}
	if subtle.ConstantTimeCompare([]byte(cred.token), a.secret) != 1 {
		return false, "token_mismatch"
	}
	return true, ""
}
