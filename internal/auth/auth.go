// Package auth decides which authentication headers are attached to
// outbound provider calls.
//
// The router sits between clients that may or may not send their own API
// key and a provider that may or may not need one, so every request gets a
// fresh outbound header set built from a small precedence table: required
// key enforcement first, then configured-key override, then incoming-key
// passthrough, then configured-key fallback. A payment header rides along
// independently of the key decision.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned when required-key mode is on and the incoming
// key does not match the configured one.
var ErrUnauthorized = errors.New("invalid api key")

// Header names used on both sides of the router.
const (
	HeaderAPIKey  = "X-Api-Key"
	HeaderPayment = "X-Payment"
)

// Settings is the process-wide credential configuration consumed by Resolve.
type Settings struct {
	// Key is the provider API key configured for this process.
	Key string
	// RequireKey makes the router reject clients whose key does not match Key.
	RequireKey bool
	// IgnoreIncomingKey always forwards Key and discards whatever the client sent.
	IgnoreIncomingKey bool
	// Payment is the default payment header value when the client sends none.
	Payment string
}

// Resolve builds the outbound header set for an embeddings request.
// Precedence, first match wins:
//
//  1. RequireKey with a configured key: the incoming key must equal it
//     exactly or ErrUnauthorized is returned; on match the configured key
//     is forwarded.
//  2. IgnoreIncomingKey with a configured key: the configured key is
//     forwarded, the incoming one discarded.
//  3. An incoming key is forwarded as-is: as Authorization when it came in
//     as (or looks like) a bearer value, as X-Api-Key otherwise.
//  4. A configured key is forwarded as X-Api-Key.
//  5. No authentication header is attached.
func Resolve(in http.Header, s Settings) (http.Header, error) {
	out := http.Header{}

	key, authz := incomingKey(in)
	switch {
	case s.RequireKey && s.Key != "":
		if subtle.ConstantTimeCompare([]byte(key), []byte(s.Key)) != 1 {
			return nil, ErrUnauthorized
		}
		out.Set(HeaderAPIKey, s.Key)
	case s.IgnoreIncomingKey && s.Key != "":
		out.Set(HeaderAPIKey, s.Key)
	case key != "":
		if authz != "" {
			out.Set("Authorization", authz)
		} else if looksLikeBearer(key) {
			out.Set("Authorization", key)
		} else {
			out.Set(HeaderAPIKey, key)
		}
	case s.Key != "":
		out.Set(HeaderAPIKey, s.Key)
	}

	attachPayment(out, in, s)
	return out, nil
}

// ResolveProxy builds the outbound header set for the transparent proxy
// path. It follows the same precedence as Resolve but never rejects: the
// required-key and ignore-incoming-key modes both collapse to forwarding
// the configured key.
func ResolveProxy(in http.Header, s Settings) http.Header {
	out := http.Header{}

	key, authz := incomingKey(in)
	switch {
	case (s.RequireKey || s.IgnoreIncomingKey) && s.Key != "":
		out.Set(HeaderAPIKey, s.Key)
	case key != "":
		if authz != "" {
			out.Set("Authorization", authz)
		} else if looksLikeBearer(key) {
			out.Set("Authorization", key)
		} else {
			out.Set(HeaderAPIKey, key)
		}
	case s.Key != "":
		out.Set(HeaderAPIKey, s.Key)
	}

	attachPayment(out, in, s)
	return out
}

// incomingKey extracts the client's API key. X-Api-Key takes precedence;
// a bearer Authorization header is returned both stripped (for comparison)
// and verbatim (for forwarding).
func incomingKey(in http.Header) (key, authz string) {
	if v := in.Get(HeaderAPIKey); v != "" {
		return v, ""
	}
	if v := in.Get("Authorization"); v != "" {
		return strings.TrimSpace(strings.TrimPrefix(v, "Bearer ")), v
	}
	return "", ""
}

func looksLikeBearer(v string) bool {
	return strings.HasPrefix(strings.ToLower(v), "bearer ")
}

// attachPayment forwards the incoming payment header verbatim, falling back
// to the configured default. The value is opaque to the router.
func attachPayment(out, in http.Header, s Settings) {
	if v := in.Get(HeaderPayment); v != "" {
		out.Set(HeaderPayment, v)
		return
	}
	if s.Payment != "" {
		out.Set(HeaderPayment, s.Payment)
	}
}
