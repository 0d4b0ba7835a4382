/**
 * @description
 * This file defines the error taxonomy for the Classy API client. Callers are
 * expected to distinguish failure categories with errors.As: configuration
 * problems, token-exchange failures, upstream rejections (which carry the
 * upstream status code and diagnostic payload), transport-level failures, and
 * malformed response bodies.
 *
 * @dependencies
 * - fmt: Standard Go library.
 */

package classy

import "fmt"

// ConfigError indicates that the client is missing required configuration,
// such as the Classy client id or secret. It is fatal to the operation but
// never to the process.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("classy: configuration error: %s", e.Reason)
}

// AuthError indicates that the OAuth2 client-credentials exchange with the
// Classy token endpoint failed, either because the endpoint rejected the
// credentials or because the response body was missing the token or lifetime.
type AuthError struct {
	StatusCode int
	Detail     string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("classy: token exchange failed with status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("classy: token exchange failed: %s", e.Detail)
}

// APIError represents a non-2xx response from a Classy resource endpoint.
// Details holds the parsed JSON error body when the upstream provided one,
// otherwise the raw response text.
type APIError struct {
	StatusCode int
	Message    string
	Details    any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("classy: %s (status %d)", e.Message, e.StatusCode)
}

// TransportError wraps a network-level failure (DNS, connection reset,
// timeout) encountered while talking to the Classy API.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("classy: request failed during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError indicates a 2xx response that declared application/json but
// whose body could not be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("classy: failed to parse response from %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
