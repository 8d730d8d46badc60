package externalapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	domainauth "github.com/target/panel-auth/internal/domain/auth"
)

// responseShape records which normalization rule matched a response body.
type responseShape int

const (
	shapeNone        responseShape = iota
	shapeNested                    // {"token": ..., "data": {...}}
	shapeFlat                      // {"token": ..., "username": ..., ...}
	shapePassthrough               // any other non-empty object
)

// normalize applies the response precedence rules to a 2xx body:
//
//  1. token and a data object: token + data
//  2. token and username (flat legacy format): token + whole body
//  3. any other non-empty object: empty token + whole body
//  4. anything else: no result
//
// A token counts as present when the key exists with a non-null value, even "".
// Numbers are kept as json.Number so identifiers survive session round trips unchanged.
func normalize(body []byte) (domainauth.AuthResult, responseShape) {
	decoded, ok := decodeObject(body)
	if !ok || len(decoded) == 0 {
		return domainauth.AuthResult{}, shapeNone
	}

	rawToken, hasToken := decoded["token"]
	hasToken = hasToken && rawToken != nil
	token := tokenString(rawToken)

	if data, isObject := decoded["data"].(map[string]any); hasToken && isObject && len(data) > 0 {
		return domainauth.AuthResult{Token: token, Data: data}, shapeNested
	}

	if hasToken && decoded[domainauth.AttrUsername] != nil {
		return domainauth.AuthResult{Token: token, Data: decoded}, shapeFlat
	}

	return domainauth.AuthResult{Token: "", Data: decoded}, shapePassthrough
}

func decodeObject(body []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// tokenString renders the upstream token as an opaque string; null yields "".
func tokenString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
