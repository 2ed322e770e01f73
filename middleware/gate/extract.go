package gate

import (
	"encoding/base64"
	"strings"

	"github.com/goliatone/go-router"
)

// CredentialExtractor pulls a raw credential out of the request.
type CredentialExtractor func(c router.Context) (string, error)

// BasicCredentials decodes an HTTP Basic Authorization header. ok reports
// whether the header carried the Basic scheme at all; an empty user field
// still returns ok.
func BasicCredentials(c router.Context) (user, password string, ok bool) {
	header := c.GetString(router.HeaderAuthorization, "")
	const scheme = "Basic "
	if len(header) < len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(scheme):]))
	if err != nil {
		return "", "", false
	}

	user, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", "", false
	}

	return user, password, true
}

// ExtractRawCredential tries each extractor in order until one yields a
// credential.
func ExtractRawCredential(ctx router.Context, extractors []CredentialExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

// GetExtractors parses a token lookup string into extractors.
// e.g. "header:Authorization,query:auth_token,param:token,cookie:session"
func GetExtractors(tokenLookup string, authSchemes ...string) []CredentialExtractor {
	extractors := make([]CredentialExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		if len(parts) < 2 {
			continue
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, credentialFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, credentialFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, credentialFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, credentialFromCookie(parts[1]))
		}
	}

	return extractors
}

// credentialFromHeader extracts a scheme-prefixed credential from a header.
func credentialFromHeader(header string, authScheme string) CredentialExtractor {
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		authScheme = strings.TrimSpace(authScheme)
		l := len(authScheme)
		if l == 0 {
			return "", ErrCredentialMissingOrMalformed
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrCredentialMissingOrMalformed
	}
}

func credentialFromQuery(param string) CredentialExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrCredentialMissingOrMalformed
		}
		return token, nil
	}
}

func credentialFromParam(param string) CredentialExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrCredentialMissingOrMalformed
		}
		return token, nil
	}
}

func credentialFromCookie(name string) CredentialExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrCredentialMissingOrMalformed
		}
		return token, nil
	}
}
