// Package searchurl derives and expands per-store search URL templates.
//
// A template is an absolute http(s) URL containing the Placeholder token,
// for example "https://www.target.com/s?searchTerm={query}". Expanding it
// with a query produces the URL of the store's search results page.
package searchurl

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Placeholder marks where the escaped search query goes
const Placeholder = "{query}"

// sampleQuery is substituted when checking that a template forms a valid URL
const sampleQuery = "sample"

var (
	ErrEmptyTemplate      = errors.New("search template is empty")
	ErrMissingPlaceholder = errors.New("search template must contain " + Placeholder)
	ErrInvalidTemplate    = errors.New("search template is not a valid http(s) URL")
	ErrEmptyQuery         = errors.New("search query is empty")
	ErrEmptySampleTerm    = errors.New("sample search term is empty")
	ErrInvalidSampleURL   = errors.New("sample search URL is not a valid http(s) URL")
	ErrTermNotFound       = errors.New("sample search term does not appear in the sample URL")
)

// HasPlaceholder reports whether s contains the placeholder token
func HasPlaceholder(s string) bool {
	return strings.Contains(s, Placeholder)
}

// Validate checks that template is usable by Build
func Validate(template string) error {
	template = strings.TrimSpace(template)
	if template == "" {
		return ErrEmptyTemplate
	}
	if !HasPlaceholder(template) {
		return ErrMissingPlaceholder
	}
	if !isHTTPURL(substitute(template, sampleQuery)) {
		return ErrInvalidTemplate
	}
	return nil
}

// Build expands template with query. Placeholders in the path are
// path-escaped; placeholders in the query string or fragment are
// query-escaped.
func Build(template, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	if err := Validate(template); err != nil {
		return "", err
	}
	return substitute(strings.TrimSpace(template), query), nil
}

func substitute(template, query string) string {
	// Everything from the first '?' or '#' on uses query escaping
	boundary := strings.IndexAny(template, "?#")

	var b strings.Builder
	rest := template
	offset := 0
	for {
		i := strings.Index(rest, Placeholder)
		if i < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:i])
		if boundary >= 0 && offset+i > boundary {
			b.WriteString(url.QueryEscape(query))
		} else {
			b.WriteString(url.PathEscape(query))
		}
		rest = rest[i+len(Placeholder):]
		offset += i + len(Placeholder)
	}
	return b.String()
}

// Derive turns a real search-results URL into a template. sampleURL is the
// address the store's website showed after searching for term; every query
// parameter whose value is term becomes the placeholder. When no parameter
// matches, path segments equal to term are replaced instead.
func Derive(sampleURL, term string) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", ErrEmptySampleTerm
	}
	sampleURL = strings.TrimSpace(sampleURL)

	if HasPlaceholder(sampleURL) {
		if err := Validate(sampleURL); err != nil {
			return "", err
		}
		return sampleURL, nil
	}

	if _, err := url.Parse(sampleURL); err != nil || !isHTTPURL(sampleURL) {
		return "", ErrInvalidSampleURL
	}

	// Work on the original text so scheme case, userinfo and escaping survive
	prefix, path, rawQuery, hasQuery, fragment := splitURL(sampleURL)

	if query, ok := replaceInQuery(rawQuery, term); ok {
		return prefix + path + "?" + query + fragment, nil
	}

	if newPath, ok := replaceInPath(path, term); ok {
		query := ""
		if hasQuery {
			query = "?" + rawQuery
		}
		return prefix + newPath + query + fragment, nil
	}

	return "", fmt.Errorf("%w: %q", ErrTermNotFound, term)
}

// splitURL slices raw into scheme plus authority, path, query and fragment
// (the fragment keeps its leading '#')
func splitURL(raw string) (prefix, path, rawQuery string, hasQuery bool, fragment string) {
	authority := strings.Index(raw, "://") + len("://")
	end := strings.IndexAny(raw[authority:], "/?#")
	if end < 0 {
		return raw, "", "", false, ""
	}
	prefix, rest := raw[:authority+end], raw[authority+end:]

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest, fragment = rest[:i], rest[i:]
	}
	path = rest
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		path, rawQuery, hasQuery = rest[:i], rest[i+1:], true
	}
	return prefix, path, rawQuery, hasQuery, fragment
}

func replaceInQuery(rawQuery, term string) (string, bool) {
	if rawQuery == "" {
		return "", false
	}
	pairs := strings.Split(rawQuery, "&")
	matched := false
	for i, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(decoded), term) {
			pairs[i] = key + "=" + Placeholder
			matched = true
		}
	}
	return strings.Join(pairs, "&"), matched
}

func replaceInPath(escapedPath, term string) (string, bool) {
	segments := strings.Split(escapedPath, "/")
	matched := false
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		decoded, err := url.PathUnescape(seg)
		if err != nil {
			continue
		}
		// some sites put '+' for spaces in path segments too
		spaced := strings.ReplaceAll(decoded, "+", " ")
		if strings.EqualFold(strings.TrimSpace(decoded), term) || strings.EqualFold(strings.TrimSpace(spaced), term) {
			segments[i] = Placeholder
			matched = true
		}
	}
	return strings.Join(segments, "/"), matched
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
