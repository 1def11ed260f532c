// Package identity derives the canonical dedup key for a listing entry.
//
// The key is the entry's detail-page reference reduced to scheme, host and
// path: tracking parameters in the query string or fragment never split one
// place into two identities.
package identity

import (
	"fmt"
	"net/url"
	"strings"

	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/models"
)

// Resolver turns raw entries into canonical place identities
type Resolver struct {
	base *url.URL
}

// NewResolver creates a resolver that resolves relative references against baseURL.
// An empty baseURL means only absolute references can be resolved.
func NewResolver(baseURL string) (*Resolver, error) {
	r := &Resolver{}
	if baseURL == "" {
		return r, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("base URL %q is not absolute", baseURL)
	}
	r.base = base
	return r, nil
}

// Resolve returns the canonical identity of entry, or a missing_reference error
func (r *Resolver) Resolve(entry models.RawEntry) (string, error) {
	return r.Canonical(entry.Href)
}

// Canonical normalises a single detail-page reference
func (r *Resolver) Canonical(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errs.New(errs.ErrorTypeMissingReference, "entry has no detail reference")
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeMissingReference, fmt.Sprintf("unparsable reference %q", ref), err)
	}
	if !u.IsAbs() {
		if r.base == nil {
			return "", errs.New(errs.ErrorTypeMissingReference, fmt.Sprintf("relative reference %q without base", ref))
		}
		u = r.base.ResolveReference(u)
	}

	if u.Host == "" {
		return "", errs.New(errs.ErrorTypeMissingReference, fmt.Sprintf("reference %q has no host", ref))
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		return "", errs.New(errs.ErrorTypeMissingReference, fmt.Sprintf("reference %q has no path", ref))
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + path, nil
}
