package imagescrape

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidReference reports an image reference that cannot be turned into
// an absolute URL. The image is left out of the result.
var ErrInvalidReference = errors.New("invalid image reference")

// asciiWhitespace is what HTML strips from attribute URLs. U+00A0 and other
// Unicode spaces are part of the reference.
const asciiWhitespace = " \t\n\f\r"

// Resolve turns ref into an absolute URL. References that already carry a
// scheme are returned as parsed; everything else is resolved against base
// using RFC 3986 reference resolution. The result always has a host.
func Resolve(base *url.URL, ref string) (*url.URL, error) {
	ref = strings.Trim(ref, asciiWhitespace)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidReference)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	if !u.IsAbs() {
		if base == nil {
			return nil, fmt.Errorf("%w: relative reference %q without a base URL", ErrInvalidReference, ref)
		}
		u = base.ResolveReference(u)
	}

	// data:, javascript: and similar opaque URIs cannot be sized.
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidReference, ref)
	}

	return u, nil
}
