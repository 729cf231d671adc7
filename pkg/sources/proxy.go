package sources

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vincent-petithory/dataurl"

	"github.com/kerbaras/mangaread/pkg/utils"
)

// ImageProxy builds and resolves URLs of the third-party image proxy. The proxy
// answers either with a base64 data URI or with something else, in which case the
// proxy URL itself is used as the image source.
type ImageProxy struct {
	prefix string
	api    *utils.API
	cache  *lru.Cache[string, string]
}

func NewImageProxy(base string, cacheSize int, api *utils.API) (*ImageProxy, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &ImageProxy{
		prefix: strings.TrimRight(base, "?") + "?image_url=",
		api:    api,
		cache:  cache,
	}, nil
}

// URL returns the proxied form of original, or "" when there is no image.
func (p *ImageProxy) URL(original string) string {
	if original == "" {
		return ""
	}
	return p.prefix + original
}

func (p *ImageProxy) IsProxied(src string) bool {
	return strings.HasPrefix(src, p.prefix)
}

// Resolve returns the displayable source for src. Sources that do not point at the
// proxy are returned unchanged. A cancelled ctx aborts the request.
func (p *ImageProxy) Resolve(ctx context.Context, src string) (string, error) {
	if src == "" || !p.IsProxied(src) {
		return src, nil
	}
	if v, ok := p.cache.Get(src); ok {
		return v, nil
	}

	body, _, err := p.api.Fetch(ctx, src, "")
	if err != nil {
		return "", err
	}

	resolved := src
	if text := string(body); strings.HasPrefix(text, "data:image") {
		resolved = strings.TrimSpace(text)
	}
	p.cache.Add(src, resolved)
	return resolved, nil
}

// Fetch returns the bytes and MIME type of the image behind src. Proxy
// responses are recorded in the same cache Resolve uses.
func (p *ImageProxy) Fetch(ctx context.Context, src string) ([]byte, string, error) {
	if v, ok := p.cache.Get(src); ok && strings.HasPrefix(v, "data:") {
		return decodeDataURI(v)
	}

	body, contentType, err := p.api.Fetch(ctx, src, "image/*")
	if err != nil {
		return nil, "", err
	}
	if !p.IsProxied(src) {
		return body, contentType, nil
	}

	if text := string(body); strings.HasPrefix(text, "data:image") {
		uri := strings.TrimSpace(text)
		p.cache.Add(src, uri)
		return decodeDataURI(uri)
	}
	p.cache.Add(src, src)
	return body, contentType, nil
}

func decodeDataURI(uri string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return nil, "", fmt.Errorf("decode data uri: %w", err)
	}
	return du.Data, du.ContentType(), nil
}
