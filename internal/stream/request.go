package stream

import (
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"tap_amazon_ads/internal/client"
	"tap_amazon_ads/internal/domain"
)

// buildRequest returns a fresh request for one sync invocation. Pagination
// only ever touches the returned value.
func (d Definition) buildRequest(parent domain.Record) (client.Request, error) {
	path, err := expandPath(d.Path, parent)
	if err != nil {
		return client.Request{}, fmt.Errorf("build %s request: %w", d.ID, err)
	}

	params := make(map[string]string, len(d.StaticParams)+1)
	maps.Copy(params, d.StaticParams)
	if d.PageSize > 0 {
		params["pageSize"] = strconv.Itoa(d.PageSize)
	}

	body := make(map[string]any, len(d.StaticBody)+len(d.ParentBodyFields))
	maps.Copy(body, d.StaticBody)
	if len(d.ParentBodyFields) > 0 {
		if parent == nil {
			return client.Request{}, fmt.Errorf("build %s request: parent record required", d.ID)
		}
		for field, src := range d.ParentBodyFields {
			v, _ := parent.Lookup(src)
			body[field] = v
		}
	}

	return client.Request{
		Method:  d.HTTPMethod,
		Path:    path,
		Params:  params,
		Headers: d.headers(),
		Body:    body,
	}, nil
}

// withPageToken copies req and places token where the definition expects it.
func (d Definition) withPageToken(req client.Request, token any) client.Request {
	next := req
	field := d.pageTokenField()

	switch d.Pagination {
	case PaginationParams:
		next.Params = maps.Clone(req.Params)
		if next.Params == nil {
			next.Params = map[string]string{}
		}
		next.Params[field] = fmt.Sprint(token)
	case PaginationBody:
		next.Body = maps.Clone(req.Body)
		if next.Body == nil {
			next.Body = map[string]any{}
		}
		next.Body[field] = token
	}
	return next
}

// expandPath fills {field} placeholders from the parent record.
func expandPath(path string, parent domain.Record) (string, error) {
	if !strings.Contains(path, "{") {
		return path, nil
	}

	var b strings.Builder
	rest := path
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("unterminated placeholder in path %q", path)
		}
		field := rest[open+1 : open+end]

		v, ok := parent.Lookup(field)
		if !ok || v == nil {
			return "", fmt.Errorf("path %q: parent record has no %q", path, field)
		}

		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(fmt.Sprint(v)))
		rest = rest[open+end+1:]
	}
}
