package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Read modes accepted by the read_* endpoints.
const (
	modeListAll = "list_all"
	modeByID    = "by_id"
	modeMyself  = "myself"
	modeFilter  = "filter"
)

// doRequest runs spec through Do and decodes a successful payload into result.
// Failed outcomes come back as *HTTPError.
func (c *Client) doRequest(ctx context.Context, spec RequestSpec, result any) error {
	out, err := c.Do(ctx, spec)
	if err != nil {
		return err
	}
	return out.Decode(result)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.doRequest(ctx, RequestSpec{URL: withQuery(path, query)}, result)
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.doRequest(ctx, RequestSpec{URL: path, Method: http.MethodPost, Body: body}, result)
}

func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.doRequest(ctx, RequestSpec{URL: path, Method: http.MethodPut, Body: body}, result)
}

func (c *Client) patch(ctx context.Context, path string, body, result any) error {
	return c.doRequest(ctx, RequestSpec{URL: path, Method: http.MethodPatch, Body: body}, result)
}

func (c *Client) del(ctx context.Context, path string, query url.Values) error {
	return c.doRequest(ctx, RequestSpec{URL: withQuery(path, query), Method: http.MethodDelete}, nil)
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}

func readQuery(mode string, kv ...string) url.Values {
	q := url.Values{"mode": {mode}}
	for i := 0; i+1 < len(kv); i += 2 {
		q.Set(kv[i], kv[i+1])
	}
	return q
}

func idQuery(key string, id int) url.Values {
	return url.Values{key: {strconv.Itoa(id)}}
}

// notFound is the error returned when a by-id read comes back empty.
func notFound() error {
	return &HTTPError{StatusCode: http.StatusNotFound, Message: MsgNotFound}
}
