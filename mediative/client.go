// Package mediative is the HTTP client for the Mediative API: login, token
// refresh, form posts, chunk uploads and media registration.
package mediative

import (
	"context"
	"encoding/json"
	"net/url"
	"slices"
	"strings"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/rise-and-shine/dropsync/observability/logger"
)

const (
	headerRequestedWith    = "X-Requested-With"
	headerRequestedVersion = "X-Requested-Version"
	headerContentRange     = "Content-Range"
	headerOriginalFilename = "Original-Filename"
	headerChunk            = "Chunk"

	requestedWith    = "MediativeApi"
	requestedVersion = "1.1"

	mediaResource = "medias"
	chunkResource = "uploads/chunk"

	// maxLoggedBody caps response bodies copied into error details.
	maxLoggedBody = 2048
)

// Client talks to one Mediative tenant. It holds no credential; callers pass
// the token to every authenticated call. It is safe for concurrent use.
type Client struct {
	cfg    Config
	logger logger.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	cfg.HostURL = strings.TrimRight(cfg.HostURL, "/")

	return &Client{
		cfg:    cfg,
		logger: logger.Named("mediative"),
	}
}

// Login exchanges the key pair for a token.
func (c *Client) Login(ctx context.Context) (Token, error) {
	endpoint := c.cfg.APIURL + "/api/login.json?domain=" + url.QueryEscape(c.cfg.Domain)

	a := fiber.Post(endpoint).BasicAuth(c.cfg.PublicKey, c.cfg.PrivateKey)
	body, err := c.do(ctx, a, "login", endpoint)
	if err != nil {
		return Token{}, err
	}

	var resp struct {
		Auth *struct {
			Token *Token `json:"token"`
		} `json:"auth"`
	}
	if err = json.Unmarshal(body, &resp); err != nil {
		return Token{}, invalidResponse("login", endpoint, body, err)
	}
	if resp.Auth == nil || resp.Auth.Token == nil || resp.Auth.Token.Token == "" {
		return Token{}, errx.New("[mediative]: no token found in login response",
			errx.WithCode(CodeNoToken),
			errx.WithType(errx.T_Authentication),
			errx.WithDetails(errx.D{"body": truncate(body)}),
		)
	}
	return *resp.Auth.Token, nil
}

// Refresh asks the API for a new token in exchange for the current one.
// The returned token is not validated.
func (c *Client) Refresh(ctx context.Context, token string) (Token, error) {
	endpoint := c.cfg.APIURL + "/api/refresh/" + url.PathEscape(token) + ".json?domain=" + url.QueryEscape(c.cfg.Domain)

	a := fiber.Get(endpoint).BasicAuth(c.cfg.PublicKey, c.cfg.PrivateKey)
	body, err := c.do(ctx, a, "refresh", endpoint)
	if err != nil {
		return Token{}, err
	}

	var t Token
	if err = json.Unmarshal(body, &t); err != nil {
		return Token{}, invalidResponse("refresh", endpoint, body, err)
	}
	return t, nil
}

// PostForm posts form-encoded fields to {host}/{resource}.json and returns the decoded JSON object.
func (c *Client) PostForm(ctx context.Context, token, resource string, fields map[string]string) (map[string]any, error) {
	endpoint := c.resourceURL(resource, token)

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)

	keys := lo.Keys(fields)
	slices.Sort(keys)
	for _, k := range keys {
		args.Set(k, fields[k])
	}

	body, err := c.do(ctx, fiber.Post(endpoint).Form(args), resource, endpoint)
	if err != nil {
		return nil, errx.Wrap(err, errx.WithDetails(errx.D{"fields": fields}))
	}

	var out map[string]any
	if err = json.Unmarshal(body, &out); err != nil {
		return nil, invalidResponse(resource, endpoint, body, err)
	}
	return out, nil
}

// Get fetches {host}/{resource}.json with query parameters.
func (c *Client) Get(ctx context.Context, token, resource string, params map[string]string) (map[string]any, error) {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	endpoint := c.resourceURL(resource, token)
	if len(q) > 0 {
		endpoint += "&" + q.Encode()
	}

	body, err := c.do(ctx, fiber.Get(endpoint), resource, endpoint)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err = json.Unmarshal(body, &out); err != nil {
		return nil, invalidResponse(resource, endpoint, body, err)
	}
	return out, nil
}

// UploadChunk posts one raw chunk.
func (c *Client) UploadChunk(ctx context.Context, token string, chunk Chunk) (ChunkResponse, error) {
	endpoint := c.resourceURL(chunkResource, token)

	a := fiber.Post(endpoint).
		ContentType(fiber.MIMEOctetStream).
		Set(headerContentRange, chunk.ContentRange()).
		Body(chunk.Data)
	if chunk.ContinuationID == "" {
		a.Set(headerOriginalFilename, chunk.Filename)
	} else {
		a.Set(headerChunk, chunk.ContinuationID)
	}

	body, err := c.do(ctx, a, "chunk", endpoint)
	if err != nil {
		return ChunkResponse{}, errx.Wrap(err, errx.WithDetails(errx.D{"range": chunk.ContentRange()}))
	}

	var p chunkPayload
	if err = json.Unmarshal(body, &p); err != nil {
		return ChunkResponse{}, invalidResponse("chunk", endpoint, body, err)
	}
	return p.toResponse(body), nil
}

// CreateMedia registers an uploaded file as a LocalVideo media record.
func (c *Client) CreateMedia(ctx context.Context, token string, m Media) (map[string]any, error) {
	return c.PostForm(ctx, token, mediaResource, MediaFields(m))
}

// MediaFields returns the form fields of a media registration.
func MediaFields(m Media) map[string]string {
	localDatas, _ := json.Marshal(map[string][]string{"filenames": {m.Filename}}) //nolint:errchkjson // cannot fail

	return map[string]string{
		"type":          "LocalVideo",
		"license":       "copyright",
		"settings":      "{}",
		"local_datas":   string(localDatas),
		"distant_datas": "{}",
		"thumbnails":    "{}",
		"tags":          "",
		"approved":      "false",
		"title":         m.Title,
		"description":   m.Title,
		"Upload[id]":    m.UploadID,
	}
}

func (c *Client) resourceURL(resource, token string) string {
	q := url.Values{}
	q.Set("d", c.cfg.Domain)
	q.Set("token", token)
	return c.cfg.HostURL + "/" + resource + ".json?" + q.Encode()
}

// do sends a with the common headers and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, a *fiber.Agent, op, endpoint string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errx.Wrap(err, errx.WithCode(CodeRequestFailed))
	}

	a.Set(headerRequestedWith, requestedWith).
		Set(headerRequestedVersion, requestedVersion).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(c.cfg.RequestTimeout)

	if err := a.Parse(); err != nil {
		return nil, errx.New("[mediative]: cannot build request",
			errx.WithCode(CodeRequestFailed),
			errx.WithDetails(errx.D{"operation": op, "url": redact(endpoint), "cause": err.Error()}),
		)
	}

	status, body, errs := a.Bytes()
	if len(errs) > 0 {
		causes := lo.Map(errs, func(e error, _ int) string { return e.Error() })
		return nil, errx.New("[mediative]: request failed",
			errx.WithCode(CodeRequestFailed),
			errx.WithDetails(errx.D{"operation": op, "url": redact(endpoint), "causes": causes}),
		)
	}

	if status != fiber.StatusOK {
		return nil, errx.New("[mediative]: unexpected response status",
			errx.WithCode(CodeUnexpectedStatus),
			errx.WithDetails(errx.D{
				"operation": op,
				"url":       redact(endpoint),
				"status":    status,
				"body":      truncate(body),
			}),
		)
	}

	c.logger.With("operation", op, "status", status).Debug("[mediative]: request done")
	return body, nil
}

func invalidResponse(op, endpoint string, body []byte, err error) error {
	return errx.New("[mediative]: cannot decode response",
		errx.WithCode(CodeInvalidResponse),
		errx.WithDetails(errx.D{
			"operation": op,
			"url":       redact(endpoint),
			"body":      truncate(body),
			"cause":     err.Error(),
		}),
	)
}

// redact hides the token query parameter and refresh path segment.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "***")
		u.RawQuery = q.Encode()
	}
	if strings.Contains(u.Path, "/api/refresh/") {
		u.Path = "/api/refresh/***.json"
		u.RawPath = ""
	}
	return u.String()
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}
