package mediative

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Token is the session credential issued by the login and refresh endpoints.
type Token struct {
	Domain  string `json:"domain"`
	Created string `json:"created"`
	Token   string `json:"token"`
	Expires string `json:"expires"`
	// ExpiresTime is the expiry as unix seconds. Zero means unknown.
	ExpiresTime int64 `json:"expiresTime"`
}

// UnmarshalJSON accepts expiresTime as a JSON number or a numeric string.
func (t *Token) UnmarshalJSON(b []byte) error {
	var raw struct {
		Domain      any `json:"domain"`
		Created     any `json:"created"`
		Token       any `json:"token"`
		Expires     any `json:"expires"`
		ExpiresTime any `json:"expiresTime"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*t = Token{
		Domain:  cast.ToString(raw.Domain),
		Created: cast.ToString(raw.Created),
		Token:   cast.ToString(raw.Token),
		Expires: cast.ToString(raw.Expires),
	}
	if raw.ExpiresTime != nil && raw.ExpiresTime != "" {
		// an unparseable value stays zero and fails validation upstream
		t.ExpiresTime, _ = cast.ToInt64E(raw.ExpiresTime)
	}
	return nil
}

// ExpiresAt returns the expiry instant, or the zero time if unknown.
func (t Token) ExpiresAt() time.Time {
	if t.ExpiresTime == 0 {
		return time.Time{}
	}
	return time.Unix(t.ExpiresTime, 0)
}

// Valid reports whether the token is present and not expired at now.
func (t Token) Valid(now time.Time) bool {
	if t.Token == "" {
		return false
	}
	exp := t.ExpiresAt()
	return exp.IsZero() || exp.After(now)
}

// Chunk is one slice of a file sent to the chunk endpoint.
type Chunk struct {
	// Filename is the original base name, sent on the first chunk only.
	Filename string
	// ContinuationID links subsequent chunks to the upload. Empty on the first chunk.
	ContinuationID string
	Offset         int64
	Size           int64
	Data           []byte
}

// ContentRange renders the Content-Range header value for c.
func (c Chunk) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", c.Offset, c.Offset+int64(len(c.Data)), c.Size)
}

// UploadRef identifies an upload on the remote side once all chunks are in.
type UploadRef struct {
	ID    string
	Title string
}

// ChunkResponse is the decoded answer to a chunk POST.
type ChunkResponse struct {
	// ID is the continuation identifier. Empty on the final response.
	ID string
	// Filename is the server-side file name, present on the final response.
	Filename string
	// Upload is the upload reference, present on the final response.
	Upload *UploadRef
	Raw    json.RawMessage
}

type chunkPayload struct {
	ID       any    `json:"id"`
	Filename string `json:"filename"`
	Response struct {
		Uploads []struct {
			Upload struct {
				ID    any `json:"id"`
				Title any `json:"title"`
			} `json:"Upload"`
		} `json:"uploads"`
	} `json:"response"`
}

func (p chunkPayload) toResponse(raw []byte) ChunkResponse {
	resp := ChunkResponse{
		ID:       cast.ToString(p.ID),
		Filename: p.Filename,
		Raw:      raw,
	}
	if len(p.Response.Uploads) > 0 {
		u := p.Response.Uploads[0].Upload
		resp.Upload = &UploadRef{ID: cast.ToString(u.ID), Title: cast.ToString(u.Title)}
	}
	return resp
}

// Media describes the media record created for an uploaded file.
type Media struct {
	// Filename is the server-side file name returned by the last chunk.
	Filename string
	UploadID string
	Title    string
}
