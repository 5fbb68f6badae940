// Package netx holds HTTP helpers shared by the inference client and the CLI.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// FilePart is a single file sent as a multipart/form-data field.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// NewMultipartRequest builds a POST request whose body is a multipart form
// holding part. The part keeps its own Content-Type so the receiver can tell
// a PNG from a JPEG without sniffing.
func NewMultipartRequest(ctx context.Context, url string, part FilePart) (*http.Request, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	ct := part.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(part.Field), quoteEscaper.Replace(part.Filename)))
	h.Set("Content-Type", ct)

	w, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(part.Data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

// ReadErrorBody drains at most 4KB of a failed response for error messages.
func ReadErrorBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return strings.TrimSpace(string(b))
}
