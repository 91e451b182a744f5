package transcribe

import (
	"bytes"
	"context"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

type captureKey struct{}

// capture holds the raw response body of one API call. go-openai decodes
// only the fields it models, so the usage block and logprobs are read from
// the raw bytes.
type capture struct {
	body []byte
}

func withCapture(ctx context.Context) (context.Context, *capture) {
	c := &capture{}
	return context.WithValue(ctx, captureKey{}, c), c
}

// capturingDoer buffers response bodies for requests whose context carries
// a capture and hands an equivalent body on to the client.
type capturingDoer struct {
	next openai.HTTPDoer
}

func (d capturingDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.next.Do(req)
	if err != nil || resp == nil || resp.Body == nil {
		return resp, err
	}
	c, ok := req.Context().Value(captureKey{}).(*capture)
	if !ok {
		return resp, nil
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, err
	}
	c.body = body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}
