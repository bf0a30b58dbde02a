package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPRecognizer is the default Recognizer: it POSTs the cropped index
// region to a configured endpoint and decodes its JSON response. The
// transport shape (baseURL trimmed of its trailing slash, a *http.Client
// built from a Timeout when the caller doesn't supply one) follows the
// teacher SDK's internal/httpclient.transport.
type HTTPRecognizer struct {
	url        string
	httpClient *http.Client
}

// NewHTTPRecognizer creates an HTTPRecognizer posting to url. If client is
// nil, one is built from timeout.
func NewHTTPRecognizer(url string, timeout time.Duration, client *http.Client) *HTTPRecognizer {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPRecognizer{url: strings.TrimRight(url, "/"), httpClient: client}
}

type recognizeRequest struct {
	ImageBase64 string `json:"image_base64"`
}

type recognizeResponse struct {
	Index      string  `json:"index"`
	Confidence float64 `json:"confidence"`
}

func (r *HTTPRecognizer) Recognize(ctx context.Context, imageBytes []byte) (string, float64, error) {
	reqBody := recognizeRequest{ImageBase64: base64.StdEncoding.EncodeToString(imageBytes)}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("recognizer: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(raw))
	if err != nil {
		return "", 0, fmt.Errorf("recognizer: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("recognizer: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("recognizer: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("recognizer: endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out recognizeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", 0, fmt.Errorf("recognizer: decode response: %w", err)
	}
	return out.Index, out.Confidence, nil
}
