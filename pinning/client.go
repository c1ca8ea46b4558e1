package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// DefaultAPIURL is Pinata's public API root.
const DefaultAPIURL = "https://api.pinata.cloud"

// PinResponse is Pinata's pinFileToIPFS reply.
type PinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Client talks to the Pinata pinning API.
type Client struct {
	apiURL string
	jwt    string
	http   *http.Client
}

func NewClient(apiURL, jwt string, httpClient *http.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{
		apiURL: strings.TrimRight(apiURL, "/"),
		jwt:    jwt,
		http:   httpClient,
	}
}

// PinFile uploads data as a single multipart file and returns the pin.
func (c *Client) PinFile(ctx context.Context, name, contentType string, data []byte) (PinResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return PinResponse{}, fmt.Errorf("pinning: create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return PinResponse{}, fmt.Errorf("pinning: write part: %w", err)
	}

	meta, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return PinResponse{}, fmt.Errorf("pinning: marshal metadata: %w", err)
	}
	if err := mw.WriteField("pinataMetadata", string(meta)); err != nil {
		return PinResponse{}, fmt.Errorf("pinning: write metadata: %w", err)
	}
	if err := mw.Close(); err != nil {
		return PinResponse{}, fmt.Errorf("pinning: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/pinning/pinFileToIPFS", &body)
	if err != nil {
		return PinResponse{}, fmt.Errorf("pinning: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return PinResponse{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return PinResponse{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out PinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PinResponse{}, fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return out, nil
}
