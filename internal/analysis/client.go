// internal/analysis/client.go

// Package analysis calls the third-party scoring APIs: one function per
// document type, all funneled through one generic POST helper with a fixed
// per-call failure policy.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/Norbert250/ORION-2-sub000/internal/common/config"
	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/httpclient"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/common/metrics"
)

// Client calls the external scoring APIs.
type Client struct {
	cfg     config.AnalyzersConfig
	http    *httpclient.Client
	logger  logger.Logger
	backoff time.Duration
}

func NewClient(cfg config.AnalyzersConfig, log logger.Logger) *Client {
	return &Client{
		cfg:     cfg,
		http:    httpclient.NewClient(config.GetDuration(cfg.RequestTimeout)),
		logger:  log.WithFields(map[string]interface{}{"component": "analysis"}),
		backoff: config.GetDuration(cfg.RetryBackoff),
	}
}

// FilePart is one file in a multipart upload.
type FilePart struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// post issues a single POST and returns the parsed JSON body verbatim.
// Non-2xx responses are failures; the body is read as text for diagnostics.
func (c *Client) post(ctx context.Context, doc DocType, url string, contentType string, body []byte) (json.RawMessage, error) {
	start := time.Now()
	resp, err := c.http.Post(ctx, url, contentType, bytes.NewReader(body))
	metrics.AnalysisCallDuration.WithLabelValues(string(doc)).Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, stderrors.NewAnalysisTimeoutError(string(doc))
		}
		return nil, stderrors.NewAnalysisCallFailedError(string(doc), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, stderrors.NewAnalysisCallFailedError(string(doc), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, stderrors.NewAnalysisBadResponseError(string(doc), resp.StatusCode, string(raw))
	}

	if !json.Valid(raw) {
		return nil, stderrors.NewAnalysisCallFailedError(string(doc), fmt.Errorf("response is not valid JSON"))
	}

	return json.RawMessage(raw), nil
}

// call applies the document's failure policy around post. An Optional call
// that fails returns (nil, nil); a Retryable one retries with linear backoff.
func (c *Client) call(ctx context.Context, doc DocType, url, contentType string, body []byte) (json.RawMessage, error) {
	var raw json.RawMessage
	var err error

	switch PolicyFor(doc) {
	case PolicyRetryable:
		for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
			raw, err = c.post(ctx, doc, url, contentType, body)
			if err == nil {
				break
			}
			if attempt < c.cfg.RetryAttempts {
				c.logger.Warn("analysis call failed, retrying", map[string]interface{}{
					"docType": doc,
					"attempt": attempt,
					"error":   err.Error(),
				})
				select {
				case <-time.After(c.backoff):
				case <-ctx.Done():
					err = stderrors.NewAnalysisTimeoutError(string(doc))
					attempt = c.cfg.RetryAttempts
				}
			}
		}
	default:
		raw, err = c.post(ctx, doc, url, contentType, body)
	}

	if err != nil {
		metrics.AnalysisCallsTotal.WithLabelValues(string(doc), "failure").Inc()
		if PolicyFor(doc) == PolicyOptional {
			c.logger.Warn("optional analysis failed, continuing without it", map[string]interface{}{
				"docType": doc,
				"error":   err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}

	metrics.AnalysisCallsTotal.WithLabelValues(string(doc), "success").Inc()
	return raw, nil
}

// callMultipart wraps call with a multipart form body.
func (c *Client) callMultipart(ctx context.Context, doc DocType, url string, files []FilePart, fields map[string]string) (json.RawMessage, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, f := range files {
		part, err := writer.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, stderrors.NewAnalysisCallFailedError(string(doc), err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, stderrors.NewAnalysisCallFailedError(string(doc), err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, stderrors.NewAnalysisCallFailedError(string(doc), err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, stderrors.NewAnalysisCallFailedError(string(doc), err)
	}

	return c.call(ctx, doc, url, writer.FormDataContentType(), buf.Bytes())
}

// callJSON wraps call with a JSON body.
func (c *Client) callJSON(ctx context.Context, doc DocType, url string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, stderrors.NewAnalysisCallFailedError(string(doc), err)
	}
	return c.call(ctx, doc, url, "application/json", body)
}
