// internal/server/proxy.go
package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/httpclient"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"
	"github.com/Norbert250/ORION-2-sub000/internal/common/metrics"
)

// Proxy hosts the two POST-only forwarding endpoints. Both relay the
// downstream status and body verbatim; only failures to reach the
// downstream produce a local error response.
type Proxy struct {
	imageProcessingURL string
	passthroughURL     string
	http               *httpclient.Client
	logger             logger.Logger
}

func NewProxy(imageProcessingURL, passthroughURL string, client *httpclient.Client, log logger.Logger) *Proxy {
	return &Proxy{
		imageProcessingURL: imageProcessingURL,
		passthroughURL:     passthroughURL,
		http:               client,
		logger:             log.WithFields(map[string]interface{}{"component": "proxy"}),
	}
}

// ImageProcessing re-wraps the incoming multipart upload into a fresh
// multipart body before forwarding.
func (p *Proxy) ImageProcessing(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		p.fail(c, "image-processing", err)
		return
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for field, values := range form.Value {
		for _, v := range values {
			if err := writer.WriteField(field, v); err != nil {
				p.fail(c, "image-processing", err)
				return
			}
		}
	}
	for field, headers := range form.File {
		for _, fh := range headers {
			part, err := writer.CreateFormFile(field, fh.Filename)
			if err != nil {
				p.fail(c, "image-processing", err)
				return
			}
			src, err := fh.Open()
			if err != nil {
				p.fail(c, "image-processing", err)
				return
			}
			_, err = io.Copy(part, src)
			src.Close()
			if err != nil {
				p.fail(c, "image-processing", err)
				return
			}
		}
	}
	if err := writer.Close(); err != nil {
		p.fail(c, "image-processing", err)
		return
	}

	p.forward(c, "image-processing", p.imageProcessingURL, &buf, writer.FormDataContentType())
}

// Passthrough forwards the raw request body and content type untouched.
func (p *Proxy) Passthrough(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		p.fail(c, "passthrough", err)
		return
	}
	p.forward(c, "passthrough", p.passthroughURL, bytes.NewReader(body), c.ContentType())
}

func (p *Proxy) forward(c *gin.Context, endpoint, url string, body io.Reader, contentType string) {
	resp, err := p.http.Post(c.Request.Context(), url, contentType, body)
	if err != nil {
		p.fail(c, endpoint, err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		p.fail(c, endpoint, err)
		return
	}

	metrics.ProxyRequestsTotal.WithLabelValues(endpoint, "forwarded").Inc()
	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
}

// fail is the single local error shape: a generic 500 JSON body. Details go
// to the log, never to the caller.
func (p *Proxy) fail(c *gin.Context, endpoint string, err error) {
	metrics.ProxyRequestsTotal.WithLabelValues(endpoint, "error").Inc()
	stdErr := stderrors.NewProxyFailedError(err)
	p.logger.Error("proxy request failed", map[string]interface{}{
		"endpoint": endpoint,
		"error":    stdErr.Details,
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": stdErr.Message})
}

// Echo reflects the request back for connectivity diagnostics.
func (p *Proxy) Echo(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		body = nil
	}

	headers := make(map[string]string, len(c.Request.Header))
	for name := range c.Request.Header {
		headers[name] = c.Request.Header.Get(name)
	}

	var parsed interface{}
	if json.Valid(body) {
		_ = json.Unmarshal(body, &parsed)
	} else if len(body) > 0 {
		parsed = string(body)
	}

	c.JSON(http.StatusOK, gin.H{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"query":   c.Request.URL.RawQuery,
		"headers": headers,
		"body":    parsed,
	})
}

// MethodNotAllowed is the JSON 405 for the POST-only endpoints.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "Method not allowed",
		"code":  stderrors.ErrCodeMethodNotAllowed,
	})
}
