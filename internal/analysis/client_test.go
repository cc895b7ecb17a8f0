// internal/analysis/client_test.go
package analysis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Norbert250/ORION-2-sub000/internal/common/config"
	stderrors "github.com/Norbert250/ORION-2-sub000/internal/common/errors"
	"github.com/Norbert250/ORION-2-sub000/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(urls map[string]string) config.AnalyzersConfig {
	cfg := config.AnalyzersConfig{
		RequestTimeout: 2000,
		RetryAttempts:  3,
		RetryBackoff:   1,
	}
	if u, ok := urls["id"]; ok {
		cfg.IDDocumentURL = u
	}
	if u, ok := urls["bank"]; ok {
		cfg.BankStatementURL = u
	}
	if u, ok := urls["assets"]; ok {
		cfg.AssetPhotosURL = u
	}
	if u, ok := urls["calllogs"]; ok {
		cfg.CallLogsURL = u
	}
	return cfg
}

func testFile() FilePart {
	return FilePart{Field: "file", Name: "doc.pdf", ContentType: "application/pdf", Data: []byte("stub")}
}

func TestAnalyzeIDDocument_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fields": {"Full Name": "Jane Doe", "Gender": "F", "Date of Birth": "1990-04-01"}}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(map[string]string{"id": srv.URL}), logger.NewNoOpLogger())

	result, err := client.AnalyzeIDDocument(context.Background(), testFile())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Jane Doe", result.FullName)
	assert.Equal(t, "F", result.Gender)
	assert.Equal(t, "1990-04-01", result.DateOfBirth)
	assert.NotEmpty(t, result.Raw)
}

func TestAnalyzeIDDocument_Non2xxPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(map[string]string{"id": srv.URL}), logger.NewNoOpLogger())

	result, err := client.AnalyzeIDDocument(context.Background(), testFile())
	assert.Nil(t, result)
	require.Error(t, err)

	stdErr, ok := err.(*stderrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, stderrors.ErrCodeAnalysisBadResponse, stdErr.Code)
	assert.Contains(t, stdErr.Details, "upstream exploded")
}

func TestAnalyzeAssetPhotos_OptionalFailureSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(map[string]string{"assets": srv.URL}), logger.NewNoOpLogger())

	result, err := client.AnalyzeAssetPhotos(context.Background(), []FilePart{testFile()})
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestAnalyzeBankStatement_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"credit_score": 60}`))
	}))
	defer srv.Close()

	client := NewClient(testConfig(map[string]string{"bank": srv.URL}), logger.NewNoOpLogger())

	result, err := client.AnalyzeBankStatement(context.Background(), testFile(), "")
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotNil(t, result.CreditScore)
	assert.Equal(t, 60.0, *result.CreditScore)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAnalyzeBankStatement_RetriesExhaustedPropagates(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(testConfig(map[string]string{"bank": srv.URL}), logger.NewNoOpLogger())

	result, err := client.AnalyzeBankStatement(context.Background(), testFile(), "secret")
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAnalyzeCallLogs_FatalNoRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(testConfig(map[string]string{"calllogs": srv.URL}), logger.NewNoOpLogger())

	result, err := client.AnalyzeCallLogs(context.Background(), testFile())
	assert.Nil(t, result)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "fatal calls must not retry")
}

func TestCall_InvalidJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(map[string]string{"id": srv.URL}), logger.NewNoOpLogger())

	result, err := client.AnalyzeIDDocument(context.Background(), testFile())
	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestPolicyFor_Defaults(t *testing.T) {
	assert.Equal(t, PolicyFatal, PolicyFor(DocIDDocument))
	assert.Equal(t, PolicyFatal, PolicyFor(DocCallLogs))
	assert.Equal(t, PolicyOptional, PolicyFor(DocAssetPhotos))
	assert.Equal(t, PolicyOptional, PolicyFor(DocPrescription))
	assert.Equal(t, PolicyRetryable, PolicyFor(DocBankStatement))
	assert.Equal(t, PolicyRetryable, PolicyFor(DocMpesaStatement))
	assert.Equal(t, PolicyFatal, PolicyFor(DocType("unknown")))
}
