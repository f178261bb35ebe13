package telemetry

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestSpanNameFormatter(t *testing.T) {
	req, _ := http.NewRequest("POST", "/v1/messages", nil)
	req.Pattern = "/v1/:endpoint"
	assert.Equal(t, "/v1/:endpoint", SpanNameFormatter("", req))

	req.Pattern = ""
	assert.Equal(t, "POST /v1/messages", SpanNameFormatter("", req))
}

func TestRecordErrorAndStatus(t *testing.T) {
	span := &mockSpan{}
	err := errors.New("rate limited")
	assert.True(t, RecordErrorAndStatus(span, err))
	assert.Equal(t, "rate limited", span.lastError)
	assert.Equal(t, "rate limited", span.statusMsg)
	assert.Equal(t, codes.Error, span.statusCode)

	span = &mockSpan{}
	assert.False(t, RecordErrorAndStatus(span, nil))
	assert.Equal(t, "OK", span.statusMsg)
	assert.Equal(t, codes.Ok, span.statusCode)
}

func TestStart(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	tracer = tp.Tracer("test-tracer")

	_, span := Start(t.Context())
	span.End()

	// Span names derive from the calling function.
	spans := exporter.GetSpans()
	assert.Equal(t, 1, len(spans))
	assert.Equal(t, "telemetry::TestStart", spans[0].Name)
}

// --- Mocks ---

type mockSpan struct {
	trace.Span
	lastError  string
	statusCode codes.Code
	statusMsg  string
}

func (m *mockSpan) RecordError(err error, _ ...trace.EventOption) {
	m.lastError = err.Error()
}
func (m *mockSpan) SetStatus(code codes.Code, msg string) {
	m.statusCode = code
	m.statusMsg = msg
}
