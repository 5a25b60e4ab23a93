package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/lakehouse-shop/internal/domain/order"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(t *testing.T) *order.Record {
	t.Helper()
	rec, err := order.Build(
		time.UnixMilli(1_700_000_000_000),
		[]order.LineItem{{ProductID: 2, ProductName: "Smartphone Y", Price: decimal.RequireFromString("899.99"), Quantity: 1}},
		order.Customer{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"},
		order.Shipping{Address: "1 Navy Way", Country: "United States", State: "VA", Zip: "22350"},
		"credit",
	)
	require.NoError(t, err)
	return rec
}

// ============================================
// Success Tests
// ============================================

func TestSubmit_Success(t *testing.T) {
	var gotPath string
	var got map[string]json.RawMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"message":"Event sent successfully via Docker","command_output":">>"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	ack, err := client.Submit(context.Background(), testRecord(t), DeliveryConsole)

	require.NoError(t, err)
	assert.Equal(t, "/send_event", gotPath)
	assert.True(t, ack.Success)
	assert.Equal(t, "Event sent successfully via Docker", ack.Message)
	assert.Equal(t, ">>", ack.CommandOutput)

	assert.JSONEq(t, "true", string(got["use_docker_method"]))
	var event map[string]any
	require.NoError(t, json.Unmarshal(got["event_data"], &event))
	assert.Equal(t, "order_1700000000000", event["id"])
	assert.Equal(t, "order", event["type"])
}

func TestSubmit_DirectDelivery(t *testing.T) {
	var useDocker bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			UseDockerMethod bool `json:"use_docker_method"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		useDocker = body.UseDockerMethod
		w.Write([]byte(`{"success":true,"message":"Event sent successfully"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Submit(context.Background(), testRecord(t), DeliveryDirect)

	require.NoError(t, err)
	assert.False(t, useDocker)
}

// ============================================
// Failure Tests
// ============================================

func TestSubmit_ErrorBodies(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		expectedMsg    string
		expectedDetail string
	}{
		{"details", 500, `{"error":"Could not create Kafka producer","details":"Bootstrap servers: kafka:9092"}`, "Could not create Kafka producer", "Bootstrap servers: kafka:9092"},
		{"stderr", 500, `{"error":"Docker command failed: no such container","returncode":1,"stdout":"","stderr":"no such container"}`, "Docker command failed: no such container", "no such container"},
		{"traceback", 500, `{"error":"boom","traceback":"Traceback..."}`, "boom", "Traceback..."},
		{"not json", 502, `<html>Bad Gateway</html>`, defaultErrorMessage, ""},
		{"no error field", 400, `{"message":"nope"}`, defaultErrorMessage, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ack, err := NewClient(server.URL).Submit(context.Background(), testRecord(t), DeliveryConsole)

			assert.Nil(t, ack)
			var gwErr *Error
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tt.status, gwErr.StatusCode)
			assert.Equal(t, tt.expectedMsg, gwErr.Message)
			assert.Equal(t, tt.expectedDetail, gwErr.Detail)
		})
	}
}

func TestSubmit_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).Submit(context.Background(), testRecord(t), DeliveryConsole)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Zero(t, gwErr.StatusCode)
	assert.NotEmpty(t, gwErr.Message)
	assert.Contains(t, gwErr.Error(), "ingest unreachable: ")
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "ingest returned 500: Docker command failed",
		(&Error{StatusCode: 500, Message: "Docker command failed"}).Error())
	assert.Equal(t, "ingest unreachable: connection refused",
		(&Error{Message: "connection refused"}).Error())
}

func TestSubmit_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).Submit(ctx, testRecord(t), DeliveryConsole)

	var gwErr *Error
	assert.True(t, errors.As(err, &gwErr))
}

func TestDelivery_String(t *testing.T) {
	assert.Equal(t, "console", DeliveryConsole.String())
	assert.Equal(t, "direct", DeliveryDirect.String())
}
