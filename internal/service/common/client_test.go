//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	api "github.com/oshokin/relcut/internal/api/http/index"
)

// TestDial_Validation rejects an empty index address.
func TestDial_Validation(t *testing.T) {
	t.Parallel()

	_, err := Dial("")
	require.Error(t, err)

	c, err := Dial("http://127.0.0.1:8417", WithCallTimeout(time.Second))
	require.NoError(t, err)
	require.NotNil(t, c)
}

// TestClient_AgainstStubServer exercises Ping, Upload, Fetch and error mapping.
func TestClient_AgainstStubServer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/healthz":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPut:
			body, _ := io.ReadAll(r.Body) //nolint:errcheck // Stub server keeps error handling minimal.
			require.Equal(t, "payload", string(body))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(api.UploadResult{Accepted: "file.tar.gz", Version: "1.0.0"})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "file.tar.gz"):
			_, _ = w.Write([]byte("artifact-bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "no such file"})
		}
	}))
	defer server.Close()

	client, err := Dial(server.URL, WithCallTimeout(5*time.Second))
	require.NoError(t, err)

	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	result, err := client.Upload(ctx, "sampletools", "file.tar.gz", strings.NewReader("payload"))
	require.NoError(t, err)
	require.Equal(t, "1.0.0", result.Version)

	body, err := client.Fetch(ctx, "sampletools", "file.tar.gz")
	require.NoError(t, err)

	contents, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	require.Equal(t, "artifact-bytes", string(contents))

	// Error responses surface the server-provided message.
	_, err = client.Fetch(ctx, "sampletools", "missing.tar.gz")
	require.ErrorContains(t, err, "no such file")
}
