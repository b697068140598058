package kbclient

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jandamek/jervis/pkg/indexing"
)

func TestCPGSource_Discover_DecodesNDJSONNodesIntoAnalysisItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ingest/cpg", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		fmt.Fprintln(w, `{"file_path":"svc/handler.go","type":"METHOD","full_name":"HandleRequest","line_start":10,"line_end":20,"node_id":"n1","language":"go","code":"func HandleRequest() {}"}`)
		fmt.Fprintln(w, `{"file_path":"svc/handler.go","type":"CLASS","full_name":"RequestHandler","line_start":1,"line_end":40,"node_id":"n2","language":"go","code":"type RequestHandler struct{}"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	source := NewCPGSource(client, "/checkout", "sha-1")

	var got []indexing.AnalysisItem
	items, errs := source.Discover(context.Background(), "proj-1")
	for item := range items {
		got = append(got, item)
	}
	require.NoError(t, <-errs)

	require.Len(t, got, 2)
	assert.Equal(t, "svc/handler.go", got[0].FilePath)
	assert.Equal(t, indexing.SymbolMethod, got[0].Symbol.Type)
	assert.Equal(t, "HandleRequest", got[0].Symbol.FullName)
	assert.Equal(t, indexing.SymbolClass, got[1].Symbol.Type)
	assert.Equal(t, "proj-1", got[1].ProjectID)
}

func TestCPGSource_Discover_ServerErrorSurfacesOnErrorChannel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "no such checkout")
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	source := NewCPGSource(client, "/checkout", "sha-1")

	items, errs := source.Discover(context.Background(), "proj-1")
	for range items {
		t.Fatal("expected no items on a 404 response")
	}
	require.Error(t, <-errs)
}

func TestCPGSource_Discover_CancelledContextStopsEarly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		for i := 0; i < 1000; i++ {
			fmt.Fprintf(w, `{"file_path":"f%d.go","type":"FUNCTION","full_name":"F%d","code":"func F%d(){}"}`+"\n", i, i, i)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	source := NewCPGSource(client, "/checkout", "sha-1")

	ctx, cancel := context.WithCancel(context.Background())
	items, _ := source.Discover(ctx, "proj-1")

	<-items
	cancel()
	for range items {
		// drain until the goroutine observes cancellation and closes the channel
	}
}
