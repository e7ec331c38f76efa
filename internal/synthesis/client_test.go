package synthesis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
)

// fakeEngine implements the two-step audio_query/synthesis protocol.
func fakeEngine(t *testing.T, wav []byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/audio_query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		calls.Add(1)
		assert.NotEmpty(t, r.URL.Query().Get("speaker"))
		assert.NotEmpty(t, r.URL.Query().Get("text"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"speedScale":   1.0,
			"volumeScale":  1.0,
			"outputStereo": false,
			"accent_phrases": []interface{}{
				map[string]interface{}{"moras": []interface{}{}},
			},
		})
	})
	mux.HandleFunc("/synthesis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		calls.Add(1)
		var query map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))

		// The tuned values must replace what audio_query returned.
		assert.Equal(t, 1.5, query["volumeScale"])
		assert.Equal(t, true, query["outputStereo"])

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestSynthesizeTwoStepProtocol(t *testing.T) {
	wantWav := []byte("RIFF....WAVEfmt ")
	srv, calls := fakeEngine(t, wantWav)

	c := NewClient(srv.URL, DefaultCatalog(), NewTuning())

	wav, err := c.Synthesize(context.Background(), "こんにちは", 1)
	require.NoError(t, err)
	assert.Equal(t, wantWav, wav)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSynthesizeRejectsUnknownSpeakerWithoutNetworkCall(t *testing.T) {
	srv, calls := fakeEngine(t, []byte("wav"))

	c := NewClient(srv.URL, DefaultCatalog(), NewTuning())

	_, err := c.Synthesize(context.Background(), "hello", 9999)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSpeaker)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	srv, calls := fakeEngine(t, []byte("wav"))

	c := NewClient(srv.URL, DefaultCatalog(), NewTuning())

	_, err := c.Synthesize(context.Background(), "", 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSynthesis))
	assert.Equal(t, int32(0), calls.Load())
}

func TestSynthesizeEngineErrorIsSynthesisKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine busy", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, DefaultCatalog(), NewTuning())

	_, err := c.Synthesize(context.Background(), "hello", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSynthesis))
}

func TestSynthesizeEmptyAudioIsAnError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/audio_query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"speedScale": 1.0})
	})
	mux.HandleFunc("/synthesis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, DefaultCatalog(), NewTuning())

	_, err := c.Synthesize(context.Background(), "hello", 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSynthesis))
}
