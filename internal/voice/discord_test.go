package voice

import (
	"errors"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/JiaLong0209/discord-ai-assistant-bot/pkg/errors"
)

func restError(status int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
	}
}

func TestClassifyJoinError(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want apperrors.Kind
	}{
		{"forbidden", restError(http.StatusForbidden), apperrors.KindPermissionDenied},
		{"unauthorized", restError(http.StatusUnauthorized), apperrors.KindPermissionDenied},
		{"not found", restError(http.StatusNotFound), apperrors.KindChannelUnavailable},
		{"already joined", errors.New("error: already joined a voice channel"), apperrors.KindAlreadyConnectedElsewhere},
		{"timeout", errors.New("timeout waiting for voice"), apperrors.KindChannelUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperrors.KindOf(classifyJoinError(tc.in)))
		})
	}
}
