package voice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

// ffmpegPath is the transcoder executable. Overridable for environments
// where ffmpeg is not on PATH.
var ffmpegPath = "ffmpeg"

// startTranscode spawns ffmpeg converting WAV bytes on stdin into an OGG
// Opus stream on stdout, 48kHz stereo 20ms frames as the Discord voice
// gateway expects.
func startTranscode(ctx context.Context, wav []byte) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner",
		"-loglevel", "warning",
		"-i", "pipe:0",
		"-vn",
		"-c:a", "libopus",
		"-b:a", "96k",
		"-ar", "48000",
		"-ac", "2",
		"-application", "audio",
		"-frame_duration", "20",
		"-f", "ogg",
		"pipe:1")

	cmd.Stdin = bytes.NewReader(wav)
	cmd.Stderr = io.Discard

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return out, cmd.Wait, nil
}

// oggPacketReader extracts Opus packets from an OGG page stream. A packet is
// built from consecutive lacing segments; a segment shorter than 255 bytes
// terminates the packet.
type oggPacketReader struct {
	r        io.Reader
	header   [27]byte
	segments []byte
	segIdx   int
	packet   []byte
}

func newOggPacketReader(r io.Reader) *oggPacketReader {
	return &oggPacketReader{r: r}
}

// Next returns the next Opus packet, or io.EOF when the stream ends.
// OpusHead and OpusTags header packets are skipped; the voice gateway only
// wants audio frames.
func (o *oggPacketReader) Next() ([]byte, error) {
	for {
		pkt, err := o.nextPacket()
		if err != nil {
			return nil, err
		}
		if bytes.HasPrefix(pkt, []byte("OpusHead")) || bytes.HasPrefix(pkt, []byte("OpusTags")) {
			continue
		}
		return pkt, nil
	}
}

func (o *oggPacketReader) nextPacket() ([]byte, error) {
	o.packet = o.packet[:0]
	for {
		if o.segIdx >= len(o.segments) {
			if err := o.readPageHeader(); err != nil {
				// A partial packet at stream end is dropped.
				return nil, err
			}
			continue
		}

		segLen := int(o.segments[o.segIdx])
		o.segIdx++

		if segLen > 0 {
			seg := make([]byte, segLen)
			if _, err := io.ReadFull(o.r, seg); err != nil {
				return nil, err
			}
			o.packet = append(o.packet, seg...)
		}

		if segLen < 255 {
			out := make([]byte, len(o.packet))
			copy(out, o.packet)
			return out, nil
		}
	}
}

func (o *oggPacketReader) readPageHeader() error {
	if _, err := io.ReadFull(o.r, o.header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return io.EOF
		}
		return err
	}
	if string(o.header[0:4]) != "OggS" {
		return fmt.Errorf("invalid OGG page header")
	}
	segCount := int(o.header[26])
	o.segments = make([]byte, segCount)
	o.segIdx = 0
	if segCount == 0 {
		return nil
	}
	if _, err := io.ReadFull(o.r, o.segments); err != nil {
		return err
	}
	return nil
}
