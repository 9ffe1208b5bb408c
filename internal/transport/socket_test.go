package transport

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eppclient/pkg/errors"
)

// TestFrameRoundTrip verifies the length prefix counts itself, per the
// EPP TCP transport framing.
func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("<epp><hello/></epp>")

	require.NoError(t, writeFrame(&buf, body))

	header := binary.BigEndian.Uint32(buf.Bytes()[:4])
	assert.Equal(t, uint32(len(body)+4), header)

	got, err := readFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestReadFrameRejectsBadLengths(t *testing.T) {
	cases := []struct {
		name   string
		header uint32
	}{
		{"shorter than its own header", 3},
		{"over the frame limit", frameLimit + 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, binary.Write(&buf, binary.BigEndian, c.header))
			_, err := readFrame(&buf)
			require.Error(t, err)
			assert.Equal(t, errors.CodeTransport, errors.CodeOf(err))
		})
	}
}

func TestReadFrameTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(20)))
	buf.WriteString("short")

	_, err := readFrame(&buf)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
