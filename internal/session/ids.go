package session

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const handleAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz1234567890"

// newClTRID builds a fresh client transaction ID of the form
// prefix-unixtime-random. RFC 5730 caps clTRID at 64 characters; the
// .it registry is stricter, so anything over 32 characters keeps only
// its trailing 32, preserving the timestamp and random suffix.
func (s *Session) newClTRID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	id := fmt.Sprintf("%s-%d-%s", s.cfg.ClTRIDPrefix, s.clock().Unix(), suffix)
	if len(id) > 32 {
		id = id[len(id)-32:]
	}
	return id
}

// AuthInfo generates a random 16-character authorization code for
// freshly created objects.
func AuthInfo() string {
	return randomString(16)
}

// NewHandle generates a contact handle: the configured prefix padded
// with random characters up to 16 total.
func (s *Session) NewHandle() string {
	n := 16 - len(s.cfg.HandlePrefix)
	if n < 4 {
		n = 4
	}
	return s.cfg.HandlePrefix + randomString(n)
}

func randomString(n int) string {
	buf := make([]byte, n)
	// rand.Read never fails on supported platforms.
	rand.Read(buf)
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = handleAlphabet[int(b)%len(handleAlphabet)]
	}
	return string(out)
}
