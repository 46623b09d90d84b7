package spinner

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "generating")

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "generating")
	}, time.Second, 10*time.Millisecond)

	s.Update("[2/3] generating")
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[2/3] generating")
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.True(t, strings.HasSuffix(out.String(), "\r"))
}

func TestSpinnerStopBeforeFirstFrame(t *testing.T) {
	var out syncBuffer
	s := Start(&out, "uploading")
	s.Stop()
	assert.Equal(t, "\r\r", out.String())
}
