package uid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"go.uber.org/atomic"
)

// ErrNoNodeIdentity indicates neither /etc/machine-id nor the hostname is usable.
var ErrNoNodeIdentity = errors.New("uid: no stable node identity")

// ObjectID generates 24-byte hex ids that are unique across processes:
// 6 bytes of millisecond time, 6 bytes of node hash, 2 bytes of pid,
// 4 bytes of counter and 6 random bytes. Lock tokens use it so a holder can
// always tell its own token from another node's.
type ObjectID struct {
	node    [6]byte
	pid     uint16
	counter *atomic.Uint32
	now     func() time.Time
}

// NewObjectID derives the node identity and seeds the counter.
func NewObjectID() (*ObjectID, error) {
	src := nodeIdentity()
	if src == "" {
		return nil, ErrNoNodeIdentity
	}

	var seed [4]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, err
	}

	g := &ObjectID{
		pid:     uint16(os.Getpid()),
		counter: atomic.NewUint32(binary.BigEndian.Uint32(seed[:])),
		now:     time.Now,
	}
	sum := sha256.Sum256([]byte(src))
	copy(g.node[:], sum[:6])

	return g, nil
}

// Generate returns a 48-character lowercase hex id.
func (g *ObjectID) Generate() string {
	var raw [24]byte

	ms := uint64(g.now().UnixMilli())
	for i := 0; i < 6; i++ {
		raw[i] = byte(ms >> (40 - 8*i))
	}
	copy(raw[6:12], g.node[:])
	binary.BigEndian.PutUint16(raw[12:14], g.pid)
	binary.BigEndian.PutUint32(raw[14:18], g.counter.Inc())
	_, _ = rand.Read(raw[18:])

	return hex.EncodeToString(raw[:])
}

func nodeIdentity() string {
	if b, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s
		}
	}
	if h, err := os.Hostname(); err == nil {
		return strings.TrimSpace(h)
	}
	return ""
}
