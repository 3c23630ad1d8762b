package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

func New() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// NewSession returns an identifier in the wire format the backend expects for
// session correlation: session_<random>_<epochMillis>.
func NewSession(now time.Time) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return fmt.Sprintf("session_%s_%d", hex.EncodeToString(buf), now.UnixMilli())
}
