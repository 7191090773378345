package session

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/park285/gungi-arena/internal/gungi"
)

// MoveHash is the hex SHA-256 of the move coordinates, the destination tier and
// the submission time. Equal inputs always give equal hashes.
func MoveHash(from, to gungi.Position, at time.Time) string {
	buf := make([]byte, 0, 64)
	for _, v := range []int{from.Row, from.Col, from.Tier, to.Row, to.Col, to.Tier} {
		buf = strconv.AppendInt(buf, int64(v), 10)
		buf = append(buf, ':')
	}
	buf = append(buf, 't')
	buf = strconv.AppendInt(buf, int64(to.Tier), 10)
	buf = append(buf, '@')
	buf = strconv.AppendInt(buf, at.UnixNano(), 10)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
