package utils

import "io"

// maxDrain bounds how much of an unread body is discarded before closing. Larger
// remainders are cheaper to abandon along with the connection.
const maxDrain = 64 << 10

// DrainAndClose discards up to maxDrain bytes of rc so the transport can reuse the
// connection, then closes it. A nil rc is a no-op.
func DrainAndClose(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, maxDrain))
	return rc.Close()
}
