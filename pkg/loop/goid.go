package loop

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutineSpace = []byte("goroutine ")

// goroutineID returns the id of the calling goroutine, parsed from the
// first line of its stack trace. It returns 0 if the line is unexpected.
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutineSpace)
	i := bytes.IndexByte(b, ' ')
	if i < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(b[:i]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
