package mpd

import (
	"bytes"
	"strings"
)

// RecordKind identifies which sentinel line closed a record.
type RecordKind int

const (
	// RecordBody is a response closed by "OK" or "list_OK".
	RecordBody RecordKind = iota
	// RecordGreeting is the "OK MPD <version>" banner sent once per connection.
	RecordGreeting
	// RecordFailure is a response closed by "ACK ...".
	RecordFailure
)

func (k RecordKind) String() string {
	switch k {
	case RecordGreeting:
		return "greeting"
	case RecordFailure:
		return "failure"
	default:
		return "body"
	}
}

// Record is one complete daemon response.
type Record struct {
	Kind RecordKind
	// Body is every line preceding the sentinel, newlines included.
	Body string
	// Detail is the remainder of the sentinel line: the version for a
	// greeting, the error text for a failure.
	Detail string
}

const (
	greetingPrefix = "OK MPD "
	failurePrefix  = "ACK"
	listEndPrefix  = "list_OK"
	okPrefix       = "OK"
)

// Framer splits the daemon's byte stream into records. Sentinels are only
// recognized at the start of a complete line, so the records produced never
// depend on how the stream was chunked.
type Framer struct {
	buf []byte
	// scanned is the offset of the first line in buf not yet checked for a sentinel.
	scanned int
}

// Feed appends p to the pending buffer and returns every record completed by it.
// Bytes after the last sentinel stay buffered for the next call.
func (f *Framer) Feed(p []byte) []Record {
	f.buf = append(f.buf, p...)

	var records []Record
	start := 0
	for {
		nl := bytes.IndexByte(f.buf[f.scanned:], '\n')
		if nl < 0 {
			break
		}
		lineStart := f.scanned
		lineEnd := f.scanned + nl
		f.scanned = lineEnd + 1

		kind, detail, ok := classify(f.buf[lineStart:lineEnd])
		if !ok {
			continue
		}
		records = append(records, Record{
			Kind:   kind,
			Body:   string(f.buf[start:lineStart]),
			Detail: detail,
		})
		start = f.scanned
	}

	if start > 0 {
		n := copy(f.buf, f.buf[start:])
		f.buf = f.buf[:n]
		f.scanned -= start
	}
	return records
}

func classify(line []byte) (RecordKind, string, bool) {
	s := strings.TrimSuffix(string(line), "\r")
	switch {
	case strings.HasPrefix(s, greetingPrefix):
		return RecordGreeting, strings.TrimSpace(s[len(greetingPrefix):]), true
	case strings.HasPrefix(s, failurePrefix):
		return RecordFailure, strings.TrimSpace(s[len(failurePrefix):]), true
	case strings.HasPrefix(s, listEndPrefix):
		return RecordBody, strings.TrimSpace(s[len(listEndPrefix):]), true
	case strings.HasPrefix(s, okPrefix):
		return RecordBody, strings.TrimSpace(s[len(okPrefix):]), true
	}
	return 0, "", false
}
