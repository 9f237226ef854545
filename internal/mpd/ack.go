package mpd

import (
	"strconv"
	"strings"

	gompd "github.com/fhs/gompd/v2/mpd"
)

// ParseAck decodes the detail of an ACK line, "[code@index] {command} message".
// Parts that do not follow that layout are left zero and the rest of the
// text becomes the message.
func ParseAck(detail string) gompd.Error {
	var ack gompd.Error
	cur := strings.TrimSpace(detail)

	if strings.HasPrefix(cur, "[") {
		sep := strings.Index(cur, "@")
		end := strings.Index(cur, "] ")
		if sep > 0 && end > sep {
			code, codeErr := strconv.Atoi(cur[1:sep])
			idx, idxErr := strconv.Atoi(cur[sep+1 : end])
			if codeErr == nil && idxErr == nil {
				ack.Code = gompd.ErrorCode(code)
				ack.CommandListIndex = idx
				cur = cur[end+2:]
			}
		}
	}
	if strings.HasPrefix(cur, "{") {
		if end := strings.Index(cur, "} "); end > 0 {
			ack.CommandName = cur[1:end]
			cur = cur[end+2:]
		}
	}
	ack.Message = strings.TrimSpace(cur)
	return ack
}
