package bridge

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// maxSSELine bounds a single stream line; list snapshots with long logs can be large
const maxSSELine = 4 << 20

// ReadEvents parses a text/event-stream body and calls fn for every complete
// event until r is exhausted. Comment lines and unknown fields are ignored.
func ReadEvents(r io.Reader, fn func(Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxSSELine)

	var name string
	var data []string

	flush := func() {
		if name != "" {
			payload := strings.Join(data, "\n")
			ev := Event{Name: name}
			if payload != "" {
				ev.Payload = json.RawMessage(payload)
			}
			fn(ev)
		}
		name = ""
		data = data[:0]
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	flush()

	return scanner.Err()
}
