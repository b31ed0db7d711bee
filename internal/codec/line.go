package codec

import (
	"bufio"
	"fmt"
	"io"

	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
)

// Line is the bare line protocol:
//
//	request:  <status_hint>,<delay_ms>,<path>\n
//	response: <code>,<total_time_ms>,<path>\n
//
// A serviced request answers with its own status hint as the code.
// Hints 1 and 2 are therefore indistinguishable from the queue timeout
// and bad request codes; clients should treat a non-empty path as the
// success signal rather than keying on the code.
type Line struct{}

func NewLine() Line { return Line{} }

func (Line) Name() string { return ProtocolLine }

func (Line) ReadPayload(r *bufio.Reader) (string, error) {
	return readLine(r)
}

func (Line) Decode(payload string) (model.Request, error) {
	return parseFields(payload)
}

func (Line) Encode(w io.Writer, resp model.Response) error {
	code := resp.Outcome.Code()
	if resp.Outcome == model.OK {
		code = resp.StatusHint
	}
	_, err := fmt.Fprintf(w, "%d,%d,%s\n", code, resp.TotalTimeMS, resp.ResourcePath)
	return err
}
