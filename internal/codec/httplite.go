package codec

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/iliamunaev/simulated-disk-io-server/internal/apperr"
	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
)

// MaxHeaderLines bounds how many already-received header lines are
// drained after the request line.
const MaxHeaderLines = 100

// DefaultServerName is sent in the Server header when none is configured.
const DefaultServerName = "simulated-disk-io-server"

var statusText = map[model.Outcome]string{
	model.OK:           "200 OK",
	model.QueueTimeout: "408 TIMEOUT",
	model.BadRequest:   "400 BAD REQUEST",
}

// HTTPLite reads only the request line of an HTTP/1.x message. Its
// target is "/" followed by the status,delay,path fields.
type HTTPLite struct {
	serverName string
}

func NewHTTPLite(serverName string) HTTPLite {
	if serverName == "" {
		serverName = DefaultServerName
	}
	return HTTPLite{serverName: serverName}
}

func (HTTPLite) Name() string { return ProtocolHTTP }

// ReadPayload returns the request line. Header lines that have already
// arrived are discarded so that closing the connection does not reset
// it under unread data; it never blocks waiting for more headers.
func (HTTPLite) ReadPayload(r *bufio.Reader) (string, error) {
	line, err := readLine(r)
	if err != nil || line == "" {
		return line, err
	}

	for i := 0; i < MaxHeaderLines && r.Buffered() > 0; i++ {
		buf, _ := r.Peek(r.Buffered())
		if bytes.IndexByte(buf, '\n') < 0 {
			break
		}
		h, _ := r.ReadString('\n')
		if strings.TrimRight(h, "\r\n") == "" {
			break
		}
	}
	return line, nil
}

func (HTTPLite) Decode(payload string) (model.Request, error) {
	if payload == "" {
		return model.Request{}, apperr.ErrEmptyPayload
	}

	tokens := strings.Fields(payload)
	if len(tokens) < 2 {
		return model.Request{}, apperr.ErrBadRequestLine
	}

	return parseFields(strings.TrimPrefix(tokens[1], "/"))
}

func (h HTTPLite) Encode(w io.Writer, resp model.Response) error {
	status, ok := statusText[resp.Outcome]
	if !ok {
		status = statusText[model.BadRequest]
	}
	body := strconv.FormatInt(resp.TotalTimeMS, 10) + fieldSep + resp.ResourcePath

	var b strings.Builder
	b.WriteString("HTTP/1.1 " + status + "\r\n")
	b.WriteString("Server: " + h.serverName + "\r\n")
	b.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n")
	b.WriteString("Connection: close\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)

	_, err := io.WriteString(w, b.String())
	return err
}
