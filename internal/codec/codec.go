// Package codec implements the two wire variants that carry the
// status,delay,path request envelope: a bare comma-delimited line and
// an HTTP-lite request line.
package codec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iliamunaev/simulated-disk-io-server/internal/apperr"
	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
)

const (
	ProtocolLine = "line"
	ProtocolHTTP = "http"
)

// Codec frames, decodes and encodes one wire variant.
type Codec interface {
	Name() string
	// Decode turns an isolated payload into a Request.
	Decode(payload string) (model.Request, error)
	// ReadPayload isolates the payload from the start of a connection.
	ReadPayload(r *bufio.Reader) (string, error)
	// Encode writes resp. It does not close the connection.
	Encode(w io.Writer, resp model.Response) error
}

// ByName returns the codec registered under name.
func ByName(name, serverName string) (Codec, error) {
	switch name {
	case ProtocolLine:
		return NewLine(), nil
	case ProtocolHTTP:
		return NewHTTPLite(serverName), nil
	default:
		return nil, fmt.Errorf("unknown protocol %q", name)
	}
}

const fieldSep = ","

// parseFields applies the three-field rule shared by both variants.
func parseFields(s string) (model.Request, error) {
	if s == "" {
		return model.Request{}, apperr.ErrEmptyPayload
	}

	fields := strings.Split(s, fieldSep)
	if len(fields) != 3 {
		return model.Request{}, fmt.Errorf("got %d fields: %w", len(fields), apperr.ErrFieldCount)
	}

	hint, err := strconv.Atoi(fields[0])
	if err != nil {
		return model.Request{}, fmt.Errorf("status hint %q: %w", fields[0], apperr.ErrBadStatusHint)
	}

	delay, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || delay < 0 || delay > model.MaxDelayMS {
		return model.Request{}, fmt.Errorf("delay %q: %w", fields[1], apperr.ErrBadDelay)
	}

	return model.Request{
		StatusHint:   hint,
		DelayMS:      delay,
		ResourcePath: fields[2],
	}, nil
}

// readLine reads up to and including '\n' and strips the terminator.
// A final unterminated line is returned without error.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == io.EOF {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
