// Package loadgen replays a request workload against a running server
// and reports what each client observed.
package loadgen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/iliamunaev/simulated-disk-io-server/internal/codec"
)

// DefaultClientTimeout is the wall time after which a request is flagged
// as a client-side timeout.
const DefaultClientTimeout = 5 * time.Second

// Workload is the on-disk description of a load run. Unknown keys are
// rejected so typos surface as errors.
type Workload struct {
	Protocol      string        `yaml:"protocol"`
	Address       string        `yaml:"address"`
	Iterations    int           `yaml:"iterations"`
	Concurrency   int           `yaml:"concurrency"`
	ClientTimeout time.Duration `yaml:"client_timeout"`
	Requests      []Request     `yaml:"requests"`
}

// Request is one entry of a workload. When Raw is set it is written
// verbatim and the other fields are ignored.
type Request struct {
	Status  int    `yaml:"status"`
	DelayMS int64  `yaml:"delay_ms"`
	Path    string `yaml:"path"`
	Raw     string `yaml:"raw,omitempty"`
}

// LoadWorkload reads and validates a workload file.
func LoadWorkload(path string) (Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workload{}, fmt.Errorf("read workload: %w", err)
	}
	return ParseWorkload(bytes.NewReader(data))
}

// ParseWorkload decodes a workload with strict field checking and
// fills in defaults.
func ParseWorkload(r io.Reader) (Workload, error) {
	var w Workload
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&w); err != nil {
		if errors.Is(err, io.EOF) {
			return Workload{}, errors.New("parse workload: empty document")
		}
		return Workload{}, fmt.Errorf("parse workload: %w", err)
	}

	w.applyDefaults()
	if err := w.Validate(); err != nil {
		return Workload{}, err
	}
	return w, nil
}

func (w *Workload) applyDefaults() {
	if w.Protocol == "" {
		w.Protocol = codec.ProtocolLine
	}
	if w.Address == "" {
		w.Address = "localhost:7000"
	}
	if w.Iterations <= 0 {
		w.Iterations = 1
	}
	if w.Concurrency <= 0 {
		w.Concurrency = 1
	}
	if w.ClientTimeout <= 0 {
		w.ClientTimeout = DefaultClientTimeout
	}
}

// Validate reports every problem with w at once.
func (w Workload) Validate() error {
	var errs []error
	if w.Protocol != codec.ProtocolLine && w.Protocol != codec.ProtocolHTTP {
		errs = append(errs, fmt.Errorf("unknown protocol %q", w.Protocol))
	}
	if len(w.Requests) == 0 {
		errs = append(errs, errors.New("workload has no requests"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid workload: %w", err)
	}
	return nil
}
