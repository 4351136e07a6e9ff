// Package events records cluster events published by the fleet.
//
// A Journal is the fleet's datamodel.EventPublisher. It numbers events,
// keeps a bounded in-memory history for the console and optionally
// appends every event as one CBOR record to a file.
package events

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/backkem/matter-appliances/pkg/datamodel"
	"github.com/fxamacker/cbor/v2"
	"github.com/pion/logging"
)

// DefaultCapacity is the default number of events kept in memory.
const DefaultCapacity = 256

var (
	// ErrClosed is returned by PublishEvent after Close.
	ErrClosed = errors.New("events: journal closed")

	// ErrCorrupt marks a journal file whose tail does not decode.
	ErrCorrupt = errors.New("events: corrupt journal record")
)

// Record is one published event.
type Record struct {
	Number    datamodel.EventNumber   `cbor:"1,keyasint"`
	Timestamp time.Time               `cbor:"2,keyasint"`
	Endpoint  datamodel.EndpointID    `cbor:"3,keyasint"`
	Cluster   datamodel.ClusterID     `cbor:"4,keyasint"`
	Event     datamodel.EventID       `cbor:"5,keyasint"`
	Priority  datamodel.EventPriority `cbor:"6,keyasint"`

	// Data is the event payload. Records read back from a file hold the
	// payload as a generic map.
	Data any `cbor:"7,keyasint,omitempty"`
}

func (r Record) String() string {
	return fmt.Sprintf("#%d %s endpoint %d cluster 0x%04X event 0x%02X [%s] %+v",
		r.Number, r.Timestamp.Format(time.RFC3339), r.Endpoint, uint32(r.Cluster), uint32(r.Event), r.Priority, r.Data)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR decoder mode: %v", err))
	}
}

// Config configures a Journal.
type Config struct {
	// Path of the CBOR journal file. Empty keeps events in memory only.
	// An existing file is appended to and numbering continues after its
	// last record. A tail that does not decode, such as a record cut
	// short by a crash, is logged and truncated away.
	Path string

	// Capacity bounds the in-memory history. Zero selects
	// DefaultCapacity.
	Capacity int

	// Now returns the event timestamp. Defaults to time.Now.
	Now func() time.Time

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Journal implements datamodel.EventPublisher.
type Journal struct {
	config Config
	log    logging.LeveledLogger

	mu      sync.Mutex
	next    datamodel.EventNumber
	history []Record
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// New creates a Journal.
func New(cfg Config) (*Journal, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	j := &Journal{
		config: cfg,
		next:   1,
	}
	if cfg.LoggerFactory != nil {
		j.log = cfg.LoggerFactory.NewLogger("events")
	}

	if cfg.Path != "" {
		existing, valid, err := scan(cfg.Path)
		switch {
		case err == nil, errors.Is(err, os.ErrNotExist):
		case errors.Is(err, ErrCorrupt):
			if j.log != nil {
				j.log.Warnf("journal %s: keeping %d records, dropping tail at byte %d: %v", cfg.Path, len(existing), valid, err)
			}
			if err := os.Truncate(cfg.Path, valid); err != nil {
				return nil, fmt.Errorf("truncate journal: %w", err)
			}
		default:
			return nil, fmt.Errorf("read journal: %w", err)
		}
		if n := len(existing); n > 0 {
			j.next = existing[n-1].Number + 1
		}

		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		j.file = f
		j.encoder = encMode.NewEncoder(f)
	}

	return j, nil
}

// PublishEvent implements datamodel.EventPublisher.
func (j *Journal) PublishEvent(endpoint datamodel.EndpointID, cluster datamodel.ClusterID, eventID datamodel.EventID, priority datamodel.EventPriority, data any) (datamodel.EventNumber, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return 0, ErrClosed
	}

	rec := Record{
		Number:    j.next,
		Timestamp: j.config.Now(),
		Endpoint:  endpoint,
		Cluster:   cluster,
		Event:     eventID,
		Priority:  priority,
		Data:      data,
	}
	j.next++

	if j.encoder != nil {
		if err := j.encoder.Encode(rec); err != nil && j.log != nil {
			// The in-memory history still gets the event.
			j.log.Warnf("append event %d: %v", rec.Number, err)
		}
	}

	j.history = append(j.history, rec)
	if over := len(j.history) - j.config.Capacity; over > 0 {
		j.history = append(j.history[:0:0], j.history[over:]...)
	}

	if j.log != nil {
		j.log.Debugf("%s", rec)
	}
	return rec.Number, nil
}

// History returns the events kept in memory, oldest first.
func (j *Journal) History() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Record(nil), j.history...)
}

// Since returns the in-memory events numbered after n.
func (j *Journal) Since(n datamodel.EventNumber) []Record {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []Record
	for _, r := range j.history {
		if r.Number > n {
			out = append(out, r)
		}
	}
	return out
}

// Close closes the journal file. It is safe to call Close multiple times.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	if j.file != nil {
		return j.file.Close()
	}
	return nil
}

// ReadFile decodes every record of a journal file. When the file ends in
// data that does not decode, it returns the records before it together
// with an error wrapping ErrCorrupt.
func ReadFile(path string) ([]Record, error) {
	records, _, err := scan(path)
	return records, err
}

// scan decodes records until EOF or the first undecodable one and reports
// the length of the decoded prefix in bytes.
func scan(path string) ([]Record, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := decMode.NewDecoder(f)
	var (
		records []Record
		valid   int64
	)
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return records, valid, nil
			}
			return records, valid, fmt.Errorf("%w: record %d: %v", ErrCorrupt, len(records)+1, err)
		}
		valid = int64(dec.NumBytesRead())
		records = append(records, rec)
	}
}

// Verify Journal implements the interface.
var _ datamodel.EventPublisher = (*Journal)(nil)
