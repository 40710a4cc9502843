// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"bufio"
	"encoding/binary"
	"io"
	mathrand "math/rand"
	"os"
	"sync"
	"time"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/messaging"
	"github.com/oklog/ulid/v2"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrCorruptRecord indicates an unreadable record in the queue file.
	ErrCorruptRecord = errors.New("corrupt durable queue record")

	// ErrQueueFull indicates the durable queue reached its bound. For
	// command envelopes this is fatal and must reach the operator.
	ErrQueueFull = errors.New("durable queue full")
)

// record is the on-disk form of a spilled publish. Envelope fields are
// flattened so the file stays readable by msgpack tooling.
type record struct {
	ID        string                 `msgpack:"id"`
	Topic     string                 `msgpack:"topic"`
	QoS       uint8                  `msgpack:"qos"`
	DeviceID  string                 `msgpack:"device_id"`
	Sequence  uint64                 `msgpack:"sequence"`
	Kind      uint8                  `msgpack:"kind"`
	Timestamp int64                  `msgpack:"timestamp_ns"`
	Payload   map[string]interface{} `msgpack:"payload"`
}

// Durable is a file-backed FIFO queue of publishes that must not be
// lost: at-least-once envelopes whose retry budget is exhausted and
// commands buffered while disconnected. Records are msgpack-encoded and
// length-prefixed; Append syncs the file before returning.
type Durable struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int
	maxSize int
	entropy *mathrand.Rand
}

// NewDurable opens (or creates) the queue file at path. maxSize bounds
// the number of resident records.
func NewDurable(path string, maxSize int) (*Durable, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, err
	}
	d := &Durable{
		file:    f,
		path:    path,
		maxSize: maxSize,
		entropy: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
	size, err := d.count()
	if err != nil {
		f.Close()
		return nil, err
	}
	d.size = size
	return d, nil
}

// Append persists the entry at the queue tail.
func (d *Durable) Append(e Entry) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.size >= d.maxSize {
		return ErrQueueFull
	}
	id, err := ulid.New(ulid.Timestamp(time.Now()), d.entropy)
	if err != nil {
		return err
	}
	rec := record{
		ID:        id.String(),
		Topic:     e.Topic,
		QoS:       uint8(e.QoS),
		DeviceID:  e.Envelope.DeviceID,
		Sequence:  e.Envelope.Sequence,
		Kind:      uint8(e.Envelope.Kind),
		Timestamp: e.Envelope.Timestamp.UnixNano(),
		Payload:   e.Envelope.Payload,
	}
	data, err := msgpack.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := d.file.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	var frame [4]byte
	binary.BigEndian.PutUint32(frame[:], uint32(len(data)))
	if _, err := d.file.Write(frame[:]); err != nil {
		return err
	}
	if _, err := d.file.Write(data); err != nil {
		return err
	}
	if err := d.file.Sync(); err != nil {
		return err
	}
	d.size++
	return nil
}

// Drain replays resident entries in append order. Entries handled
// without error are removed; on the first handler error draining stops
// and the remaining entries stay queued.
func (d *Durable) Drain(handle func(Entry) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	records, err := d.load()
	if err != nil {
		return err
	}
	var handleErr error
	done := 0
	for _, rec := range records {
		e := Entry{
			Topic: rec.Topic,
			QoS:   messaging.QoS(rec.QoS),
			Envelope: messaging.Envelope{
				DeviceID:  rec.DeviceID,
				Sequence:  rec.Sequence,
				Kind:      messaging.Kind(rec.Kind),
				Timestamp: time.Unix(0, rec.Timestamp).UTC(),
				Payload:   rec.Payload,
			},
		}
		if err := handle(e); err != nil {
			handleErr = err
			break
		}
		done++
	}
	if err := d.rewrite(records[done:]); err != nil {
		return err
	}
	d.size = len(records) - done
	return handleErr
}

// Len returns the number of resident records.
func (d *Durable) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.size
}

// Close closes the underlying file.
func (d *Durable) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

func (d *Durable) count() (int, error) {
	records, err := d.load()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (d *Durable) load() ([]record, error) {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	var records []record
	r := bufio.NewReader(d.file)
	for {
		var frame [4]byte
		if _, err := io.ReadFull(r, frame[:]); err != nil {
			if err == io.EOF {
				return records, nil
			}
			return nil, errors.Wrap(ErrCorruptRecord, err)
		}
		data := make([]byte, binary.BigEndian.Uint32(frame[:]))
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, errors.Wrap(ErrCorruptRecord, err)
		}
		var rec record
		if err := msgpack.Unmarshal(data, &rec); err != nil {
			return nil, errors.Wrap(ErrCorruptRecord, err)
		}
		records = append(records, rec)
	}
}

func (d *Durable) rewrite(records []record) error {
	if err := d.file.Truncate(0); err != nil {
		return err
	}
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	for _, rec := range records {
		data, err := msgpack.Marshal(rec)
		if err != nil {
			return err
		}
		var frame [4]byte
		binary.BigEndian.PutUint32(frame[:], uint32(len(data)))
		if _, err := d.file.Write(frame[:]); err != nil {
			return err
		}
		if _, err := d.file.Write(data); err != nil {
			return err
		}
	}
	return d.file.Sync()
}
