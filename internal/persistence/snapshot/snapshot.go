// Package snapshot stores city captures as zstd-compressed files: one JSON
// header line followed by a gob-encoded capture.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
)

// Version is the current file format version.
const Version = 1

// Ext is the conventional file extension.
const Ext = ".citysnap.zst"

var ErrVersion = errors.New("unsupported snapshot version")

// Header is readable without decoding the capture.
type Header struct {
	Version   int    `json:"version"`
	CityName  string `json:"city_name"`
	Tick      uint64 `json:"tick"`
	Buildings int    `json:"buildings"`
	Districts int    `json:"districts"`
}

type SnapshotV1 struct {
	Header  Header
	Capture city.Capture
}

// New wraps a capture with a filled-in header.
func New(c city.Capture) SnapshotV1 {
	return SnapshotV1{
		Header: Header{
			Version:   Version,
			CityName:  c.CityName,
			Tick:      c.Tick,
			Buildings: len(c.Buildings),
			Districts: len(c.Districts),
		},
		Capture: c,
	}
}

// FileName is the conventional name for a capture taken at tick.
func FileName(tick uint64) string {
	return fmt.Sprintf("%016d%s", tick, Ext)
}

func Encode(w io.Writer, snap SnapshotV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 64*1024)

	hb, err := json.Marshal(snap.Header)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func Decode(r io.Reader) (SnapshotV1, error) {
	var snap SnapshotV1
	dec, err := zstd.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)
	h, err := readHeader(br)
	if err != nil {
		return snap, err
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	snap.Header = h
	return snap, nil
}

// WriteSnapshot writes snap to path atomically.
func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, snap); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	f, err := os.Open(path)
	if err != nil {
		return SnapshotV1{}, err
	}
	defer f.Close()
	snap, err := Decode(f)
	if err != nil {
		return snap, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return Header{}, err
	}
	defer dec.Close()
	return readHeader(bufio.NewReader(dec))
}

// List returns the snapshot files in dir. FileName pads ticks, so the
// result is ordered oldest first.
func List(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*"+Ext))
}

func readHeader(br *bufio.Reader) (Header, error) {
	var h Header
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	if h.Version != Version {
		return h, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return h, nil
}
