// Package output implements the streaming record and tabular writers
// (C6): JSON array framing and flattened CSV rows, each optionally
// wrapped in gzip compression and AES-256-GCM authenticated encryption,
// with atomic temp-file-then-rename finalization.
package output

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/banton/medical-patients-sub005/api"
	"github.com/banton/medical-patients-sub005/pkg/errors"
)

// FlushEvery is the default number of appended records between buffer
// flushes (spec.md §4.6 "Contract").
const FlushEvery = 100

// Options controls how one writer stream is opened.
type Options struct {
	Compression   bool
	EncryptionKey []byte // must be 32 bytes (AES-256) when non-nil
}

// Writer is the append-only contract every format-specific writer
// implements.
type Writer interface {
	Append(p api.Patient) error
	Close() error
}

// baseStream owns the temp-file lifecycle and the compression/encryption
// layer chain shared by every format-specific writer.
type baseStream struct {
	file      *os.File
	tmpPath   string
	finalPath string
	chain     ioWriteCloserFlusher
	count     int
}

// ioWriteCloserFlusher is the minimal write/flush/close contract every
// compression or encryption layer in the chain must satisfy.
type ioWriteCloserFlusher interface {
	Write(p []byte) (int, error)
	Flush() error
	Close() error
}

func newBaseStream(finalPath string, opts Options) (*baseStream, error) {
	tmpPath := finalPath + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, errors.Wrap(errors.CodeIO, "create temp output file", err)
	}

	chain, err := buildChain(file, opts)
	if err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, err
	}

	return &baseStream{file: file, tmpPath: tmpPath, finalPath: finalPath, chain: chain}, nil
}

func (b *baseStream) write(p []byte) error {
	if _, err := b.chain.Write(p); err != nil {
		return errors.Wrap(errors.CodeIO, "write output bytes", err)
	}
	return nil
}

// maybeFlush flushes the chain every FlushEvery records.
func (b *baseStream) maybeFlush() error {
	b.count++
	if b.count%FlushEvery != 0 {
		return nil
	}
	return b.flush()
}

func (b *baseStream) flush() error {
	if err := b.chain.Flush(); err != nil {
		return errors.Wrap(errors.CodeIO, "flush output chain", err)
	}
	return nil
}

// finish flushes any remainder, closes the chain and file, and renames
// the temp file into place. On failure, the temp file is removed instead
// (spec.md §4.6 "Atomicity").
func (b *baseStream) finish() error {
	if err := b.chain.Flush(); err != nil {
		b.abort()
		return errors.Wrap(errors.CodeIO, "final flush", err)
	}
	if err := b.chain.Close(); err != nil {
		b.abort()
		return errors.Wrap(errors.CodeIO, "close output chain", err)
	}
	if err := b.file.Close(); err != nil {
		os.Remove(b.tmpPath)
		return errors.Wrap(errors.CodeIO, "close output file", err)
	}
	if err := os.Rename(b.tmpPath, b.finalPath); err != nil {
		os.Remove(b.tmpPath)
		return errors.Wrap(errors.CodeIO, "rename temp output file", err)
	}
	return nil
}

func (b *baseStream) abort() {
	b.chain.Close()
	b.file.Close()
	os.Remove(b.tmpPath)
}

// buildChain composes the optional encryption and compression layers
// around the destination file, innermost-last: callers write plaintext
// records, which flow compression -> encryption -> file.
func buildChain(file *os.File, opts Options) (ioWriteCloserFlusher, error) {
	var bottom ioWriteCloserFlusher = passthroughWriter{file}

	if opts.EncryptionKey != nil {
		enc, err := newEncryptionWriter(bottom, opts.EncryptionKey)
		if err != nil {
			return nil, err
		}
		bottom = enc
	}

	if opts.Compression {
		bottom = newGzipWriter(bottom)
	}

	return bottom, nil
}

// passthroughWriter adapts *os.File to ioWriteCloserFlusher with a no-op Flush.
type passthroughWriter struct {
	f *os.File
}

func (p passthroughWriter) Write(b []byte) (int, error) { return p.f.Write(b) }
func (p passthroughWriter) Flush() error                { return nil }
func (p passthroughWriter) Close() error                { return nil }

// gzipChainWriter wraps gzip.Writer to satisfy ioWriteCloserFlusher.
type gzipChainWriter struct {
	gz   *gzip.Writer
	next ioWriteCloserFlusher
}

func newGzipWriter(next ioWriteCloserFlusher) *gzipChainWriter {
	return &gzipChainWriter{gz: gzip.NewWriter(next), next: next}
}

func (g *gzipChainWriter) Write(p []byte) (int, error) { return g.gz.Write(p) }

func (g *gzipChainWriter) Flush() error {
	if err := g.gz.Flush(); err != nil {
		return err
	}
	return g.next.Flush()
}

func (g *gzipChainWriter) Close() error {
	if err := g.gz.Close(); err != nil {
		return err
	}
	return g.next.Close()
}

// encryptionWriter buffers plaintext and seals it as length-prefixed
// AES-256-GCM frames at each Flush, using a per-job random nonce prefix
// with a monotonically incrementing frame counter so no nonce repeats
// within a job (spec.md §4.6 "per-job nonce").
type encryptionWriter struct {
	aead    cipher.AEAD
	next    ioWriteCloserFlusher
	buf     bytes.Buffer
	prefix  [4]byte
	counter uint64
}

func newEncryptionWriter(next ioWriteCloserFlusher, key []byte) (*encryptionWriter, error) {
	if len(key) != 32 {
		return nil, errors.New(errors.CodeEncryption, "encryption key must be 32 bytes for AES-256-GCM")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(errors.CodeEncryption, "construct AES cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(errors.CodeEncryption, "construct GCM AEAD", err)
	}

	w := &encryptionWriter{aead: aead, next: next}
	if _, err := rand.Read(w.prefix[:]); err != nil {
		return nil, errors.Wrap(errors.CodeEncryption, "generate nonce prefix", err)
	}
	return w, nil
}

func (w *encryptionWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *encryptionWriter) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}

	nonce := make([]byte, w.aead.NonceSize())
	copy(nonce, w.prefix[:])
	binary.BigEndian.PutUint64(nonce[4:], w.counter)
	w.counter++

	ciphertext := w.aead.Seal(nil, nonce, w.buf.Bytes(), nil)
	w.buf.Reset()

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(ciphertext)))
	if _, err := w.next.Write(lenPrefix[:]); err != nil {
		return err
	}
	if _, err := w.next.Write(ciphertext); err != nil {
		return err
	}
	return w.next.Flush()
}

func (w *encryptionWriter) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.next.Close()
}

// recordWriter emits one JSON record per patient inside a top-level array.
type recordWriter struct {
	stream *baseStream
	any    bool
}

// OpenRecordWriter opens a JSON array-framed writer at finalPath.
func OpenRecordWriter(finalPath string, opts Options) (Writer, error) {
	stream, err := newBaseStream(finalPath, opts)
	if err != nil {
		return nil, err
	}
	if err := stream.write([]byte("[")); err != nil {
		stream.abort()
		return nil, err
	}
	return &recordWriter{stream: stream}, nil
}

func (w *recordWriter) Append(p api.Patient) error {
	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(errors.CodeSerialization, "marshal patient record", err)
	}

	prefix := ""
	if w.any {
		prefix = ","
	}
	w.any = true

	if err := w.stream.write([]byte(prefix)); err != nil {
		return err
	}
	if err := w.stream.write(data); err != nil {
		return err
	}
	return w.stream.maybeFlush()
}

func (w *recordWriter) Close() error {
	if err := w.stream.write([]byte("]\n")); err != nil {
		w.stream.abort()
		return err
	}
	return w.stream.finish()
}

// tabularWriter emits one CSV row per patient, flattening the nested
// movement timeline into a single pipe/semicolon-delimited column.
type tabularWriter struct {
	stream    *baseStream
	csvBuf    bytes.Buffer
	csvWriter *csv.Writer
}

var csvHeader = []string{
	"id", "given_name", "family_name", "gender", "rank", "national_id",
	"nationality_code", "front_id", "injury_type", "triage_category",
	"triage_nature", "body_region", "cbrn_contaminated", "injury_timestamp",
	"final_status", "last_facility", "movement_timeline",
}

// OpenTabularWriter opens a header+rows CSV writer at finalPath.
func OpenTabularWriter(finalPath string, opts Options) (Writer, error) {
	stream, err := newBaseStream(finalPath, opts)
	if err != nil {
		return nil, err
	}
	w := &tabularWriter{stream: stream}
	w.csvWriter = csv.NewWriter(&w.csvBuf)
	if err := w.csvWriter.Write(csvHeader); err != nil {
		stream.abort()
		return nil, errors.Wrap(errors.CodeSerialization, "write CSV header", err)
	}
	w.csvWriter.Flush()
	if err := stream.write(w.csvBuf.Bytes()); err != nil {
		return nil, err
	}
	w.csvBuf.Reset()
	return w, nil
}

func (w *tabularWriter) Append(p api.Patient) error {
	row := []string{
		strconv.Itoa(p.ID),
		p.Demographics.GivenName,
		p.Demographics.FamilyName,
		p.Demographics.Gender,
		p.Demographics.Rank,
		p.Demographics.NationalID,
		p.NationalityCode,
		p.FrontID,
		p.InjuryType,
		p.TriageCategory,
		p.TriageNature,
		p.BodyRegion,
		strconv.FormatBool(p.CBRNContaminated),
		p.InjuryTimestamp.UTC().Format("2006-01-02T15:04:05Z"),
		p.FinalStatus,
		p.LastFacility,
		flattenTimeline(p.MovementTimeline),
	}

	if err := w.csvWriter.Write(row); err != nil {
		return errors.Wrap(errors.CodeSerialization, "write CSV row", err)
	}
	w.csvWriter.Flush()
	if err := w.csvWriter.Error(); err != nil {
		return errors.Wrap(errors.CodeSerialization, "flush CSV row", err)
	}

	if err := w.stream.write(w.csvBuf.Bytes()); err != nil {
		return err
	}
	w.csvBuf.Reset()

	return w.stream.maybeFlush()
}

func (w *tabularWriter) Close() error {
	return w.stream.finish()
}

// flattenTimeline renders a patient's movement timeline as one scalar
// CSV cell: events separated by ";", each event's fields separated by
// "|" (spec.md §9 "CSV tabular with flattened nested fields").
func flattenTimeline(events []api.TimelineEvent) string {
	parts := make([]string, 0, len(events))
	for _, e := range events {
		fields := []string{
			e.EventType,
			e.FacilityName,
			fmt.Sprintf("%.1f", e.HoursSinceInjury),
		}
		if e.FromFacility != "" || e.ToFacility != "" {
			fields = append(fields, e.FromFacility, e.ToFacility)
		}
		parts = append(parts, strings.Join(fields, "|"))
	}
	return strings.Join(parts, ";")
}
