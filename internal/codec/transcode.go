package codec

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
)

// Format is the encoding of a transcoded item.
type Format string

const (
	// FormatJSON is the API JSON of the record.
	FormatJSON Format = "json"
	// FormatBinary is the store encoding. Binary input is framed by an
	// 8-byte little-endian length.
	FormatBinary Format = "binary"
)

// RecordType selects the record a transcoder reads.
type RecordType string

const (
	TypeMarketResponse RecordType = "market-response"
	TypeOrderBook      RecordType = "order-book"
)

// Prefix is the length header written before each output item.
type Prefix string

const (
	PrefixNone     Prefix = ""
	PrefixLenU64LE Prefix = "len-u64-le"
	PrefixLenU64BE Prefix = "len-u64-be"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatBinary:
		return f, nil
	}
	return "", fmt.Errorf("codec: unknown format %q (json|binary)", s)
}

// ParseRecordType validates a record type name.
func ParseRecordType(s string) (RecordType, error) {
	switch t := RecordType(s); t {
	case TypeMarketResponse, TypeOrderBook:
		return t, nil
	}
	return "", fmt.Errorf("codec: unknown record type %q (market-response|order-book)", s)
}

// ParsePrefix validates a prefix name. The empty string selects no prefix.
func ParsePrefix(s string) (Prefix, error) {
	switch p := Prefix(s); p {
	case PrefixNone, PrefixLenU64LE, PrefixLenU64BE:
		return p, nil
	}
	return "", fmt.Errorf("codec: unknown prefix %q (len-u64-le|len-u64-be)", s)
}

// Transcoder converts a stream of records between the API JSON and the
// store encoding. Binary output is produced by the admission gate, so a
// record that would not be admitted by a download fails here as well.
type Transcoder struct {
	In     Format
	Out    Format
	Type   RecordType
	Prefix Prefix
	Suffix []byte
}

// Run transcodes every item of r into w and returns the number of items
// written. Empty binary items are skipped.
func (t Transcoder) Run(r io.Reader, w io.Writer) (int, error) {
	next, err := t.reader(r)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(w)
	n := 0
	for {
		item, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, fmt.Errorf("codec: transcode: read item %d: %w", n, err)
		}
		if len(item) == 0 {
			continue
		}
		out, err := t.convert(item)
		if err != nil {
			return n, fmt.Errorf("codec: transcode: item %d: %w", n, err)
		}
		if err := t.write(bw, out); err != nil {
			return n, fmt.Errorf("codec: transcode: write item %d: %w", n, err)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("codec: transcode: flush: %w", err)
	}
	return n, nil
}

func (t Transcoder) reader(r io.Reader) (func() ([]byte, error), error) {
	switch t.In {
	case FormatJSON:
		dec := json.NewDecoder(r)
		return func() ([]byte, error) {
			var msg json.RawMessage
			err := dec.Decode(&msg)
			return msg, err
		}, nil
	case FormatBinary:
		br := bufio.NewReader(r)
		return func() ([]byte, error) { return readFramed(br) }, nil
	default:
		return nil, fmt.Errorf("codec: transcode: unknown input format %q", t.In)
	}
}

// readFramed reads one length-prefixed item. A clean end of stream before
// the header returns io.EOF.
func readFramed(r io.Reader) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated length prefix: %w", err)
		}
		return nil, err
	}
	size := binary.LittleEndian.Uint64(header[:])
	if size > uint64(maxFramedItem) {
		return nil, fmt.Errorf("item of %d bytes exceeds %d", size, maxFramedItem)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read %d item bytes: %w", size, eofIsUnexpected(err))
	}
	return buf, nil
}

const maxFramedItem = 64 << 20

func eofIsUnexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (t Transcoder) convert(item []byte) ([]byte, error) {
	switch t.Type {
	case TypeMarketResponse:
		return transcodeItem(t.In, t.Out, item,
			func(b []byte) (polymarket.MarketResponse, error) {
				m, err := UnmarshalMarketResponse(b)
				if err != nil {
					return polymarket.MarketResponse{}, err
				}
				return MarketResponseToRaw(&m), nil
			},
			func(raw *polymarket.MarketResponse) ([]byte, error) {
				adm, err := AdmitMarketResponse(raw)
				return adm.Binary, err
			})
	case TypeOrderBook:
		return transcodeItem(t.In, t.Out, item,
			func(b []byte) (polymarket.OrderBookSummary, error) {
				ob, err := UnmarshalOrderBook(b)
				if err != nil {
					return polymarket.OrderBookSummary{}, err
				}
				return OrderBookToRaw(&ob), nil
			},
			func(raw *polymarket.OrderBookSummary) ([]byte, error) {
				adm, err := AdmitOrderBook(raw)
				return adm.Binary, err
			})
	default:
		return nil, fmt.Errorf("unknown record type %q", t.Type)
	}
}

// transcodeItem brings item to its API form R and encodes that in out.
func transcodeItem[R any](
	in, out Format,
	item []byte,
	fromBinary func([]byte) (R, error),
	toBinary func(*R) ([]byte, error),
) ([]byte, error) {
	var raw R
	switch in {
	case FormatJSON:
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatBinary:
		var err error
		if raw, err = fromBinary(item); err != nil {
			return nil, fmt.Errorf("decode binary: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown input format %q", in)
	}

	switch out {
	case FormatJSON:
		return json.Marshal(&raw)
	case FormatBinary:
		return toBinary(&raw)
	default:
		return nil, fmt.Errorf("unknown output format %q", out)
	}
}

func (t Transcoder) write(w io.Writer, item []byte) error {
	var header [8]byte
	switch t.Prefix {
	case PrefixNone:
	case PrefixLenU64LE:
		binary.LittleEndian.PutUint64(header[:], uint64(len(item)))
	case PrefixLenU64BE:
		binary.BigEndian.PutUint64(header[:], uint64(len(item)))
	default:
		return fmt.Errorf("unknown prefix %q", t.Prefix)
	}
	if t.Prefix != PrefixNone {
		if _, err := w.Write(header[:]); err != nil {
			return err
		}
	}
	if _, err := w.Write(item); err != nil {
		return err
	}
	if len(t.Suffix) > 0 {
		if _, err := w.Write(t.Suffix); err != nil {
			return err
		}
	}
	return nil
}
