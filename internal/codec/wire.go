package codec

import (
	"fmt"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/encoding/protowire"
)

// encoder appends protobuf wire-format fields. Scalars are always written;
// optional values are written only when present, so presence survives the
// round trip.
type encoder struct {
	b []byte
}

func (e *encoder) varint(num protowire.Number, v uint64) {
	e.b = protowire.AppendTag(e.b, num, protowire.VarintType)
	e.b = protowire.AppendVarint(e.b, v)
}

func (e *encoder) sint(num protowire.Number, v int64) {
	e.varint(num, protowire.EncodeZigZag(v))
}

func (e *encoder) bool(num protowire.Number, v bool) {
	e.varint(num, protowire.EncodeBool(v))
}

func (e *encoder) bytes(num protowire.Number, v []byte) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendBytes(e.b, v)
}

func (e *encoder) string(num protowire.Number, v string) {
	e.b = protowire.AppendTag(e.b, num, protowire.BytesType)
	e.b = protowire.AppendString(e.b, v)
}

func (e *encoder) decimal(num protowire.Number, d decimal.Decimal) {
	e.string(num, d.String())
}

func (e *encoder) nullDecimal(num protowire.Number, d decimal.NullDecimal) {
	if d.Valid {
		e.decimal(num, d.Decimal)
	}
}

func (e *encoder) hash(num protowire.Number, h common.Hash) {
	e.bytes(num, h.Bytes())
}

func (e *encoder) tokenID(num protowire.Number, id domain.TokenID) {
	e.bytes(num, domain.TokenKey(id))
}

func (e *encoder) message(num protowire.Number, fn func(*encoder)) {
	var sub encoder
	fn(&sub)
	e.bytes(num, sub.b)
}

// time keeps the UTC offset so a decoded value renders like the original.
func (e *encoder) time(num protowire.Number, t time.Time) {
	e.message(num, func(s *encoder) {
		_, offset := t.Zone()
		s.sint(1, t.Unix())
		s.varint(2, uint64(t.Nanosecond()))
		s.sint(3, int64(offset))
	})
}

func (e *encoder) optTime(num protowire.Number, t *time.Time) {
	if t != nil {
		e.time(num, *t)
	}
}

// field is one decoded wire field. Only varint and length-delimited fields
// are produced; other wire types are skipped.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	raw    []byte
}

func readFields(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("codec: read tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return fmt.Errorf("codec: read field %d: %w", num, protowire.ParseError(n))
			}
			f.varint = v
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return fmt.Errorf("codec: read field %d: %w", num, protowire.ParseError(n))
			}
			f.raw = v
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return fmt.Errorf("codec: skip field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) bool() bool {
	return protowire.DecodeBool(f.varint)
}

func (f field) sint() int64 {
	return protowire.DecodeZigZag(f.varint)
}

func (f field) string() string {
	return string(f.raw)
}

func (f field) decimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(string(f.raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("codec: field %d: %w: %v", f.num, domain.ErrInvalidDecimal, err)
	}
	return d, nil
}

func (f field) nullDecimal() (decimal.NullDecimal, error) {
	d, err := f.decimal()
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func (f field) hash() (common.Hash, error) {
	if len(f.raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("codec: field %d: %w: %d bytes", f.num, domain.ErrInvalidIdentifier, len(f.raw))
	}
	return common.BytesToHash(f.raw), nil
}

func (f field) address() (common.Address, error) {
	if len(f.raw) != common.AddressLength {
		return common.Address{}, fmt.Errorf("codec: field %d: %w: %d bytes", f.num, domain.ErrInvalidIdentifier, len(f.raw))
	}
	return common.BytesToAddress(f.raw), nil
}

func (f field) tokenID() (domain.TokenID, error) {
	return domain.TokenIDFromKey(f.raw)
}

func (f field) time() (time.Time, error) {
	var sec, nsec, offset int64
	err := readFields(f.raw, func(s field) error {
		switch s.num {
		case 1:
			sec = s.sint()
		case 2:
			nsec = int64(s.varint)
		case 3:
			offset = s.sint()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("codec: field %d: %w", f.num, err)
	}
	t := time.Unix(sec, nsec)
	if offset == 0 {
		return t.UTC(), nil
	}
	return t.In(time.FixedZone("", int(offset))), nil
}

func (f field) timePtr() (*time.Time, error) {
	t, err := f.time()
	if err != nil {
		return nil, err
	}
	return &t, nil
}
