package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
)

func readTestdata(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return data
}

func transcode(t *testing.T, tr Transcoder, in []byte) ([]byte, int) {
	t.Helper()
	var out bytes.Buffer
	n, err := tr.Run(bytes.NewReader(in), &out)
	require.NoError(t, err)
	return out.Bytes(), n
}

func TestTranscodeMarketResponseRoundTrip(t *testing.T) {
	fixture := readTestdata(t, "market.json")
	// Two concatenated documents form a stream of two items.
	in := append(append(append([]byte{}, fixture...), '\n'), fixture...)

	bin, n := transcode(t, Transcoder{In: FormatJSON, Out: FormatBinary, Type: TypeMarketResponse, Prefix: PrefixLenU64LE}, in)
	require.Equal(t, 2, n)

	raw := loadFixture[polymarket.MarketResponse](t, "market.json")
	adm, err := AdmitMarketResponse(&raw)
	require.NoError(t, err)
	size := binary.LittleEndian.Uint64(bin[:8])
	assert.Equal(t, uint64(len(adm.Binary)), size)
	assert.Equal(t, adm.Binary, bin[8:8+size], "binary output is the stored encoding")

	js, n := transcode(t, Transcoder{In: FormatBinary, Out: FormatJSON, Type: TypeMarketResponse, Suffix: []byte("\n")}, bin)
	require.Equal(t, 2, n)
	lines := bytes.Split(bytes.TrimSuffix(js, []byte("\n")), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"market_slug":"will-donald-trump-win-the-2024-us-presidential-election"`)

	again, _ := transcode(t, Transcoder{In: FormatJSON, Out: FormatBinary, Type: TypeMarketResponse, Prefix: PrefixLenU64LE}, js)
	assert.Equal(t, bin, again)
}

func TestTranscodeOrderBookPrefixes(t *testing.T) {
	fixture := readTestdata(t, "orderbook.json")

	be, _ := transcode(t, Transcoder{In: FormatJSON, Out: FormatBinary, Type: TypeOrderBook, Prefix: PrefixLenU64BE}, fixture)
	size := binary.BigEndian.Uint64(be[:8])
	assert.Equal(t, uint64(len(be)-8), size)

	bare, _ := transcode(t, Transcoder{In: FormatJSON, Out: FormatBinary, Type: TypeOrderBook}, fixture)
	assert.Equal(t, be[8:], bare)
}

func TestTranscodeBinaryInput(t *testing.T) {
	raw := loadFixture[polymarket.OrderBookSummary](t, "orderbook.json")
	adm, err := AdmitOrderBook(&raw)
	require.NoError(t, err)

	frame := func(item []byte) []byte {
		out := binary.LittleEndian.AppendUint64(nil, uint64(len(item)))
		return append(out, item...)
	}
	tr := Transcoder{In: FormatBinary, Out: FormatJSON, Type: TypeOrderBook, Suffix: []byte("\n")}

	t.Run("empty items are skipped", func(t *testing.T) {
		in := append(frame(nil), frame(adm.Binary)...)
		out, n := transcode(t, tr, in)
		assert.Equal(t, 1, n)
		assert.Contains(t, string(out), `"asset_id":"`+raw.AssetID+`"`)
	})

	t.Run("empty stream", func(t *testing.T) {
		out, n := transcode(t, tr, nil)
		assert.Zero(t, n)
		assert.Empty(t, out)
	})

	t.Run("truncated prefix", func(t *testing.T) {
		_, err := tr.Run(bytes.NewReader([]byte{1, 0, 0}), io.Discard)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("truncated item", func(t *testing.T) {
		in := frame(adm.Binary)
		_, err := tr.Run(bytes.NewReader(in[:len(in)-1]), io.Discard)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})
}

func TestTranscodeRejectsInadmissibleRecords(t *testing.T) {
	raw := loadFixture[polymarket.OrderBookSummary](t, "orderbook.json")
	raw.Timestamp = "yesterday"
	var in bytes.Buffer
	require.NoError(t, json.NewEncoder(&in).Encode(raw))

	_, err := Transcoder{In: FormatJSON, Out: FormatBinary, Type: TypeOrderBook}.Run(&in, io.Discard)
	var ce *ConversionError
	assert.ErrorAs(t, err, &ce)
	assert.ErrorContains(t, err, "item 0")
}

func TestParseTranscodeNames(t *testing.T) {
	_, err := ParseFormat("rkyv")
	assert.Error(t, err)
	f, err := ParseFormat("binary")
	require.NoError(t, err)
	assert.Equal(t, FormatBinary, f)

	_, err = ParseRecordType("market")
	assert.Error(t, err)
	typ, err := ParseRecordType("order-book")
	require.NoError(t, err)
	assert.Equal(t, TypeOrderBook, typ)

	p, err := ParsePrefix("")
	require.NoError(t, err)
	assert.Equal(t, PrefixNone, p)
	_, err = ParsePrefix("len-u32-le")
	assert.Error(t, err)
}
