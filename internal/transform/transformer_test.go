package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juliosaraiva/firehose-log2json/internal/parser"
)

const sampleLine = `7.248.7.119 - - [14/Dec/2017:22:16:45 +09:00] "GET /explore" 200 9947 "-" "Mozilla/5.0 (Windows NT 6.2; WOW64; rv:8.5) Gecko/20100101 Firefox/8.5.1" `

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m), "output: %s", data)
	return m
}

func TestTransform_SampleLine(t *testing.T) {
	out, err := New().Transform([]byte(sampleLine))
	require.NoError(t, err)

	got := decode(t, out)
	assert.Equal(t, map[string]any{
		"host":           "7.248.7.119",
		"ident":          "-",
		"authuser":       "-",
		"@timestamp":     "2017-12-14T22:16:45+09:00",
		"@timestamp_utc": "2017-12-14T13:16:45+00:00",
		"request":        "GET /explore",
		"response":       float64(200),
		"bytes":          float64(9947),
	}, got)
}

func TestTransform_ExactBytes(t *testing.T) {
	line := `1.2.3.4 a b [01/Feb/2024:00:00:00 +0000] "GET /q?a=1&b=<2>" 404 0`
	out, err := New().Transform([]byte(line))
	require.NoError(t, err)

	want := `{"host":"1.2.3.4","ident":"a","authuser":"b","@timestamp":"2024-02-01T00:00:00+00:00",` +
		`"@timestamp_utc":"2024-02-01T00:00:00+00:00","request":"GET /q?a=1&b=<2>","response":404,"bytes":0}`
	assert.Equal(t, want, string(out))
}

func TestTransform_LooseTimestampFields(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantTS  string
		wantUTC string
	}{
		{
			name:    "single digit day",
			line:    `7.248.7.119 - - [4/Dec/2017:22:16:45 +0900] "GET /explore" 200 9947`,
			wantTS:  "2017-12-04T22:16:45+09:00",
			wantUTC: "2017-12-04T13:16:45+00:00",
		},
		{
			name:    "single digit minute",
			line:    `7.248.7.119 - - [14/Dec/2017:22:6:45 +0900] "GET /explore" 200 9947`,
			wantTS:  "2017-12-14T22:06:45+09:00",
			wantUTC: "2017-12-14T13:06:45+00:00",
		},
		{
			name:    "tab before offset",
			line:    "7.248.7.119 - - [14/Dec/2017:22:16:45\t+0900] \"GET /explore\" 200 9947",
			wantTS:  "2017-12-14T22:16:45+09:00",
			wantUTC: "2017-12-14T13:16:45+00:00",
		},
	}

	tr := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tr.Transform([]byte(tt.line))
			require.NoError(t, err)

			got := decode(t, out)
			assert.Equal(t, tt.wantTS, got["@timestamp"])
			assert.Equal(t, tt.wantUTC, got["@timestamp_utc"])
		})
	}
}

func TestTransform_RoundTrip(t *testing.T) {
	lines := []string{
		`10.0.0.1 - frank [31/Dec/2023:21:30:00 -05:00] "GET / HTTP/1.1" 503 4294967295`,
		`10.0.0.2 - - [01/Jan/2024:08:00:00 +0530] "POST /login HTTP/2.0" 302 17`,
		sampleLine,
	}

	tr := New()
	for _, line := range lines {
		out, err := tr.Transform([]byte(line))
		require.NoError(t, err, line)

		var rec AccessLogRecord
		require.NoError(t, json.Unmarshal(out, &rec))

		fields, err := parser.NewLineParser().Parse(line)
		require.NoError(t, err)
		assert.Equal(t, fields.Status, uintString(rec.Response))
		assert.Equal(t, fields.Bytes, uintString(rec.Bytes))

		local, err := time.Parse(time.RFC3339, rec.Timestamp)
		require.NoError(t, err)
		utc, err := time.Parse(time.RFC3339, rec.TimestampUTC)
		require.NoError(t, err)
		assert.True(t, local.Equal(utc))
		assert.Equal(t, local.UTC().Format(parser.ISO8601), rec.TimestampUTC)
		assert.True(t, strings.HasSuffix(rec.TimestampUTC, "+00:00"))
	}
}

func uintString(n uint32) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestTransform_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		wantKind Kind
		wantErr  error
	}{
		{
			name:     "invalid utf-8",
			data:     []byte{0xff, 0xfe, 'a'},
			wantKind: KindEncoding,
			wantErr:  ErrEncoding,
		},
		{
			name:     "not a log line",
			data:     []byte("not a log line"),
			wantKind: KindPatternMismatch,
			wantErr:  ErrPatternMismatch,
		},
		{
			name:     "empty input",
			data:     []byte{},
			wantKind: KindPatternMismatch,
			wantErr:  ErrPatternMismatch,
		},
		{
			name:     "two digit status",
			data:     []byte(`10.0.0.1 - - [01/Feb/2024:00:00:00 +0000] "GET /" 20 12`),
			wantKind: KindPatternMismatch,
			wantErr:  ErrPatternMismatch,
		},
		{
			name:     "missing timestamp",
			data:     []byte(`10.0.0.1 - - [] "GET /" 200 12`),
			wantKind: KindTimestamp,
			wantErr:  parser.ErrTimestampMissing,
		},
		{
			name:     "unknown month",
			data:     []byte(`10.0.0.1 - - [01/Foo/2024:00:00:00 +0000] "GET /" 200 12`),
			wantKind: KindTimestamp,
			wantErr:  ErrTimestamp,
		},
		{
			name:     "byte count overflow",
			data:     []byte(`10.0.0.1 - - [01/Feb/2024:00:00:00 +0000] "GET /" 200 4294967296`),
			wantKind: KindNumeric,
			wantErr:  ErrNumeric,
		},
	}

	tr := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tr.Transform(tt.data)
			require.Error(t, err)
			assert.Nil(t, out)

			var te *Error
			require.True(t, errors.As(err, &te), "error %T is not *Error", err)
			assert.Equal(t, tt.wantKind, te.Kind)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestTransformOrPassThrough(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tr := New(WithLogger(logger))

	t.Run("success", func(t *testing.T) {
		out, ok := tr.TransformOrPassThrough("id-1", []byte(sampleLine))
		assert.True(t, ok)
		assert.Contains(t, string(out), `"host":"7.248.7.119"`)
	})

	t.Run("fallback returns input verbatim", func(t *testing.T) {
		in := []byte("not a log line")
		out, ok := tr.TransformOrPassThrough("id-2", in)
		assert.False(t, ok)
		assert.Equal(t, in, out)
		assert.Contains(t, logs.String(), "id=id-2")
		assert.Contains(t, logs.String(), "kind=PatternMismatch")
	})
}

func TestTransformOrPassThrough_ArbitraryBytes(t *testing.T) {
	tr := New(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

	inputs := [][]byte{
		nil,
		{},
		{0x00},
		{0xc3, 0x28},
		bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 64),
		[]byte("1.1.1.1 - - [" + strings.Repeat("9", 1000) + "] \"\" 000 0"),
	}
	for _, in := range inputs {
		out, ok := tr.TransformOrPassThrough("x", in)
		assert.False(t, ok)
		assert.Equal(t, in, out)
	}
}

func TestWithLineParser(t *testing.T) {
	p, err := parser.NewLineParserWithPattern(`^(\S+) (\S+) (\S+) \[([^\]]+)?\] "(.+?)" (\d{3}) (\d+)`)
	require.NoError(t, err)

	out, err := New(WithLineParser(p)).Transform([]byte(`web-1 - - [01/Feb/2024:00:00:00 +0000] "GET /" 200 12`))
	require.NoError(t, err)
	assert.Equal(t, "web-1", decode(t, out)["host"])
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "EncodingError", KindEncoding.String())
	assert.Equal(t, "SerializationError", KindSerialization.String())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}

func TestErrorIsOnlyMatchesOwnKind(t *testing.T) {
	err := error(numericError("200", "x", nil))
	assert.ErrorIs(t, err, ErrNumeric)
	assert.False(t, errors.Is(err, ErrTimestamp))
	assert.Equal(t, `NumericError: "200 x"`, err.Error())
}

func FuzzTransformOrPassThrough(f *testing.F) {
	f.Add([]byte(sampleLine))
	f.Add([]byte("not a log line"))
	f.Add([]byte{})
	f.Add([]byte{0xff, 0xfe, 0x00})
	f.Add([]byte(`10.0.0.1 - - [] "GET /" 200 12`))
	f.Add([]byte(`10.0.0.1 - - [4/Dec/2017:22:6:45` + "\t" + `+0900] "GET /" 200 4294967296`))

	tr := New(WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	f.Fuzz(func(t *testing.T, data []byte) {
		in := append([]byte(nil), data...)
		out, ok := tr.TransformOrPassThrough("fuzz", data)

		if !ok {
			if !bytes.Equal(out, in) {
				t.Fatalf("pass-through changed payload: got %q, want %q", out, in)
			}
			return
		}

		var rec AccessLogRecord
		if err := json.Unmarshal(out, &rec); err != nil {
			t.Fatalf("transformed output is not valid JSON: %v\noutput: %s", err, out)
		}
		if !strings.HasSuffix(rec.TimestampUTC, "+00:00") {
			t.Fatalf("@timestamp_utc %q is not in UTC", rec.TimestampUTC)
		}
	})
}
