package logging

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// kvEncoder renders each log entry as a single line of sorted
// space-separated key=value pairs (ts, level, msg, logger and caller
// when present, then fields in alphabetical order). Field capture is delegated to
// zapcore.MapObjectEncoder rather than reimplementing zap's type
// switch over field kinds.
type kvEncoder struct {
	cfg zapcore.EncoderConfig
	acc *zapcore.MapObjectEncoder
}

func newKVEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &kvEncoder{cfg: cfg, acc: zapcore.NewMapObjectEncoder()}
}

func (e *kvEncoder) AddArray(key string, v zapcore.ArrayMarshaler) error {
	return e.acc.AddArray(key, v)
}
func (e *kvEncoder) AddObject(key string, v zapcore.ObjectMarshaler) error {
	return e.acc.AddObject(key, v)
}
func (e *kvEncoder) AddBinary(key string, v []byte)         { e.acc.AddBinary(key, v) }
func (e *kvEncoder) AddByteString(key string, v []byte)     { e.acc.AddByteString(key, v) }
func (e *kvEncoder) AddBool(key string, v bool)             { e.acc.AddBool(key, v) }
func (e *kvEncoder) AddComplex128(key string, v complex128) { e.acc.AddComplex128(key, v) }
func (e *kvEncoder) AddComplex64(key string, v complex64)   { e.acc.AddComplex64(key, v) }
func (e *kvEncoder) AddDuration(key string, v time.Duration) { e.acc.AddDuration(key, v) }
func (e *kvEncoder) AddFloat64(key string, v float64)       { e.acc.AddFloat64(key, v) }
func (e *kvEncoder) AddFloat32(key string, v float32)       { e.acc.AddFloat32(key, v) }
func (e *kvEncoder) AddInt(key string, v int)               { e.acc.AddInt(key, v) }
func (e *kvEncoder) AddInt64(key string, v int64)           { e.acc.AddInt64(key, v) }
func (e *kvEncoder) AddInt32(key string, v int32)           { e.acc.AddInt32(key, v) }
func (e *kvEncoder) AddInt16(key string, v int16)           { e.acc.AddInt16(key, v) }
func (e *kvEncoder) AddInt8(key string, v int8)             { e.acc.AddInt8(key, v) }
func (e *kvEncoder) AddString(key, v string)                { e.acc.AddString(key, v) }
func (e *kvEncoder) AddTime(key string, v time.Time)        { e.acc.AddTime(key, v) }
func (e *kvEncoder) AddUint(key string, v uint)             { e.acc.AddUint(key, v) }
func (e *kvEncoder) AddUint64(key string, v uint64)         { e.acc.AddUint64(key, v) }
func (e *kvEncoder) AddUint32(key string, v uint32)         { e.acc.AddUint32(key, v) }
func (e *kvEncoder) AddUint16(key string, v uint16)         { e.acc.AddUint16(key, v) }
func (e *kvEncoder) AddUint8(key string, v uint8)           { e.acc.AddUint8(key, v) }
func (e *kvEncoder) AddUintptr(key string, v uintptr)       { e.acc.AddUintptr(key, v) }
func (e *kvEncoder) AddReflected(key string, v interface{}) error {
	return e.acc.AddReflected(key, v)
}
func (e *kvEncoder) OpenNamespace(key string) { e.acc.OpenNamespace(key) }

func (e *kvEncoder) Clone() zapcore.Encoder {
	clone := &kvEncoder{cfg: e.cfg, acc: zapcore.NewMapObjectEncoder()}
	for k, v := range e.acc.Fields {
		clone.acc.Fields[k] = v
	}
	return clone
}

func (e *kvEncoder) EncodeEntry(ent zapcore.Entry, fieldList []zapcore.Field) (*buffer.Buffer, error) {
	enc := zapcore.NewMapObjectEncoder()
	for k, v := range e.acc.Fields {
		enc.Fields[k] = v
	}
	for _, f := range fieldList {
		f.AddTo(enc)
	}

	buf := buffer.NewPool().Get()
	fmt.Fprintf(buf, "ts=%s level=%s msg=%q",
		ent.Time.Format("2006-01-02T15:04:05.000Z0700"), ent.Level.String(), ent.Message)
	if ent.LoggerName != "" {
		fmt.Fprintf(buf, " logger=%s", ent.LoggerName)
	}
	if ent.Caller.Defined && e.cfg.CallerKey != "" {
		fmt.Fprintf(buf, " caller=%s", ent.Caller.TrimmedPath())
	}

	keys := make([]string, 0, len(enc.Fields))
	for k := range enc.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, " %s=%s", k, formatValue(enc.Fields[k]))
	}
	buf.AppendByte('\n')
	return buf, nil
}

func formatValue(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if strings.ContainsAny(s, " \t\"") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
