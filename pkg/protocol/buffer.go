package protocol

import (
	"encoding/binary"
	"errors"
	"math"

	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MaxMessageSize = 32 * 1024 // 单条消息最大字节数
)

var (
	ErrOverflow     = errors.New("protocol: 消息缓冲区溢出")
	ErrReadPastEnd  = errors.New("protocol: 读取越过消息结尾")
	ErrBadDirection = errors.New("protocol: 方向索引越界")
)

// Writer 固定容量的只追加写缓冲
// 溢出是致命错误：记录 ErrOverflow 后停止写入，发送前必须检查 Err()
type Writer struct {
	buf []byte
	err error
}

// NewWriter 创建指定容量的写缓冲
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes 返回已写入的数据
func (w *Writer) Bytes() []byte { return w.buf }

// Len 返回已写入的字节数
func (w *Writer) Len() int { return len(w.buf) }

// Err 返回写入过程中的第一个错误
func (w *Writer) Err() error { return w.err }

// Reset 清空缓冲，保留容量
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.err = nil
}

func (w *Writer) alloc(n int) []byte {
	if w.err != nil {
		return nil
	}
	if len(w.buf)+n > cap(w.buf) {
		w.err = ErrOverflow
		return nil
	}
	w.buf = w.buf[:len(w.buf)+n]
	return w.buf[len(w.buf)-n:]
}

func (w *Writer) WriteData(data []byte) {
	if b := w.alloc(len(data)); b != nil {
		copy(b, data)
	}
}

func (w *Writer) WriteInt8(v int8) { w.WriteUint8(uint8(v)) }

func (w *Writer) WriteUint8(v uint8) {
	if b := w.alloc(1); b != nil {
		b[0] = v
	}
}

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *Writer) WriteUint16(v uint16) {
	if b := w.alloc(2); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (w *Writer) WriteInt32(v int32) {
	if b := w.alloc(4); b != nil {
		binary.LittleEndian.PutUint32(b, uint32(v))
	}
}

func (w *Writer) WriteInt64(v int64) {
	if b := w.alloc(8); b != nil {
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

// WriteString 写入以 NUL 结尾的字符串，超长部分截断
func (w *Writer) WriteString(s string) {
	if len(s) > core.MaxStringChars-1 {
		s = s[:core.MaxStringChars-1]
	}
	if b := w.alloc(len(s) + 1); b != nil {
		copy(b, s)
		b[len(s)] = 0
	}
}

// WriteVector 按位写入 32 位浮点数
func (w *Writer) WriteVector(v float32) {
	w.WriteInt32(int32(math.Float32bits(v)))
}

func (w *Writer) WritePosition(v mgl32.Vec3) {
	w.WriteVector(v[0])
	w.WriteVector(v[1])
	w.WriteVector(v[2])
}

// WriteAngle 写入打包后的 16 位角度
func (w *Writer) WriteAngle(deg float32) {
	w.WriteInt16(core.PackAngle(deg))
}

func (w *Writer) WriteAngles(angles mgl32.Vec3) {
	w.WriteAngle(angles[0])
	w.WriteAngle(angles[1])
	w.WriteAngle(angles[2])
}

// WriteDir 写入与 dir 最接近的近似法线索引
func (w *Writer) WriteDir(dir mgl32.Vec3) {
	w.WriteUint8(uint8(NearestNormal(dir)))
}

func (w *Writer) writeShorts(v [3]int16) {
	w.WriteInt16(v[0])
	w.WriteInt16(v[1])
	w.WriteInt16(v[2])
}

// Reader 对完整消息的顺序读取
// 越界读取返回零值并记录 ErrReadPastEnd，调用方通过 Err() 判断，不与合法数据混淆
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader 创建读取器
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err 返回读取过程中的第一个错误
func (r *Reader) Err() error { return r.err }

// Remaining 返回未读字节数
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Offset 返回当前读取位置
func (r *Reader) Offset() int { return r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = ErrReadPastEnd
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// ReadData 读取 n 个字节（返回副本）
func (r *Reader) ReadData(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *Reader) ReadInt8() int8 { return int8(r.ReadUint8()) }

func (r *Reader) ReadUint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) ReadInt16() int16 { return int16(r.ReadUint16()) }

func (r *Reader) ReadUint16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) ReadInt32() int32 {
	if b := r.take(4); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *Reader) ReadInt64() int64 {
	if b := r.take(8); b != nil {
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// ReadString 读取以 NUL 结尾的字符串，超过 MaxStringChars-1 的部分被丢弃
func (r *Reader) ReadString() string {
	return r.readString(false)
}

// ReadStringLine 读取字符串，遇到换行也结束
func (r *Reader) ReadStringLine() string {
	return r.readString(true)
}

func (r *Reader) readString(line bool) string {
	start := r.off
	for {
		c := r.take(1)
		if c == nil {
			return ""
		}
		if c[0] == 0 || (line && c[0] == '\n') {
			break
		}
	}
	s := r.data[start : r.off-1]
	if len(s) > core.MaxStringChars-1 {
		s = s[:core.MaxStringChars-1]
	}
	return string(s)
}

func (r *Reader) ReadVector() float32 {
	return math.Float32frombits(uint32(r.ReadInt32()))
}

func (r *Reader) ReadPosition() mgl32.Vec3 {
	return mgl32.Vec3{r.ReadVector(), r.ReadVector(), r.ReadVector()}
}

func (r *Reader) ReadAngle() float32 {
	return core.UnpackAngle(r.ReadInt16())
}

func (r *Reader) ReadAngles() mgl32.Vec3 {
	return mgl32.Vec3{r.ReadAngle(), r.ReadAngle(), r.ReadAngle()}
}

// ReadDir 读取近似法线，索引越界记录 ErrBadDirection
func (r *Reader) ReadDir() mgl32.Vec3 {
	b := int(r.ReadUint8())
	if r.err != nil {
		return mgl32.Vec3{}
	}
	if b >= NumApproximateNormals {
		r.err = ErrBadDirection
		return mgl32.Vec3{}
	}
	return approximateNormals[b]
}

func (r *Reader) readShorts() [3]int16 {
	return [3]int16{r.ReadInt16(), r.ReadInt16(), r.ReadInt16()}
}
