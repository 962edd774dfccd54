package plist

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
	"unicode/utf16"
	"unicode/utf8"
)

// Dates further than this many seconds from the epoch cannot be
// converted without overflowing time.Unix.
const maxDateSeconds = 1 << 62

// A stackFrame is one open array or dictionary during traversal.
// children holds the still-unvisited object references in reverse, so
// popping from the end yields the original order. For dictionaries the
// references alternate (key, value) after popping.
type stackFrame struct {
	objectRef uint64
	children  []uint64
}

// BinaryReader reads a binary property list as an event stream. It
// walks the object graph with an explicit stack, so nesting depth is
// bounded only by memory and a reference cycle is detected rather than
// recursed into. The trailer and offset table are parsed lazily on the
// first NextEvent call.
type BinaryReader struct {
	r             byteReader
	stack         []stackFrame
	objectOffsets []uint64
	objectOnStack []bool
	refSize       uint8
	rootObject    uint64

	// maxAlloc is the source size minus header and trailer. No single
	// length-driven allocation may exceed it, which turns hostile
	// length fields into decode errors instead of memory exhaustion.
	maxAlloc uint64

	started bool
	failed  bool
}

// NewBinaryReader returns a reader for the binary property list in r.
// The reader owns r's position for its lifetime.
func NewBinaryReader(r io.ReadSeeker) *BinaryReader {
	return &BinaryReader{r: byteReader{rs: r}}
}

// NextEvent implements EventReader. The first error ends the stream:
// it is returned once, internal state is discarded, and every later
// call returns io.EOF.
func (p *BinaryReader) NextEvent() (Event, error) {
	if p.failed || (p.started && len(p.stack) == 0) {
		return nil, io.EOF
	}
	event, err := p.next()
	if err != nil {
		p.failed = true
		p.stack = nil
		return nil, err
	}
	return event, nil
}

func (p *BinaryReader) next() (Event, error) {
	var objectRef uint64
	if !p.started {
		if err := p.readTrailer(); err != nil {
			return nil, err
		}
		p.started = true
		objectRef = p.rootObject
	} else {
		top := &p.stack[len(p.stack)-1]
		if len(top.children) == 0 {
			// The innermost collection is finished.
			p.popFrame()
			return EndCollection{}, nil
		}
		objectRef = top.children[len(top.children)-1]
		top.children = top.children[:len(top.children)-1]
	}
	return p.readObject(objectRef)
}

func (p *BinaryReader) readTrailer() error {
	if err := p.r.seek(0); err != nil {
		return err
	}
	var magic [8]byte
	if err := p.r.readFull(magic[:]); err != nil {
		return err
	}
	if magic != bplistMagic {
		return ErrBadMagic
	}

	end, err := p.r.rs.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if end < 8+32 {
		return fmt.Errorf("%w: %d byte source", ErrBadTrailer, end)
	}
	if err := p.r.seek(uint64(end - 32)); err != nil {
		return err
	}
	var trailer bplistTrailer
	if err := binary.Read(p.r.rs, binary.BigEndian, &trailer); err != nil {
		return eofErr(err)
	}
	if !validWidth(trailer.OffsetIntSize) || !validWidth(trailer.ObjectRefSize) {
		return fmt.Errorf("%w: offset width %d, reference width %d",
			ErrBadTrailer, trailer.OffsetIntSize, trailer.ObjectRefSize)
	}
	p.refSize = trailer.ObjectRefSize
	p.rootObject = trailer.TopObject

	// Source size minus the 8-byte header and the trailer's meaningful
	// 26 bytes.
	p.maxAlloc = uint64(end) - 8 - 26

	if err := p.r.seek(trailer.OffsetTableOffset); err != nil {
		return err
	}
	p.objectOffsets, err = p.readSizedInts(trailer.NumObjects, trailer.OffsetIntSize)
	if err != nil {
		return err
	}
	p.objectOnStack = make([]bool, len(p.objectOffsets))
	return nil
}

// checkAlloc reports an error when n elements of size bytes would
// exceed the allocation ceiling.
func (p *BinaryReader) checkAlloc(n uint64, size uint64) error {
	if n > p.maxAlloc/size {
		return fmt.Errorf("%w: %d × %d bytes", ErrObjectTooLarge, n, size)
	}
	return nil
}

func (p *BinaryReader) readSizedInts(n uint64, width uint8) ([]uint64, error) {
	if err := p.checkAlloc(n, uint64(width)); err != nil {
		return nil, err
	}
	ints := make([]uint64, 0, n)
	for i := uint64(0); i < n; i++ {
		var v uint64
		var err error
		switch width {
		case 1:
			var b uint8
			b, err = p.r.uint8()
			v = uint64(b)
		case 2:
			var h uint16
			h, err = p.r.uint16()
			v = uint64(h)
		case 4:
			var w uint32
			w, err = p.r.uint32()
			v = uint64(w)
		case 8:
			v, err = p.r.uint64()
		}
		if err != nil {
			return nil, err
		}
		ints = append(ints, v)
	}
	return ints, nil
}

func (p *BinaryReader) readRefs(n uint64) ([]uint64, error) {
	return p.readSizedInts(n, p.refSize)
}

// readObjectLen resolves a marker's size nibble, reading the extended
// length integer when the nibble is 0xF.
func (p *BinaryReader) readObjectLen(size uint8) (uint64, error) {
	if size != bpExtendedLengthSize {
		return uint64(size), nil
	}
	// One byte whose low two bits give the integer width as 2^n.
	pow, err := p.r.uint8()
	if err != nil {
		return 0, err
	}
	switch pow & 0x03 {
	case 0:
		b, err := p.r.uint8()
		return uint64(b), err
	case 1:
		h, err := p.r.uint16()
		return uint64(h), err
	case 2:
		w, err := p.r.uint32()
		return uint64(w), err
	default:
		return p.r.uint64()
	}
}

func (p *BinaryReader) readData(n uint64) ([]byte, error) {
	if err := p.checkAlloc(n, 1); err != nil {
		return nil, err
	}
	data := make([]byte, n)
	if err := p.r.readFull(data); err != nil {
		return nil, err
	}
	return data, nil
}

func (p *BinaryReader) seekToObject(objectRef uint64) error {
	if objectRef >= uint64(len(p.objectOffsets)) {
		return fmt.Errorf("%w: object %d of %d", ErrBadReference, objectRef, len(p.objectOffsets))
	}
	return p.r.seek(p.objectOffsets[objectRef])
}

// pushFrame adds an open collection, failing if its object is already
// being traversed: that is a reference cycle, which could otherwise
// loop forever.
func (p *BinaryReader) pushFrame(frame stackFrame) error {
	if p.objectOnStack[frame.objectRef] {
		return fmt.Errorf("%w: object %d", ErrObjectCycle, frame.objectRef)
	}
	p.objectOnStack[frame.objectRef] = true
	p.stack = append(p.stack, frame)
	return nil
}

func (p *BinaryReader) popFrame() {
	frame := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	p.objectOnStack[frame.objectRef] = false
}

func (p *BinaryReader) readObject(objectRef uint64) (Event, error) {
	if err := p.seekToObject(objectRef); err != nil {
		return nil, err
	}
	marker, err := p.r.uint8()
	if err != nil {
		return nil, err
	}
	typ := marker >> 4
	size := marker & 0x0F

	switch typ {
	case bpTypeSingleton:
		switch size {
		case bpSingletonFalse:
			return Boolean(false), nil
		case bpSingletonTrue:
			return Boolean(true), nil
		}
		return nil, fmt.Errorf("%w: singleton 0x%02x", ErrBadObject, marker)

	case bpTypeInteger:
		return p.readInteger(size)

	case bpTypeReal:
		switch size {
		case 2:
			bits, err := p.r.uint32()
			if err != nil {
				return nil, err
			}
			return Real(math.Float32frombits(bits)), nil
		case 3:
			bits, err := p.r.uint64()
			if err != nil {
				return nil, err
			}
			return Real(math.Float64frombits(bits)), nil
		}
		return nil, fmt.Errorf("%w: real of 2^%d bytes", ErrBadObject, size)

	case bpTypeDate:
		if size != 3 {
			return nil, fmt.Errorf("%w: date of 2^%d bytes", ErrBadObject, size)
		}
		bits, err := p.r.uint64()
		if err != nil {
			return nil, err
		}
		return p.makeDate(math.Float64frombits(bits))

	case bpTypeData:
		n, err := p.readObjectLen(size)
		if err != nil {
			return nil, err
		}
		data, err := p.readData(n)
		if err != nil {
			return nil, err
		}
		return Data(data), nil

	case bpTypeASCII:
		n, err := p.readObjectLen(size)
		if err != nil {
			return nil, err
		}
		raw, err := p.readData(n)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(raw) {
			return nil, fmt.Errorf("%w: invalid UTF-8", ErrBadString)
		}
		return String(raw), nil

	case bpTypeUTF16:
		n, err := p.readObjectLen(size)
		if err != nil {
			return nil, err
		}
		s, err := p.readUTF16(n)
		if err != nil {
			return nil, err
		}
		return String(s), nil

	case bpTypeArray:
		n, err := p.readObjectLen(size)
		if err != nil {
			return nil, err
		}
		children, err := p.readRefs(n)
		if err != nil {
			return nil, err
		}
		reverse(children)
		if err := p.pushFrame(stackFrame{objectRef: objectRef, children: children}); err != nil {
			return nil, err
		}
		return StartArray{Len: int64(n)}, nil

	case bpTypeDictionary:
		n, err := p.readObjectLen(size)
		if err != nil {
			return nil, err
		}
		keyRefs, err := p.readRefs(n)
		if err != nil {
			return nil, err
		}
		valueRefs, err := p.readRefs(n)
		if err != nil {
			return nil, err
		}
		if n > math.MaxUint64/2 {
			return nil, fmt.Errorf("%w: %d entries", ErrObjectTooLarge, n)
		}
		if err := p.checkAlloc(2*n, uint64(p.refSize)); err != nil {
			return nil, err
		}
		// Interleave (value, key) back to front, so that popping from
		// the end yields key then value in the written order.
		children := make([]uint64, 0, 2*n)
		for i := len(keyRefs) - 1; i >= 0; i-- {
			children = append(children, valueRefs[i], keyRefs[i])
		}
		if err := p.pushFrame(stackFrame{objectRef: objectRef, children: children}); err != nil {
			return nil, err
		}
		return StartDictionary{Len: int64(n)}, nil
	}
	return nil, fmt.Errorf("%w: marker 0x%02x", ErrBadObject, marker)
}

func (p *BinaryReader) readInteger(size uint8) (Event, error) {
	switch size {
	case 0:
		v, err := p.r.uint8()
		if err != nil {
			return nil, err
		}
		return IntegerFromUint64(uint64(v)), nil
	case 1:
		v, err := p.r.uint16()
		if err != nil {
			return nil, err
		}
		return IntegerFromUint64(uint64(v)), nil
	case 2:
		v, err := p.r.uint32()
		if err != nil {
			return nil, err
		}
		return IntegerFromUint64(uint64(v)), nil
	case 3:
		v, err := p.r.uint64()
		if err != nil {
			return nil, err
		}
		return IntegerFromInt64(int64(v)), nil
	case 4:
		// 16-byte integers exist to widen the unsigned 64-bit range
		// into a signed encoding. The high half must be zero: anything
		// else is either negative or above 2^64-1.
		hi, err := p.r.uint64()
		if err != nil {
			return nil, err
		}
		lo, err := p.r.uint64()
		if err != nil {
			return nil, err
		}
		if hi != 0 {
			return nil, fmt.Errorf("%w: 128-bit value outside [0, 2^64-1]", ErrBadInteger)
		}
		return IntegerFromUint64(lo), nil
	}
	return nil, fmt.Errorf("%w: integer of 2^%d bytes", ErrBadObject, size)
}

func (p *BinaryReader) makeDate(seconds float64) (Event, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) ||
		seconds <= -maxDateSeconds || seconds >= maxDateSeconds {
		return nil, fmt.Errorf("%w: %v seconds from epoch", ErrBadDate, seconds)
	}
	whole, frac := math.Modf(seconds)
	t := time.Unix(int64(whole)+unixToCocoa, int64(frac*float64(time.Second))).UTC()
	return Date(t), nil
}

// readUTF16 reads n big-endian code units and decodes them, rejecting
// unpaired surrogates instead of substituting replacement characters.
func (p *BinaryReader) readUTF16(n uint64) (string, error) {
	if err := p.checkAlloc(n, 2); err != nil {
		return "", err
	}
	units := make([]uint16, n)
	for i := range units {
		u, err := p.r.uint16()
		if err != nil {
			return "", err
		}
		units[i] = u
	}
	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u < 0xD800 || u > 0xDFFF:
			runes = append(runes, rune(u))
		case u < 0xDC00 && i+1 < len(units) &&
			units[i+1] >= 0xDC00 && units[i+1] <= 0xDFFF:
			runes = append(runes, utf16.DecodeRune(rune(u), rune(units[i+1])))
			i++
		default:
			return "", fmt.Errorf("%w: unpaired surrogate 0x%04x", ErrBadString, u)
		}
	}
	return string(runes), nil
}

func reverse(s []uint64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// byteReader provides positioned big-endian primitive reads over a
// seekable source. Short reads surface as io.ErrUnexpectedEOF.
type byteReader struct {
	rs  io.ReadSeeker
	buf [8]byte
}

func (r *byteReader) seek(offset uint64) error {
	if offset > math.MaxInt64 {
		return fmt.Errorf("%w: offset %d", ErrBadReference, offset)
	}
	_, err := r.rs.Seek(int64(offset), io.SeekStart)
	return err
}

func (r *byteReader) readFull(b []byte) error {
	_, err := io.ReadFull(r.rs, b)
	return eofErr(err)
}

func (r *byteReader) uint8() (uint8, error) {
	b := r.buf[:1]
	if err := r.readFull(b); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) uint16() (uint16, error) {
	b := r.buf[:2]
	if err := r.readFull(b); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) uint32() (uint32, error) {
	b := r.buf[:4]
	if err := r.readFull(b); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) uint64() (uint64, error) {
	b := r.buf[:8]
	if err := r.readFull(b); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// eofErr converts a bare io.EOF from a partial read into
// io.ErrUnexpectedEOF, so truncation is never mistaken for clean
// end-of-stream.
func eofErr(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
