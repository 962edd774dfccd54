package plist

// Binary property list layout, as written by CFBinaryPList:
//
//	8-byte magic "bplist00"
//	objects, each a 1-byte marker followed by its payload
//	offset table: NumObjects big-endian ints of OffsetIntSize bytes
//	32-byte trailer
//
// Object references inside arrays and dictionaries are indices into
// the offset table, ObjectRefSize bytes each. A marker's high nibble
// is the object type, its low nibble an inline size, with 0xF meaning
// the size follows as an extended length integer.

var bplistMagic = [8]byte{'b', 'p', 'l', 'i', 's', 't', '0', '0'}

// bplistTrailer sits in the last 32 bytes of the source. Fields are
// exported so encoding/binary can fill them.
type bplistTrailer struct {
	Unused            [5]uint8
	SortVersion       uint8
	OffsetIntSize     uint8
	ObjectRefSize     uint8
	NumObjects        uint64
	TopObject         uint64
	OffsetTableOffset uint64
}

// validWidth reports whether w is a legal offset or reference width.
func validWidth(w uint8) bool {
	return w == 1 || w == 2 || w == 4 || w == 8
}

// Marker type nibbles.
const (
	bpTypeSingleton  uint8 = 0x0
	bpTypeInteger    uint8 = 0x1
	bpTypeReal       uint8 = 0x2
	bpTypeDate       uint8 = 0x3
	bpTypeData       uint8 = 0x4
	bpTypeASCII      uint8 = 0x5
	bpTypeUTF16      uint8 = 0x6
	bpTypeUID        uint8 = 0x8
	bpTypeArray      uint8 = 0xA
	bpTypeDictionary uint8 = 0xD
)

// Singleton size nibbles. Null and fill are part of the format but not
// of the value set, so both are decode errors.
const (
	bpSingletonNull      uint8 = 0x0
	bpSingletonFalse     uint8 = 0x8
	bpSingletonTrue      uint8 = 0x9
	bpSingletonFill      uint8 = 0xF
	bpExtendedLengthSize uint8 = 0xF
)
