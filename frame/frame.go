// Package frame implements the RFC 2516 PPPoE discovery wire format:
// an Ethernet header, a fixed PPPoE header, and a list of TLV tags.
//
// It is deliberately pure: Parse and the Packet builder methods touch
// no sockets, no clocks, no server state. Everything above this
// package deals in *frame.Packet values.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

// Ethernet header layout.
const (
	EthHeaderLen = 14
	addrLen      = 6
)

// EtherTypePPPoEDiscovery is the Ethernet type for PPPoE discovery frames.
const EtherTypePPPoEDiscovery = 0x8863

// EtherTypePPPoESession is the Ethernet type for PPPoE session-stage frames.
const EtherTypePPPoESession = 0x8864

// PPPoE header layout: ver/type packed in one octet, code, sid, length.
const HeaderLen = 6

// Discovery packet codes.
const (
	CodePADI = 0x09
	CodePADO = 0x07
	CodePADR = 0x19
	CodePADS = 0x65
	CodePADT = 0xa7
)

// Tag types.
const (
	TagEndOfList        = 0x0000
	TagServiceName      = 0x0101
	TagACName           = 0x0102
	TagHostUniq         = 0x0103
	TagACCookie         = 0x0104
	TagVendorSpecific   = 0x0105
	TagRelaySessionID   = 0x0110
	TagServiceNameError = 0x0201
	TagACSystemError    = 0x0202
	TagGenericError     = 0x0203
)

// VendorIDADSLForum is the IANA enterprise number carried in the
// TR-101 Vendor-Specific tag.
const VendorIDADSLForum = 3561

var (
	// ErrMalformedFrame is returned for any frame that fails to parse.
	ErrMalformedFrame = errors.New("frame: malformed frame")
	// Broadcast is the Ethernet broadcast address.
	Broadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
)

// Tag is a single parsed TLV: type, length, and a reference into the
// original frame's payload (not copied — callers that need to retain
// a tag past the lifetime of the source buffer must clone it).
type Tag struct {
	Type uint16
	Data []byte
}

// Clone returns a Tag whose Data is an independent copy.
func (t Tag) Clone() Tag {
	d := make([]byte, len(t.Data))
	copy(d, t.Data)
	return Tag{Type: t.Type, Data: d}
}

// Packet is a parsed PPPoE discovery frame.
type Packet struct {
	Src, Dst net.HardwareAddr
	Code     uint8
	SID      uint16
	Tags     []Tag
}

// Tag returns the first tag of the given type, and whether it was found.
func (p *Packet) Tag(typ uint16) (Tag, bool) {
	for _, t := range p.Tags {
		if t.Type == typ {
			return t, true
		}
	}
	return Tag{}, false
}

// Parse decodes an Ethernet + PPPoE discovery frame. It walks tags
// until the declared header length is consumed, stopping early on an
// explicit End-Of-List tag but tolerating its absence (many clients
// omit the terminator).
func Parse(buf []byte) (*Packet, error) {
	if len(buf) < EthHeaderLen+HeaderLen {
		return nil, fmt.Errorf("%w: frame too short (%d bytes)", ErrMalformedFrame, len(buf))
	}

	dst := net.HardwareAddr(append([]byte(nil), buf[0:6]...))
	src := net.HardwareAddr(append([]byte(nil), buf[6:12]...))

	hdr := buf[EthHeaderLen:]
	verType := hdr[0]
	ver := verType >> 4
	typ := verType & 0x0f
	code := hdr[1]
	sid := binary.BigEndian.Uint16(hdr[2:4])
	length := binary.BigEndian.Uint16(hdr[4:6])

	payload := hdr[HeaderLen:]
	if int(length) > len(payload) {
		return nil, fmt.Errorf("%w: declared length %d exceeds received payload %d", ErrMalformedFrame, length, len(payload))
	}
	payload = payload[:length]

	p := &Packet{Src: src, Dst: dst, Code: code, SID: sid}
	_ = ver
	_ = typ

	var off int
	for off < len(payload) {
		if off+4 > len(payload) {
			return nil, fmt.Errorf("%w: truncated tag header at offset %d", ErrMalformedFrame, off)
		}
		tagType := binary.BigEndian.Uint16(payload[off : off+2])
		tagLen := binary.BigEndian.Uint16(payload[off+2 : off+4])
		off += 4
		if off+int(tagLen) > len(payload) {
			return nil, fmt.Errorf("%w: tag type %#x length %d exceeds declared length", ErrMalformedFrame, tagType, tagLen)
		}
		p.Tags = append(p.Tags, Tag{Type: tagType, Data: payload[off : off+int(tagLen)]})
		off += int(tagLen)
		if tagType == TagEndOfList {
			break
		}
	}

	return p, nil
}

// ParseVersionType reports the ver/type octet of a parsed discovery frame.
// Kept distinct from Parse so a caller can accept (while warning on) a
// non-1 type field rather than dropping the frame outright.
func ParseVersionType(buf []byte) (ver, typ uint8, err error) {
	if len(buf) < EthHeaderLen+HeaderLen {
		return 0, 0, ErrMalformedFrame
	}
	b := buf[EthHeaderLen]
	return b >> 4, b & 0x0f, nil
}

// Builder assembles an outgoing discovery frame.
type Builder struct {
	buf []byte
}

// NewBuilder starts a new frame with the Ethernet + PPPoE header filled in.
// Length starts at zero and grows as tags are appended.
func NewBuilder(code uint8, sid uint16, src, dst net.HardwareAddr) *Builder {
	b := &Builder{buf: make([]byte, EthHeaderLen+HeaderLen, 1500)}
	copy(b.buf[0:6], dst)
	copy(b.buf[6:12], src)
	binary.BigEndian.PutUint16(b.buf[12:14], EtherTypePPPoEDiscovery)

	b.buf[14] = 0x11 // ver=1, type=1
	b.buf[15] = code
	binary.BigEndian.PutUint16(b.buf[16:18], sid)
	binary.BigEndian.PutUint16(b.buf[18:20], 0)
	return b
}

// AddTag appends a tag carrying data, updating the header length in place.
func (b *Builder) AddTag(typ uint16, data []byte) *Builder {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:2], typ)
	binary.BigEndian.PutUint16(hdr[2:4], uint16(len(data)))
	b.buf = append(b.buf, hdr[:]...)
	b.buf = append(b.buf, data...)
	b.setLength(b.length() + 4 + len(data))
	return b
}

// CopyTag appends a previously-parsed tag verbatim.
func (b *Builder) CopyTag(t Tag) *Builder {
	return b.AddTag(t.Type, t.Data)
}

func (b *Builder) length() int {
	return int(binary.BigEndian.Uint16(b.buf[18:20]))
}

func (b *Builder) setLength(n int) {
	binary.BigEndian.PutUint16(b.buf[18:20], uint16(n))
}

// Bytes returns the assembled frame.
func (b *Builder) Bytes() []byte {
	return b.buf
}
