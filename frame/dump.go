package frame

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// codeName returns the human-readable PPPoE discovery code name.
func codeName(code uint8) string {
	switch code {
	case CodePADI:
		return "PADI"
	case CodePADO:
		return "PADO"
	case CodePADR:
		return "PADR"
	case CodePADS:
		return "PADS"
	case CodePADT:
		return "PADT"
	default:
		return fmt.Sprintf("code-%#x", code)
	}
}

// String renders a packet for verbose logging:
// "[PPPoE PADI src => dst sid=0000 <Service-Name ...> ...]". Used only
// on the verbose logging path; never on the hot path otherwise.
func (p *Packet) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[PPPoE %s %s => %s sid=%04x", codeName(p.Code), p.Src, p.Dst, p.SID)
	for _, t := range p.Tags {
		switch t.Type {
		case TagEndOfList:
			sb.WriteString(" <End-Of-List>")
		case TagServiceName:
			fmt.Fprintf(&sb, " <Service-Name %s>", t.Data)
		case TagACName:
			fmt.Fprintf(&sb, " <AC-Name %s>", t.Data)
		case TagHostUniq:
			fmt.Fprintf(&sb, " <Host-Uniq %x>", t.Data)
		case TagACCookie:
			fmt.Fprintf(&sb, " <AC-Cookie %x>", t.Data)
		case TagVendorSpecific:
			if vid, ok := ParseVendorSpecific(t); ok {
				fmt.Fprintf(&sb, " <Vendor-Specific %x>", vid)
			} else {
				sb.WriteString(" <Vendor-Specific invalid>")
			}
		case TagRelaySessionID:
			fmt.Fprintf(&sb, " <Relay-Session-Id %x>", t.Data)
		case TagServiceNameError:
			sb.WriteString(" <Service-Name-Error>")
		case TagACSystemError:
			sb.WriteString(" <AC-System-Error>")
		case TagGenericError:
			sb.WriteString(" <Generic-Error>")
		default:
			fmt.Fprintf(&sb, " <Unknown (%x)>", t.Type)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseVendorSpecific extracts the vendor id from a Vendor-Specific
// tag (the first 4 bytes, network order). Used to recognize the
// ADSL-Forum/TR-101 access-loop-id tag.
func ParseVendorSpecific(t Tag) (vendorID uint32, ok bool) {
	if t.Type != TagVendorSpecific || len(t.Data) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(t.Data[0:4]), true
}
