package pppoe

import (
	"fmt"
	"strconv"
	"strings"
)

// IfnameInSID controls whether the interface name is folded into the
// PPP calling-/called-station-id strings.
type IfnameInSID int

const (
	IfnameInSIDNone IfnameInSID = iota
	IfnameInSIDCalled
	IfnameInSIDCalling
	IfnameInSIDBoth
)

// ParseIfnameInSID accepts the named values from the config surface
// ("called-sid", "calling-sid", "both") or a bare integer.
func ParseIfnameInSID(s string) (IfnameInSID, error) {
	switch s {
	case "called-sid":
		return IfnameInSIDCalled, nil
	case "calling-sid":
		return IfnameInSIDCalling, nil
	case "both":
		return IfnameInSIDBoth, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 3 {
		return 0, fmt.Errorf("pppoe: invalid ifname-in-sid value %q", s)
	}
	return IfnameInSID(n), nil
}

// splitInterfaceSpec splits an "interface" config entry of the form
// "ifname[,k=v[,k=v...]]" into the bare interface name and the
// (possibly empty) trailing option string, splitting on the first comma.
func splitInterfaceSpec(opt string) (ifname, ifopt string, err error) {
	comma := strings.IndexByte(opt, ',')
	if comma == 0 {
		return "", "", fmt.Errorf("pppoe: empty interface name in %q", opt)
	}
	if comma < 0 {
		return opt, "", nil
	}
	return opt[:comma], opt[comma+1:], nil
}

// interfaceOptions is the parsed form of a per-interface option
// string: padi-limit=<int>, require-service-name[=0|1] (also
// require-sn), service-name=<string> (repeatable).
type interfaceOptions struct {
	padiLimit          *int
	requireServiceName *bool
	serviceNames       []string
}

type ifoptParseState int

const (
	stateProperty ifoptParseState = iota
	stateAnyValue
	stateQuotedValue
	stateUnquotedValue
	stateExpectComma
)

// parseInterfaceOptions walks a per-interface option string
// character-by-character, supporting quoted values and flag-only
// properties (a bare "require-sn" means "=1").
func parseInterfaceOptions(ifopt string) (interfaceOptions, error) {
	var out interfaceOptions
	if ifopt == "" {
		return out, nil
	}

	state := stateProperty
	var property string
	var valueStart int
	s := ifopt

	apply := func(prop, val string) error {
		switch prop {
		case "padi-limit":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return fmt.Errorf("pppoe: invalid padi-limit value %q", val)
			}
			out.padiLimit = &n
		case "require-service-name", "require-sn":
			n, _ := strconv.Atoi(val)
			b := n != 0
			out.requireServiceName = &b
		case "service-name":
			if val == "" {
				return fmt.Errorf("pppoe: empty service-name value")
			}
			out.serviceNames = append(out.serviceNames, val)
		default:
			return fmt.Errorf("pppoe: unknown option %q", prop)
		}
		return nil
	}

	i := 0
	for {
		var c byte
		atEnd := i >= len(s)
		if !atEnd {
			c = s[i]
		}

		switch state {
		case stateProperty:
			switch {
			case atEnd:
				if property == "" {
					property = s[valueStart:i]
				}
				if property != "" {
					if err := apply(property, "1"); err != nil {
						return out, err
					}
				}
				return out, nil
			case c == '=':
				property = s[valueStart:i]
				state = stateAnyValue
			case c == ',':
				property = s[valueStart:i]
				if property != "" {
					if err := apply(property, "1"); err != nil {
						return out, err
					}
				}
				valueStart = i + 1
				property = ""
			case !isIfoptPropChar(c):
				return out, fmt.Errorf("pppoe: invalid character %q in property name at offset %d", c, i)
			}
		case stateAnyValue:
			switch {
			case atEnd || c == ',':
				if err := apply(property, ""); err != nil {
					return out, err
				}
				if atEnd {
					return out, nil
				}
				valueStart = i + 1
				property = ""
				state = stateProperty
			case c == '"':
				valueStart = i + 1
				state = stateQuotedValue
			default:
				valueStart = i
				state = stateUnquotedValue
			}
		case stateQuotedValue:
			switch {
			case atEnd:
				return out, fmt.Errorf("pppoe: unexpected end of string parsing value for %q", property)
			case c == '"':
				if err := apply(property, s[valueStart:i]); err != nil {
					return out, err
				}
				state = stateExpectComma
			}
		case stateUnquotedValue:
			if atEnd || c == ',' {
				if err := apply(property, s[valueStart:i]); err != nil {
					return out, err
				}
				if atEnd {
					return out, nil
				}
				valueStart = i + 1
				property = ""
				state = stateProperty
			}
		case stateExpectComma:
			switch {
			case atEnd:
				return out, nil
			case c == ',':
				valueStart = i + 1
				property = ""
				state = stateProperty
			default:
				return out, fmt.Errorf("pppoe: expected comma or end of string but got %q at offset %d", c, i)
			}
		}
		i++
	}
}

func isIfoptPropChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-'
}
