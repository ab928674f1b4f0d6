//
//  Copyright © the Cedrus authors. All rights reserved.
//

package types

import (
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
)

// decimalScale is the fixed denominator of the Decimal representation:
// four fractional digits.
const decimalScale = 10000

// Decimal is a fixed-point number with exactly four fractional digits,
// stored as a scaled 64-bit integer.
//
// Decimals are an extension type: they are produced only by the decimal()
// constructor and compared only through the decimal comparison operators.
type Decimal int64

// ParseDecimal parses a decimal literal of the form "-?digits.digits" with
// one to four fractional digits. The value must fit the scaled int64 range.
func ParseDecimal(s string) (Decimal, error) {
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0, fmt.Errorf("decimal %q: expected a decimal point", s)
	}

	intPart, fracPart := s[:dot], s[dot+1:]
	if len(fracPart) == 0 || len(fracPart) > 4 {
		return 0, fmt.Errorf("decimal %q: expected 1 to 4 fractional digits", s)
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decimal %q: %v", s, err)
	}

	frac, err := strconv.ParseUint(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decimal %q: %v", s, err)
	}
	for i := len(fracPart); i < 4; i++ {
		frac *= 10
	}

	if whole > math.MaxInt64/decimalScale || whole < math.MinInt64/decimalScale {
		return 0, fmt.Errorf("decimal %q: out of range", s)
	}
	scaled := whole * decimalScale

	if strings.HasPrefix(intPart, "-") {
		if scaled < math.MinInt64+int64(frac) {
			return 0, fmt.Errorf("decimal %q: out of range", s)
		}
		return Decimal(scaled - int64(frac)), nil
	}
	if scaled > math.MaxInt64-int64(frac) {
		return 0, fmt.Errorf("decimal %q: out of range", s)
	}
	return Decimal(scaled + int64(frac)), nil
}

// TypeName implements [Value].
func (d Decimal) TypeName() string { return "decimal" }

// Equal implements [Value].
func (d Decimal) Equal(other Value) bool {
	o, ok := other.(Decimal)
	return ok && d == o
}

func (d Decimal) String() string {
	v := int64(d)
	sign := ""
	mag := uint64(v)
	if v < 0 {
		// negate via the unsigned magnitude; -MinInt64 overflows int64
		sign = "-"
		mag = -mag
	}

	frac := strconv.FormatUint(mag%decimalScale+decimalScale, 10)[1:] // zero-padded
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	return fmt.Sprintf("%s%d.%s", sign, mag/decimalScale, frac)
}

// MarshalJSON renders the decimal in the extension escape form.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"__extn": map[string]string{"fn": "decimal", "arg": d.String()},
	})
}

// IPAddr is an IPv4/IPv6 address or CIDR range.
//
// IPAddr is an extension type: it is produced only by the ip() constructor
// and inspected only through the ip extension operators.
type IPAddr struct {
	prefix netip.Prefix
}

// ParseIPAddr parses an address ("192.168.0.1", "::1") or a CIDR range
// ("10.0.0.0/8"). A bare address is treated as a single-address range.
func ParseIPAddr(s string) (IPAddr, error) {
	if strings.ContainsRune(s, '/') {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return IPAddr{}, fmt.Errorf("ip %q: %v", s, err)
		}
		return IPAddr{prefix: p.Masked()}, nil
	}

	a, err := netip.ParseAddr(s)
	if err != nil {
		return IPAddr{}, fmt.Errorf("ip %q: %v", s, err)
	}
	return IPAddr{prefix: netip.PrefixFrom(a, a.BitLen())}, nil
}

// TypeName implements [Value].
func (ip IPAddr) TypeName() string { return "ipaddr" }

// Equal implements [Value]. An address and a range are never equal, even
// when the range contains exactly that address.
func (ip IPAddr) Equal(other Value) bool {
	o, ok := other.(IPAddr)
	return ok && ip.prefix == o.prefix
}

func (ip IPAddr) String() string {
	if ip.prefix.Bits() == ip.prefix.Addr().BitLen() {
		return ip.prefix.Addr().String()
	}
	return ip.prefix.String()
}

// IsIPv4 reports whether the value is an IPv4 address or range.
// IPv4-mapped IPv6 addresses (::ffff:a.b.c.d) count as IPv4.
func (ip IPAddr) IsIPv4() bool { return ip.prefix.Addr().Is4() || ip.prefix.Addr().Is4In6() }

// IsIPv6 reports whether the value is an IPv6 address or range.
func (ip IPAddr) IsIPv6() bool { return ip.prefix.Addr().Is6() && !ip.prefix.Addr().Is4In6() }

// IsLoopback reports whether the address is a loopback address.
func (ip IPAddr) IsLoopback() bool { return ip.prefix.Addr().IsLoopback() }

// IsMulticast reports whether the address is a multicast address.
func (ip IPAddr) IsMulticast() bool { return ip.prefix.Addr().IsMulticast() }

// InRange reports whether every address covered by ip falls inside the
// range other.
func (ip IPAddr) InRange(other IPAddr) bool {
	return other.prefix.Contains(ip.prefix.Addr()) && ip.prefix.Bits() >= other.prefix.Bits()
}

// MarshalJSON renders the address in the extension escape form.
func (ip IPAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"__extn": map[string]string{"fn": "ip", "arg": ip.String()},
	})
}
