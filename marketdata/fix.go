package marketdata

import "tachyon/fixed"

// Field delimiter; stands in for SOH so messages stay readable.
const fixDelimiter = '|'

const (
	maxCommonTags  = 128
	maxExtraFields = 32
)

// Parser is a zero-copy FIX parser. Every field value is a sub-slice of
// the message passed to Parse, so the caller must not reuse that buffer
// until it is done reading fields. Tags below 128 are stored in a flat
// array for O(1) lookup; higher tags land in a small linear-scan list.
type Parser struct {
	common [maxCommonTags][]byte
	extra  [maxExtraFields]extraField
	extraN int
	valid  bool
}

type extraField struct {
	tag int
	val []byte
}

// Parse tokenizes one message. A message is valid when it carries a
// msg type (tag 35). The parser state is reset on every call.
func (p *Parser) Parse(msg []byte) bool {
	p.Reset()
	if len(msg) == 0 {
		return false
	}

	pos := 0
	for pos < len(msg) {
		eq := indexByte(msg, '=', pos)
		if eq < 0 {
			break
		}

		tag := 0
		for i := pos; i < eq; i++ {
			c := msg[i]
			if c < '0' || c > '9' {
				p.valid = false
				return false
			}
			tag = tag*10 + int(c-'0')
		}

		end := indexByte(msg, fixDelimiter, eq+1)
		if end < 0 {
			end = len(msg)
		}
		val := msg[eq+1 : end]

		if tag > 0 && tag < maxCommonTags {
			p.common[tag] = val
		} else if p.extraN < maxExtraFields {
			p.extra[p.extraN] = extraField{tag: tag, val: val}
			p.extraN++
		}

		pos = end + 1
	}

	p.valid = len(p.Field(35)) > 0
	return p.valid
}

func indexByte(b []byte, c byte, from int) int {
	for i := from; i < len(b); i++ {
		if b[i] == c {
			return i
		}
	}
	return -1
}

// Field returns the raw value for a tag, nil when absent.
func (p *Parser) Field(tag int) []byte {
	if tag > 0 && tag < maxCommonTags {
		return p.common[tag]
	}
	for i := 0; i < p.extraN; i++ {
		if p.extra[i].tag == tag {
			return p.extra[i].val
		}
	}
	return nil
}

// Reset clears parser state for reuse.
func (p *Parser) Reset() {
	for i := range p.common {
		p.common[i] = nil
	}
	p.extraN = 0
	p.valid = false
}

func (p *Parser) Valid() bool { return p.valid }

// MsgType is tag 35.
func (p *Parser) MsgType() []byte { return p.Field(35) }

// OrderID is tag 11 (ClOrdID).
func (p *Parser) OrderID() fixed.OrderID { return parseUint(p.Field(11)) }

// Symbol is tag 55.
func (p *Parser) Symbol() []byte { return p.Field(55) }

// OrderSide is tag 54: 1 buys, anything else sells.
func (p *Parser) OrderSide() fixed.Side {
	v := p.Field(54)
	if len(v) == 1 && v[0] == '1' {
		return fixed.Buy
	}
	return fixed.Sell
}

// Price is tag 44.
func (p *Parser) Price() fixed.Price { return parsePrice(p.Field(44)) }

// Quantity is tag 38.
func (p *Parser) Quantity() fixed.Quantity { return parseUint(p.Field(38)) }

// OrderKind is tag 40.
func (p *Parser) OrderKind() fixed.OrderType {
	v := p.Field(40)
	if len(v) != 1 {
		return fixed.Limit
	}
	switch v[0] {
	case '1':
		return fixed.Market
	case '3':
		return fixed.IOC
	case '4':
		return fixed.FOK
	default:
		return fixed.Limit
	}
}

func (p *Parser) BidPrice() fixed.Price   { return parsePrice(p.Field(132)) }
func (p *Parser) AskPrice() fixed.Price   { return parsePrice(p.Field(133)) }
func (p *Parser) BidSize() fixed.Quantity { return parseUint(p.Field(134)) }
func (p *Parser) AskSize() fixed.Quantity { return parseUint(p.Field(135)) }

// parsePrice converts a decimal string to fixed-point, keeping at most
// two decimal places. Integer arithmetic only.
func parsePrice(v []byte) fixed.Price {
	if len(v) == 0 {
		return 0
	}

	negative := false
	i := 0
	if v[0] == '-' {
		negative = true
		i++
	}

	var intPart, decPart int64
	decDigits := 0
	inDecimal := false

	for ; i < len(v); i++ {
		c := v[i]
		if c == '.' {
			inDecimal = true
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		if inDecimal {
			if decDigits < 2 {
				decPart = decPart*10 + int64(c-'0')
				decDigits++
			}
		} else {
			intPart = intPart*10 + int64(c-'0')
		}
	}

	for decDigits < 2 {
		decPart *= 10
		decDigits++
	}

	price := intPart*fixed.PriceScale + decPart
	if negative {
		return -price
	}
	return price
}

func parseUint(v []byte) uint64 {
	var out uint64
	for _, c := range v {
		if c < '0' || c > '9' {
			break
		}
		out = out*10 + uint64(c-'0')
	}
	return out
}
