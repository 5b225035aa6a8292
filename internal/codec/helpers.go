package codec

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asAddresses(values []interface{}) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, value := range values {
		addr, err := asAddress(value)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func asStrings(values []interface{}) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, value := range values {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("unsupported string type %T", value)
		}
		out = append(out, s)
	}
	return out, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

// fieldErrors collects the first type mismatch while a payload is unpacked
// field by field.
type fieldErrors struct {
	err error
}

func (f *fieldErrors) fail(kind string, value interface{}) {
	if f.err == nil {
		f.err = fmt.Errorf("unsupported %s type %T", kind, value)
	}
}

func (f *fieldErrors) str(value interface{}) string {
	s, ok := value.(string)
	if !ok {
		f.fail("string", value)
	}
	return s
}

func (f *fieldErrors) strs(value interface{}) []string {
	s, ok := value.([]string)
	if !ok {
		f.fail("string[]", value)
		return nil
	}
	return append([]string{}, s...)
}

func (f *fieldErrors) boolean(value interface{}) bool {
	b, ok := value.(bool)
	if !ok {
		f.fail("bool", value)
	}
	return b
}

func (f *fieldErrors) hash(value interface{}) common.Hash {
	b, ok := value.([32]byte)
	if !ok {
		f.fail("bytes32", value)
	}
	return common.Hash(b)
}

func (f *fieldErrors) addr(value interface{}) common.Address {
	a, err := asAddress(value)
	if err != nil && f.err == nil {
		f.err = err
	}
	return a
}

func (f *fieldErrors) bigInt(value interface{}) *big.Int {
	v, err := asBigInt(value)
	if err != nil {
		if f.err == nil {
			f.err = err
		}
		return new(big.Int)
	}
	return v
}

func (f *fieldErrors) u16(value interface{}) uint16 {
	v, ok := value.(uint16)
	if !ok {
		f.fail("uint16", value)
	}
	return v
}

func (f *fieldErrors) u32(value interface{}) uint32 {
	v, ok := value.(uint32)
	if !ok {
		f.fail("uint32", value)
	}
	return v
}
