package compare

import (
	"encoding/binary"

	"github.com/mr-tron/base58"

	"github.com/propscout/propscout/errors"
)

// codeVersion prefixes every share code so the layout can change later.
const codeVersion = 0x01

// Encode packs property IDs into a short base58 share code:
// base58(version byte + uvarint per id).
func Encode(ids []int64) (string, error) {
	if err := checkCount(len(ids)); err != nil {
		return "", err
	}
	buf := []byte{codeVersion}
	for _, id := range ids {
		if id <= 0 {
			return "", errors.Wrapf(errors.ErrInvalidRequest, "invalid property id %d", id)
		}
		buf = binary.AppendUvarint(buf, uint64(id))
	}
	return base58.Encode(buf), nil
}

// Decode reverses Encode.
func Decode(code string) ([]int64, error) {
	raw, err := base58.Decode(code)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "invalid comparison code %q", code)
	}
	if len(raw) == 0 || raw[0] != codeVersion {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unsupported comparison code %q", code)
	}

	var ids []int64
	rest := raw[1:]
	for len(rest) > 0 {
		v, n := binary.Uvarint(rest)
		if n <= 0 || v == 0 || v > 1<<62 {
			return nil, errors.Wrapf(errors.ErrInvalidRequest, "corrupt comparison code %q", code)
		}
		ids = append(ids, int64(v))
		rest = rest[n:]
	}
	if err := checkCount(len(ids)); err != nil {
		return nil, err
	}
	return ids, nil
}
