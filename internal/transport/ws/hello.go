package ws

import (
	"encoding/binary"
	"errors"
)

// The first binary frame in each direction is a hello: 4 magic bytes then the
// sender's u64 peer id, little-endian.
var helloMagic = [4]byte{'G', 'A', 'G', '1'}

const helloSize = 4 + 8

var errBadHello = errors.New("ws: bad hello")

func encodeHello(id uint64) []byte {
	b := make([]byte, 0, helloSize)
	b = append(b, helloMagic[:]...)
	return binary.LittleEndian.AppendUint64(b, id)
}

func decodeHello(b []byte) (uint64, error) {
	if len(b) != helloSize || [4]byte(b[:4]) != helloMagic {
		return 0, errBadHello
	}
	id := binary.LittleEndian.Uint64(b[4:])
	if id == 0 {
		return 0, errBadHello
	}
	return id, nil
}
