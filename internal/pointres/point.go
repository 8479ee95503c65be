package pointres

import "github.com/tinylib/msgp/msgp"

// Point mirrors the original vhl_cg Point{x, y} resource: two u16
// coordinates. MarshalMsg/UnmarshalMsg are written in the shape
// `msgp -file point.go` would generate for this struct, standing in for
// the marshalers a real xPI code generator emits from a vhL source.
type Point struct {
	X uint16 `msg:"x"`
	Y uint16 `msg:"y"`
}

// MarshalMsg appends the msgpack encoding of z to b.
func (z Point) MarshalMsg(b []byte) (o []byte, err error) {
	o = msgp.Require(b, z.Msgsize())
	o = msgp.AppendMapHeader(o, 2)
	o = msgp.AppendString(o, "x")
	o = msgp.AppendUint16(o, z.X)
	o = msgp.AppendString(o, "y")
	o = msgp.AppendUint16(o, z.Y)
	return o, nil
}

// UnmarshalMsg decodes z from the msgpack encoding in bts, returning any
// unconsumed trailing bytes.
func (z *Point) UnmarshalMsg(bts []byte) (o []byte, err error) {
	var field []byte
	var n uint32
	n, bts, err = msgp.ReadMapHeaderBytes(bts)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < n; i++ {
		field, bts, err = msgp.ReadMapKeyZC(bts)
		if err != nil {
			return nil, err
		}
		switch string(field) {
		case "x":
			z.X, bts, err = msgp.ReadUint16Bytes(bts)
		case "y":
			z.Y, bts, err = msgp.ReadUint16Bytes(bts)
		default:
			bts, err = msgp.Skip(bts)
		}
		if err != nil {
			return nil, err
		}
	}
	return bts, nil
}

// Msgsize returns an upper bound on the encoded size of z, in bytes.
func (z Point) Msgsize() int {
	return 1 + 2 + msgp.Uint16Size + 2 + msgp.Uint16Size
}

// Add returns the point-wise sum of two points, matching the "2-point
// args -> Point{x1+x2, y1+y2}" semantics of the add method at /5.
func Add(a, b Point) Point {
	return Point{X: a.X + b.X, Y: a.Y + b.Y}
}
