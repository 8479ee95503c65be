// Package pointres is the demo resource table exercising spec.md's S1-S6
// scenarios end to end: a /5 "add two points" method and a /1 writable
// digit property, backed by an in-memory, TTL-capable store so Write/Read
// round trips through real persistence rather than a bare package
// variable.
package pointres

import (
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/vhrdtech/xpigo/cmn/cos"
	"github.com/vhrdtech/xpigo/cmn/nlog"
	"github.com/vhrdtech/xpigo/xpi/nibble"
	"github.com/vhrdtech/xpigo/xpi/restbl"
	"github.com/vhrdtech/xpigo/xpi/xaddr"
	"github.com/vhrdtech/xpigo/xpi/xerr"
	"github.com/vhrdtech/xpigo/xpi/xevent"
)

const digitKey = "digit"

// DigitTTL is how long a written /1 value survives before buntdb expires
// it, exercising the property's "writable, short-lived" framing from the
// original vhl_cg resource tree.
const DigitTTL = 10 * time.Minute

// Table implements xpi/restbl.Table for the demo resource tree.
type Table struct {
	db *buntdb.DB
}

// New opens an in-memory table with the digit property defaulted to 0.
func New() (*Table, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(digitKey, "0", &buntdb.SetOptions{Expires: true, TTL: DigitTTL})
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Table{db: db}, nil
}

// Close releases the underlying store.
func (t *Table) Close() error { return t.db.Close() }

func isPointMethod(uri xaddr.Uri) bool { return len(uri.Parts) == 1 && uri.Parts[0] == 5 }
func isDigitProp(uri xaddr.Uri) bool   { return len(uri.Parts) == 1 && uri.Parts[0] == 1 }

// ReplySizeHint answers the dispatcher's lookahead pass (§4.5) without
// touching the store: resolvability and callability are decided purely
// from the uri shape and request kind.
func (t *Table) ReplySizeHint(uri xaddr.Uri, kindDisc uint8, _ any) restbl.SizeHint {
	switch {
	case isPointMethod(uri):
		if kindDisc != uint8(xevent.TagCall) {
			return restbl.Immediate(xerr.MaxLenNibbles, xerr.MaxLenNibbles, restbl.Fail(xerr.NotAMethod))
		}
		return restbl.Immediate(11, 8, restbl.OK)
	case isDigitProp(uri):
		if kindDisc == uint8(xevent.TagCall) {
			return restbl.Immediate(xerr.MaxLenNibbles, xerr.MaxLenNibbles, restbl.Fail(xerr.NotAMethod))
		}
		return restbl.Immediate(5, 2, restbl.OK)
	default:
		return restbl.Immediate(xerr.MaxLenNibbles, xerr.MaxLenNibbles, restbl.Fail(xerr.BadUri))
	}
}

// Call invokes /5's point-add method: two little-endian u16 coordinate
// pairs in, their point-wise sum out.
func (t *Table) Call(uri xaddr.Uri, args *nibble.Reader, result *nibble.Writer, _ any) xerr.Code {
	if !isPointMethod(uri) {
		return xerr.NotAMethod
	}
	a, err := readPoint(args)
	if err != nil {
		return xerr.Internal
	}
	b, err := readPoint(args)
	if err != nil {
		return xerr.Internal
	}
	sum := Add(a, b)
	if err := writePoint(result, sum); err != nil {
		return xerr.Internal
	}
	return 0
}

func readPoint(r *nibble.Reader) (Point, error) {
	var p Point
	xlo, err := r.GetU8()
	if err != nil {
		return p, err
	}
	xhi, err := r.GetU8()
	if err != nil {
		return p, err
	}
	ylo, err := r.GetU8()
	if err != nil {
		return p, err
	}
	yhi, err := r.GetU8()
	if err != nil {
		return p, err
	}
	p.X = uint16(xlo) | uint16(xhi)<<8
	p.Y = uint16(ylo) | uint16(yhi)<<8
	return p, nil
}

func writePoint(w *nibble.Writer, p Point) error {
	if err := w.PutU8(byte(p.X)); err != nil {
		return err
	}
	if err := w.PutU8(byte(p.X >> 8)); err != nil {
		return err
	}
	if err := w.PutU8(byte(p.Y)); err != nil {
		return err
	}
	return w.PutU8(byte(p.Y >> 8))
}

// SpawnCall has nothing to defer in this demo table; /5 always resolves
// immediately.
func (t *Table) SpawnCall(xaddr.Uri, []byte, restbl.ClaimToken, any) xerr.Code {
	return xerr.OperationNotSupported
}

// Read returns /1's current value from the store.
func (t *Table) Read(uri xaddr.Uri, value *nibble.Writer, _ any) xerr.Code {
	if !isDigitProp(uri) {
		return xerr.NotAMethod
	}
	s, err := t.lookupDigit()
	if err != nil {
		if cos.IsErrNotFound(err) {
			nlog.Warningf("pointres: %v (expired DigitTTL after the last write)", err)
		}
		return xerr.BadUri
	}
	var digit byte
	if _, err := fmt.Sscanf(s, "%d", &digit); err != nil {
		return xerr.Internal
	}
	if err := value.PutU8(digit); err != nil {
		return xerr.Internal
	}
	return 0
}

// lookupDigit fetches the stored /1 value, translating buntdb's own
// not-found error into cos.ErrNotFound so callers can tell "the TTL
// expired out from under us" apart from a real store failure.
func (t *Table) lookupDigit() (string, error) {
	var s string
	err := t.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(digitKey)
		if err != nil {
			return err
		}
		s = v
		return nil
	})
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return "", cos.NewErrNotFound("pointres: digit value")
		}
		return "", err
	}
	return s, nil
}

// Write stores a new /1 value, refreshing its TTL.
func (t *Table) Write(uri xaddr.Uri, value *nibble.Reader, _ any) xerr.Code {
	if !isDigitProp(uri) {
		return xerr.NotAMethod
	}
	digit, err := value.GetU8()
	if err != nil {
		return xerr.Internal
	}
	if digit > 9 {
		return xerr.Internal
	}
	err = t.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(digitKey, fmt.Sprintf("%d", digit), &buntdb.SetOptions{Expires: true, TTL: DigitTTL})
		return err
	})
	if err != nil {
		return xerr.Internal
	}
	return 0
}

func (t *Table) Borrow(xaddr.Uri, any) xerr.Code                { return xerr.OperationNotSupported }
func (t *Table) Release(xaddr.Uri, any) xerr.Code               { return xerr.OperationNotSupported }
func (t *Table) Subscribe(xaddr.Uri, xevent.Rate, any) xerr.Code { return xerr.OperationNotSupported }
func (t *Table) Unsubscribe(xaddr.Uri, any) xerr.Code           { return xerr.OperationNotSupported }
func (t *Table) OpenStream(xaddr.Uri, any) xerr.Code            { return xerr.OperationNotSupported }
func (t *Table) CloseStream(xaddr.Uri, any) xerr.Code           { return xerr.OperationNotSupported }

// GetInfo reports the static shape of whichever of the two resources uri
// names.
func (t *Table) GetInfo(uri xaddr.Uri, _ any) (xevent.ResourceInfo, xerr.Code) {
	switch {
	case isPointMethod(uri), isDigitProp(uri):
		return xevent.ResourceInfo{Kind: xevent.InfoFree}, 0
	default:
		return xevent.ResourceInfo{}, xerr.BadUri
	}
}
