package xevent

import "github.com/vhrdtech/xpigo/xpi/nibble"

func putByteBufVec(w *nibble.Writer, bufs [][]byte) error {
	if err := w.PutVluU32(uint32(len(bufs))); err != nil {
		return err
	}
	for _, b := range bufs {
		if err := w.PutVluU32(uint32(len(b))); err != nil {
			return err
		}
		if err := w.PutAlignedWith(len(b), func(w *nibble.Writer) error {
			return w.PutSlice(b)
		}); err != nil {
			return err
		}
	}
	return nil
}

func getByteBufVec(r *nibble.Reader) ([][]byte, error) {
	n, err := r.GetVluU32()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, n)
	for i := range out {
		blen, err := r.GetVluU32()
		if err != nil {
			return nil, err
		}
		if err := r.AlignToByte(); err != nil {
			return nil, err
		}
		b, err := r.GetSlice(int(blen))
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func putByteResultVec(w *nibble.Writer, results []ByteResult) error {
	if err := w.PutVluU32(uint32(len(results))); err != nil {
		return err
	}
	for _, res := range results {
		if err := res.serNibbles(w); err != nil {
			return err
		}
	}
	return nil
}

func getByteResultVec(r *nibble.Reader) ([]ByteResult, error) {
	n, err := r.GetVluU32()
	if err != nil {
		return nil, err
	}
	out := make([]ByteResult, n)
	for i := range out {
		v, err := decodeByteResult(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func putUnitResultVec(w *nibble.Writer, results []UnitResult) error {
	if err := w.PutVluU32(uint32(len(results))); err != nil {
		return err
	}
	for _, res := range results {
		if err := res.serNibbles(w); err != nil {
			return err
		}
	}
	return nil
}

func getUnitResultVec(r *nibble.Reader) ([]UnitResult, error) {
	n, err := r.GetVluU32()
	if err != nil {
		return nil, err
	}
	out := make([]UnitResult, n)
	for i := range out {
		v, err := decodeUnitResult(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func putInfoResultVec(w *nibble.Writer, results []InfoResult) error {
	if err := w.PutVluU32(uint32(len(results))); err != nil {
		return err
	}
	for _, res := range results {
		if err := res.serNibbles(w); err != nil {
			return err
		}
	}
	return nil
}

func getInfoResultVec(r *nibble.Reader) ([]InfoResult, error) {
	n, err := r.GetVluU32()
	if err != nil {
		return nil, err
	}
	out := make([]InfoResult, n)
	for i := range out {
		v, err := decodeInfoResult(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func putRateVec(w *nibble.Writer, rates []Rate) error {
	if err := w.PutVluU32(uint32(len(rates))); err != nil {
		return err
	}
	for _, rt := range rates {
		if err := rt.serNibbles(w); err != nil {
			return err
		}
	}
	return nil
}

func getRateVec(r *nibble.Reader) ([]Rate, error) {
	n, err := r.GetVluU32()
	if err != nil {
		return nil, err
	}
	out := make([]Rate, n)
	for i := range out {
		v, err := decodeRate(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SerNibbles writes k's payload per (Dir, tag). Kinds with no payload body
// (Read, Unsubscribe, Borrow, Release, GetInfo, OpenStreams, CloseStreams)
// write nothing.
func (k Kind) SerNibbles(w *nibble.Writer) error {
	if k.Dir == Request {
		switch k.ReqTag {
		case TagCall, TagWrite:
			return putByteBufVec(w, k.ArgsSet)
		case TagChainCall, TagDiscoverNodes, TagNodeInfo, TagHeartbeat:
			if err := w.PutVluU32(uint32(len(k.ChainArgs))); err != nil {
				return err
			}
			return w.PutAlignedWith(len(k.ChainArgs), func(w *nibble.Writer) error {
				return w.PutSlice(k.ChainArgs)
			})
		case TagSubscribe:
			return putRateVec(w, k.Rates)
		default:
			return nil
		}
	}
	switch k.RepTag {
	case TagCallResults, TagReadResults:
		return putByteResultVec(w, k.ByteResult)
	case TagWriteResults, TagSubscribeResults, TagBorrowResults, TagReleaseResults,
		TagOpenStreamResults, TagCloseStreamResults:
		return putUnitResultVec(w, k.UnitResult)
	case TagStreamUpdates:
		return putByteBufVec(w, k.StreamUpd)
	case TagInfoResults:
		return putInfoResultVec(w, k.InfoResult)
	default:
		return nil
	}
}

func decodeKind(dir Direction, tag uint8, r *nibble.Reader) (Kind, error) {
	k := Kind{Dir: dir}
	if dir == Request {
		k.ReqTag = RequestTag(tag)
		if k.ReqTag > TagHeartbeat {
			return Kind{}, ErrUnknownKind
		}
		var err error
		switch k.ReqTag {
		case TagCall, TagWrite:
			k.ArgsSet, err = getByteBufVec(r)
		case TagChainCall, TagDiscoverNodes, TagNodeInfo, TagHeartbeat:
			var blen uint32
			blen, err = r.GetVluU32()
			if err == nil {
				if err = r.AlignToByte(); err == nil {
					k.ChainArgs, err = r.GetSlice(int(blen))
				}
			}
		case TagSubscribe:
			k.Rates, err = getRateVec(r)
		}
		return k, err
	}
	k.RepTag = ReplyTag(tag)
	if k.RepTag > TagCloseStreamResults {
		return Kind{}, ErrUnknownKind
	}
	var err error
	switch k.RepTag {
	case TagCallResults, TagReadResults:
		k.ByteResult, err = getByteResultVec(r)
	case TagWriteResults, TagSubscribeResults, TagBorrowResults, TagReleaseResults,
		TagOpenStreamResults, TagCloseStreamResults:
		k.UnitResult, err = getUnitResultVec(r)
	case TagStreamUpdates:
		k.StreamUpd, err = getByteBufVec(r)
	case TagInfoResults:
		k.InfoResult, err = getInfoResultVec(r)
	}
	return k, err
}
