package protocol

// Encode serializes m as [u8 kind][fields]. It never fails for the message
// types defined in this package.
func Encode(m Message) []byte {
	w := writer{buf: make([]byte, 0, encodedSizeHint(m))}
	w.u8(uint8(m.Kind()))

	switch v := m.(type) {
	case PlayerJoined:
		w.u64(v.PlayerID)
		w.str(v.Name)
		w.i32(v.ColorIndex)
	case PlayerLeft:
		w.u64(v.PlayerID)
	case PlayerMove:
		w.u64(v.PlayerID)
		w.f32(v.X)
		w.f32(v.Y)
	case GatherRequest:
		w.u64(v.PlayerID)
		w.i32(v.NodeID)
	case GatherResult:
		w.u64(v.PlayerID)
		w.i32(v.NodeID)
		w.u8(uint8(v.Resource))
		w.i32(v.Amount)
	case WorldState:
		encodeWorldState(&w, v)
	case ToolUpgradeRequest:
		w.u64(v.PlayerID)
		w.u8(uint8(v.Tool))
	case ToolUpgraded:
		w.u64(v.PlayerID)
		w.u8(uint8(v.Tool))
		w.i32(v.Level)
	case GameWon:
		w.u64(v.WinnerID)
	}
	return w.buf
}

func encodeWorldState(w *writer, s WorldState) {
	w.i32(int32(len(s.Nodes)))
	for _, n := range s.Nodes {
		w.i32(n.ID)
		w.u8(uint8(n.Type))
		w.f32(n.X)
		w.f32(n.Y)
		w.i32(n.Remaining)
		w.i32(n.Max)
		w.f32(n.RespawnTimer)
	}

	w.i32(int32(len(s.Players)))
	for _, p := range s.Players {
		w.u64(p.ID)
		w.str(p.Name)
		w.f32(p.X)
		w.f32(p.Y)
		for _, c := range p.Color {
			w.u8(c)
		}
		for _, v := range p.Inventory {
			w.i32(v)
		}
		for _, v := range p.Tools {
			w.i32(v)
		}
		w.boolean(p.Gathering)
		w.i32(p.GatherNodeID)
		w.f32(p.GatherProgress)
	}
}

func encodedSizeHint(m Message) int {
	if s, ok := m.(WorldState); ok {
		return 9 + len(s.Nodes)*nodeStateSize + len(s.Players)*(minPlayerStateSize+16)
	}
	return 32
}

// Decode parses one message. Any structural problem yields a *MalformedError;
// trailing bytes after a complete message are ignored.
func Decode(b []byte) (Message, error) {
	if len(b) == 0 {
		return nil, &MalformedError{Kind: kindCount, Reason: "empty buffer"}
	}
	k := Kind(b[0])
	if !k.Valid() {
		return nil, &MalformedError{Kind: k, Reason: "unknown message kind"}
	}
	r := &reader{kind: k, b: b, off: 1}

	var m Message
	switch k {
	case KindPlayerJoined:
		m = PlayerJoined{PlayerID: r.u64(), Name: r.str(), ColorIndex: r.i32()}
	case KindPlayerLeft:
		m = PlayerLeft{PlayerID: r.u64()}
	case KindPlayerMove:
		m = PlayerMove{PlayerID: r.u64(), X: r.f32(), Y: r.f32()}
	case KindGatherRequest:
		m = GatherRequest{PlayerID: r.u64(), NodeID: r.i32()}
	case KindGatherResult:
		m = GatherResult{PlayerID: r.u64(), NodeID: r.i32(), Resource: r.resource(), Amount: r.i32()}
	case KindWorldState:
		m = decodeWorldState(r)
	case KindToolUpgradeRequest:
		m = ToolUpgradeRequest{PlayerID: r.u64(), Tool: r.tool()}
	case KindToolUpgraded:
		m = ToolUpgraded{PlayerID: r.u64(), Tool: r.tool(), Level: r.i32()}
	case KindGameWon:
		m = GameWon{WinnerID: r.u64()}
	}
	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

func decodeWorldState(r *reader) WorldState {
	var s WorldState

	n := r.count(nodeStateSize)
	if n > 0 {
		s.Nodes = make([]NodeState, n)
	}
	for i := 0; i < n && r.err == nil; i++ {
		s.Nodes[i] = NodeState{
			ID:           r.i32(),
			Type:         r.resource(),
			X:            r.f32(),
			Y:            r.f32(),
			Remaining:    r.i32(),
			Max:          r.i32(),
			RespawnTimer: r.f32(),
		}
	}

	n = r.count(minPlayerStateSize)
	if n > 0 {
		s.Players = make([]PlayerState, n)
	}
	for i := 0; i < n && r.err == nil; i++ {
		p := &s.Players[i]
		p.ID = r.u64()
		p.Name = r.str()
		p.X = r.f32()
		p.Y = r.f32()
		for c := range p.Color {
			p.Color[c] = r.u8()
		}
		for j := range p.Inventory {
			p.Inventory[j] = r.i32()
		}
		for j := range p.Tools {
			p.Tools[j] = r.i32()
		}
		p.Gathering = r.boolean()
		p.GatherNodeID = r.i32()
		p.GatherProgress = r.f32()
	}
	return s
}
