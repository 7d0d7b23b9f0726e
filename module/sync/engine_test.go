package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"SyncIM/module/sync/model"
	"SyncIM/module/sync/store"
	"SyncIM/protocol"
)

const (
	testUser   = "u1"
	testDevice = "d1"
)

type fakeChannel struct {
	frames [][]byte
	failAt int // fail the nth write (1-based), 0 = never
}

func (c *fakeChannel) Write(frame []byte) error {
	if c.failAt > 0 && len(c.frames)+1 >= c.failAt {
		return fmt.Errorf("channel closed")
	}
	c.frames = append(c.frames, frame)
	return nil
}

type countingGateway struct {
	Gateway
	fetches int
}

func (g *countingGateway) FetchPage(ctx context.Context, groupID, userID, deviceID string, afterSeq int64, limit int) ([]*model.GroupMessage, error) {
	g.fetches++
	return g.Gateway.FetchPage(ctx, groupID, userID, deviceID, afterSeq, limit)
}

func textMsg(group string, i int) *model.GroupMessage {
	return &model.GroupMessage{
		SiteGroupID: group,
		MsgID:       fmt.Sprintf("m-%s-%d", group, i),
		SendUserID:  "sender",
		MsgType:     model.MsgTypeGroupText,
		Content:     fmt.Sprintf("hello %d", i),
		MsgTime:     int64(1000 + i),
	}
}

// decodeFrame splits one outbound frame into command tag and batch body.
func decodeFrame(t *testing.T, raw []byte) (cmd string, body *protocol.BatchBody) {
	t.Helper()
	parts, err := protocol.DecodeCommand(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(parts) != 3 {
		t.Fatalf("frame part count=%d, expect 3", len(parts))
	}
	if string(parts[0]) != protocol.ProtocolVersion {
		t.Fatalf("protocol version=%q", parts[0])
	}
	var pkg protocol.TransportPackage
	if err := json.Unmarshal(parts[2], &pkg); err != nil {
		t.Fatal(err)
	}
	if pkg.Header[protocol.HeaderSiteVersion] != protocol.SiteVersion {
		t.Fatalf("missing site version header: %v", pkg.Header)
	}
	cmd = string(parts[1])
	if cmd == protocol.CmdMsgToClient {
		body = &protocol.BatchBody{}
		if err := json.Unmarshal(pkg.Data, body); err != nil {
			t.Fatal(err)
		}
	}
	return cmd, body
}

func runRound(t *testing.T, gw Gateway, pointers map[string]int64) *fakeChannel {
	t.Helper()
	ch := &fakeChannel{}
	NewEngine(gw).Handle(context.Background(), &Request{
		SiteUserID:    testUser,
		DeviceID:      testDevice,
		GroupsPointer: pointers,
	}, ch)
	return ch
}

func TestTwoGroupScenario(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	mem.AddMember("g2", testUser)
	for i := 1; i <= 150; i++ {
		mem.AppendMessage(textMsg("g1", i))
	}

	gw := &countingGateway{Gateway: mem}
	ch := runRound(t, gw, map[string]int64{"g1": 0})

	// g1: full page then short page; g2: one empty fetch
	if gw.fetches != 3 {
		t.Errorf("fetches=%d, expect 3", gw.fetches)
	}
	if len(ch.frames) != 3 {
		t.Fatalf("frames=%d, expect 2 data + 1 finish", len(ch.frames))
	}

	cmd, body := decodeFrame(t, ch.frames[0])
	if cmd != protocol.CmdMsgToClient || len(body.List) != 100 {
		t.Errorf("first frame cmd=%s len=%d", cmd, len(body.List))
	}
	cmd, body = decodeFrame(t, ch.frames[1])
	if cmd != protocol.CmdMsgToClient || len(body.List) != 50 {
		t.Errorf("second frame cmd=%s len=%d", cmd, len(body.List))
	}
	if got := body.List[len(body.List)-1].Pointer; got != 150 {
		t.Errorf("final delivered pointer=%d, expect 150", got)
	}
	if cmd, _ := decodeFrame(t, ch.frames[2]); cmd != protocol.CmdMsgFinish {
		t.Errorf("last frame cmd=%s, expect finish", cmd)
	}
}

func TestZeroGroupsStillFinishes(t *testing.T) {
	ch := runRound(t, store.NewMemStore(), nil)
	if len(ch.frames) != 1 {
		t.Fatalf("frames=%d, expect finish only", len(ch.frames))
	}
	if cmd, _ := decodeFrame(t, ch.frames[0]); cmd != protocol.CmdMsgFinish {
		t.Errorf("cmd=%s, expect finish", cmd)
	}
}

func TestSecretOnlyGroup(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	for i := 1; i <= 5; i++ {
		m := textMsg("g1", i)
		m.MsgType = model.MsgTypeGroupSecretText
		mem.AppendMessage(m)
	}

	gw := &countingGateway{Gateway: mem}
	visited, err := NewEngine(gw).drainGroup(context.Background(), &Request{
		SiteUserID: testUser, DeviceID: testDevice,
	}, "g1", &fakeChannel{})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 5 {
		t.Errorf("visited=%d, expect 5", visited)
	}
	if gw.fetches != 1 {
		t.Errorf("fetches=%d, expect 1 (short secret page still terminates)", gw.fetches)
	}

	// end to end: no data frame, one finish frame
	ch := runRound(t, mem, nil)
	if len(ch.frames) != 1 {
		t.Fatalf("frames=%d, expect finish only", len(ch.frames))
	}
}

func TestSecretRecordsAdvancePointer(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	// a full page of secrets followed by one text message: if secrets did
	// not advance the pointer, the second fetch would refetch them forever
	for i := 1; i <= SyncMaxMessageCount; i++ {
		m := textMsg("g1", i)
		m.MsgType = model.MsgTypeGroupSecretVoice
		mem.AppendMessage(m)
	}
	mem.AppendMessage(textMsg("g1", 101))

	gw := &countingGateway{Gateway: mem}
	ch := runRound(t, gw, nil)
	if gw.fetches != 2 {
		t.Errorf("fetches=%d, expect 2", gw.fetches)
	}
	if len(ch.frames) != 2 {
		t.Fatalf("frames=%d, expect 1 data + 1 finish", len(ch.frames))
	}
	_, body := decodeFrame(t, ch.frames[0])
	if len(body.List) != 1 || body.List[0].Pointer != 101 {
		t.Errorf("delivered=%v, expect single pointer 101", body.List)
	}
}

func TestPageBoundaryTermination(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	for i := 1; i <= SyncMaxMessageCount; i++ {
		mem.AppendMessage(textMsg("g1", i))
	}

	gw := &countingGateway{Gateway: mem}
	ch := runRound(t, gw, nil)
	// exactly P records: the full page forces one more (empty) fetch
	if gw.fetches != 2 {
		t.Errorf("fetches=%d, expect 2", gw.fetches)
	}
	if len(ch.frames) != 2 {
		t.Errorf("frames=%d, expect 1 data + 1 finish", len(ch.frames))
	}
}

func TestBadRecordIsolation(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	for i := 1; i <= 3; i++ {
		mem.AppendMessage(textMsg("g1", i))
	}
	bad := textMsg("g1", 4)
	bad.MsgID = "" // unencodable
	mem.AppendMessage(bad)
	for i := 5; i <= 7; i++ {
		mem.AppendMessage(textMsg("g1", i))
	}

	ch := runRound(t, mem, nil)
	if len(ch.frames) != 2 {
		t.Fatalf("frames=%d, expect 1 data + 1 finish", len(ch.frames))
	}
	_, body := decodeFrame(t, ch.frames[0])
	if len(body.List) != 6 {
		t.Errorf("envelopes=%d, expect 6 (bad record skipped)", len(body.List))
	}
	if got := body.List[len(body.List)-1].Pointer; got != 7 {
		t.Errorf("last pointer=%d, expect 7 (past the bad record)", got)
	}
}

func TestClientPointerAheadOfServer(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	for i := 1; i <= 400; i++ {
		mem.AppendMessage(textMsg("g1", i))
	}
	mem.SetPointer("g1", testUser, testDevice, 300)

	gw := &countingGateway{Gateway: mem}
	ch := runRound(t, gw, map[string]int64{"g1": 500})
	if gw.fetches != 1 {
		t.Errorf("fetches=%d, expect 1", gw.fetches)
	}
	if len(ch.frames) != 1 {
		t.Fatalf("frames=%d, expect finish only (no regression below 500)", len(ch.frames))
	}
}

func TestPersistedPointerBeatsStaleClient(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	for i := 1; i <= 10; i++ {
		mem.AppendMessage(textMsg("g1", i))
	}
	mem.SetPointer("g1", testUser, testDevice, 8)

	ch := runRound(t, mem, map[string]int64{"g1": 0})
	_, body := decodeFrame(t, ch.frames[0])
	if len(body.List) != 2 {
		t.Fatalf("envelopes=%d, expect 2 (only seq 9 and 10)", len(body.List))
	}
	if body.List[0].Pointer != 9 || body.List[1].Pointer != 10 {
		t.Errorf("pointers=%d,%d, expect 9,10", body.List[0].Pointer, body.List[1].Pointer)
	}
}

// Repeated rounds simulating reconnects: every non-secret record is
// delivered exactly once when the client acknowledges between rounds, and
// the recommended pointer never decreases.
func TestNoLossNoDuplicationAcrossRounds(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	total := 0
	for i := 1; i <= 237; i++ {
		m := textMsg("g1", i)
		if i%5 == 0 {
			m.MsgType = model.MsgTypeGroupSecretImage
		} else {
			total++
		}
		mem.AppendMessage(m)
	}

	seen := map[int64]int{}
	var lastPointer int64
	clientPointer := int64(0)
	for round := 0; round < 5; round++ {
		ch := runRound(t, mem, map[string]int64{"g1": clientPointer})
		for _, raw := range ch.frames {
			cmd, body := decodeFrame(t, raw)
			if cmd != protocol.CmdMsgToClient {
				continue
			}
			for _, env := range body.List {
				seen[env.Pointer]++
				if env.Pointer < lastPointer {
					t.Fatalf("pointer regressed: %d after %d", env.Pointer, lastPointer)
				}
				lastPointer = env.Pointer
			}
		}
		// client acks everything it received before the next round
		if lastPointer > clientPointer {
			clientPointer = lastPointer
		}
	}

	if len(seen) != total {
		t.Errorf("delivered %d distinct records, expect %d", len(seen), total)
	}
	for seq, n := range seen {
		if n != 1 {
			t.Errorf("seq %d delivered %d times", seq, n)
		}
	}
}

func TestChannelFailureShortCircuits(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("g1", testUser)
	mem.AddMember("g2", testUser)
	for i := 1; i <= 250; i++ {
		mem.AppendMessage(textMsg("g1", i))
	}

	gw := &countingGateway{Gateway: mem}
	ch := &fakeChannel{failAt: 1}
	NewEngine(gw).Handle(context.Background(), &Request{
		SiteUserID: testUser, DeviceID: testDevice,
	}, ch)

	if gw.fetches != 1 {
		t.Errorf("fetches=%d, expect 1 (no gateway work after channel death)", gw.fetches)
	}
	if len(ch.frames) != 0 {
		t.Errorf("frames=%d, expect none (finish withheld on failure)", len(ch.frames))
	}
}

func TestGatewayFailureWithholdsFinish(t *testing.T) {
	gw := &failingGateway{}
	ch := &fakeChannel{}
	NewEngine(gw).Handle(context.Background(), &Request{
		SiteUserID: testUser, DeviceID: testDevice,
	}, ch)
	if len(ch.frames) != 0 {
		t.Errorf("frames=%d, expect none", len(ch.frames))
	}
}

type failingGateway struct{}

func (failingGateway) ListGroups(ctx context.Context, userID string) ([]string, error) {
	return nil, fmt.Errorf("listing backend down")
}
func (failingGateway) GetPointer(ctx context.Context, groupID, userID, deviceID string) (int64, error) {
	return 0, nil
}
func (failingGateway) FetchPage(ctx context.Context, groupID, userID, deviceID string, afterSeq int64, limit int) ([]*model.GroupMessage, error) {
	return nil, nil
}

func TestFrameOrderWithinRequest(t *testing.T) {
	mem := store.NewMemStore()
	mem.AddMember("ga", testUser)
	mem.AddMember("gb", testUser)
	for i := 1; i <= 3; i++ {
		mem.AppendMessage(textMsg("ga", i))
		mem.AppendMessage(textMsg("gb", i))
	}

	ch := runRound(t, mem, nil)
	if len(ch.frames) != 3 {
		t.Fatalf("frames=%d, expect 2 data + 1 finish", len(ch.frames))
	}
	var order []string
	for _, raw := range ch.frames[:2] {
		_, body := decodeFrame(t, raw)
		order = append(order, body.List[0].Text.SiteGroupID)
	}
	if strings.Join(order, ",") != "ga,gb" {
		t.Errorf("group order=%v, expect membership listing order", order)
	}
}
