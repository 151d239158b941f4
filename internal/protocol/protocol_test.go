package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samples 每种类型一个样例，覆盖带可变字段和不带可变字段的情况
func samples() []Message {
	return []Message{
		&RegisterTetrad{},
		&RegisterClient{Name: "alice"},
		&UpdateTetrad{X: 1, Y: -2, X0: 3, Y0: 4, Rot: 1},
		&UpdateClientState{Lines: 4, Score: 800, Level: 2, Status: 1, ChangedLines: []uint16{1, 7, 19}},
		&DisconnectClient{PlayerID: 42},
		&KickClient{Status: KickKicked, Reason: "stale connection"},
		&CreateRoom{PlayerID: 42, NumPlayers: 2, Name: "Duel", Password: "pw"},
		&ListRooms{PlayerID: 42},
		&RoomAnnounce{RoomID: 9, Capacity: 4, Occupancy: 1, Locked: true, Name: "Lobby"},
		&JoinRoom{PlayerID: 42, RoomID: 9, Password: "secret"},
		&UserAction{PlayerID: 42, Action: 3},
		&ErrPacket{Code: ErrCodeRoomFull},
		&RegAck{PlayerID: 42},
		&Ping{PlayerID: 42},
		&OpponentAnnounce{PublicID: 77, Name: "bob"},
		&Chat{ID: 42, Text: "gg"},
	}
}

func codeOf(t *testing.T, err error) ErrCode {
	t.Helper()
	var ce *CodeError
	require.ErrorAs(t, err, &ce)
	return ce.Code
}

func TestParse_ExactLength(t *testing.T) {
	t.Parallel()

	for _, m := range samples() {
		t.Run(m.Type().String(), func(t *testing.T) {
			t.Parallel()

			b := Encode(m)
			got, err := Parse(b)
			require.NoError(t, err)
			assert.Equal(t, m, got)

			// 多一个字节
			_, err = Parse(append(append([]byte{}, b...), 0))
			assert.Equal(t, ErrCodeBadLen, codeOf(t, err))

			// 少一个字节
			_, err = Parse(b[:len(b)-1])
			assert.Equal(t, ErrCodeBadLen, codeOf(t, err))
		})
	}
}

func TestExpectedLen_DeclaredLengths(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  Message
		want int
	}{
		{"register", &RegisterClient{Name: "abc"}, 3 + 3},
		{"create room", &CreateRoom{Name: "room", Password: "pass1"}, 9 + 4 + 5},
		{"join room", &JoinRoom{Password: "xy"}, 11 + 2},
		{"kick", &KickClient{Reason: strings.Repeat("r", 300)}, 5 + 300},
		{"client state", &UpdateClientState{ChangedLines: []uint16{1, 2}}, 16 + 4},
		{"room announce", &RoomAnnounce{Name: "r"}, 10 + 1},
		{"opponent", &OpponentAnnounce{Name: "bob"}, 7 + 3},
		{"chat", &Chat{Text: "hello"}, 7 + 5},
		{"ping", &Ping{}, 6},
		{"err", &ErrPacket{}, 3},
		{"user action", &UserAction{}, 8},
		{"update tetrad", &UpdateTetrad{}, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := Encode(tt.msg)
			got, ok := ExpectedLen(tt.msg.Type(), b)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
			assert.Len(t, b, tt.want)
		})
	}
}

func TestExpectedLen_ShorterThanFixedPart(t *testing.T) {
	t.Parallel()

	// CREATE_ROOM 的长度字段在第 8、9 字节，截断时不能读取
	b := []byte{Version, byte(MsgCreateRoom), 0, 0, 0, 1, 2, 4}
	_, ok := ExpectedLen(MsgCreateRoom, b)
	assert.False(t, ok)

	_, err := Decode(b)
	assert.Equal(t, ErrCodeBadLen, codeOf(t, err))
}

func TestDecode_WireLayout(t *testing.T) {
	t.Parallel()

	b := []byte{
		0, byte(MsgCreateRoom),
		0x00, 0x00, 0x01, 0x02, // playerId
		3,    // numPlayers
		4, 2, // nameLen, passLen
		'D', 'u', 'e', 'l',
		'p', 'w',
	}
	m, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, &CreateRoom{PlayerID: 0x0102, NumPlayers: 3, Name: "Duel", Password: "pw"}, m)

	b = []byte{0, byte(MsgJoinRoom), 0, 0, 0, 7, 0xde, 0xad, 0xbe, 0xef, 0}
	m, err = Decode(b)
	require.NoError(t, err)
	assert.Equal(t, &JoinRoom{PlayerID: 7, RoomID: 0xdeadbeef}, m)
}

func TestEncode_BigEndian(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []byte{0, byte(MsgRegAck), 0x12, 0x34, 0x56, 0x78}, Encode(&RegAck{PlayerID: 0x12345678}))
	assert.Equal(t,
		[]byte{0, byte(MsgKickClient), 0, 0x00, 0x03, 'b', 'y', 'e'},
		Encode(&KickClient{Status: KickKicked, Reason: "bye"}))
	assert.Equal(t,
		[]byte{0, byte(MsgRoomAnnounce), 0, 0, 0, 5, 2, 1, 0, 1, 'x'},
		Encode(&RoomAnnounce{RoomID: 5, Capacity: 2, Occupancy: 1, Name: "x"}))
}

func TestDecode_BadProtocol(t *testing.T) {
	t.Parallel()

	for _, m := range samples() {
		b := Encode(m)
		b[0] = Version + 1
		_, err := Decode(b)
		assert.Equal(t, ErrCodeBadProtocol, codeOf(t, err), m.Type().String())
	}

	// 版本优先于长度检查
	_, err := Decode([]byte{Version + 3, byte(MsgPing)})
	assert.Equal(t, ErrCodeBadProtocol, codeOf(t, err))
}

func TestDecode_TooShort(t *testing.T) {
	t.Parallel()

	for _, b := range [][]byte{nil, {}, {Version}} {
		_, err := Decode(b)
		assert.Equal(t, ErrCodeBadLen, codeOf(t, err))
	}
}

func TestDecode_UnknownType(t *testing.T) {
	t.Parallel()

	for _, typ := range []byte{16, 100, 255} {
		_, err := Decode([]byte{Version, typ, 0, 0, 0, 0})
		assert.Equal(t, ErrCodeIllegalMsg, codeOf(t, err))
	}
}

func TestDecode_ServerOnlyTypesAreIllegal(t *testing.T) {
	t.Parallel()

	for _, m := range samples() {
		_, err := Decode(Encode(m))
		if m.Type().ServerOnly() {
			assert.Equal(t, ErrCodeIllegalMsg, codeOf(t, err), m.Type().String())
		} else {
			assert.NoError(t, err, m.Type().String())
		}
	}
}

func TestDecode_DoesNotAliasBuffer(t *testing.T) {
	t.Parallel()

	b := Encode(&RegisterClient{Name: "alice"})
	m, err := Decode(b)
	require.NoError(t, err)

	copy(b[3:], "zzzzz")
	assert.Equal(t, "alice", m.(*RegisterClient).Name)
}

func TestValidName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "alice", true},
		{"spaces and symbols", "Mr. T ~!", true},
		{"max length", strings.Repeat("a", MaxNameLen), true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", MaxNameLen+1), false},
		{"newline", "ali\nce", false},
		{"nul", "a\x00", false},
		{"del", "a\x7f", false},
		{"high byte", "caf\xc3\xa9", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ValidName(tt.input))
		})
	}
}

func TestValidChat(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidChat("good game"))
	assert.True(t, ValidChat(strings.Repeat("x", MaxChatLen)))
	assert.False(t, ValidChat(""))
	assert.False(t, ValidChat("bell\a"))
}

func TestMessageType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "JOIN_ROOM", MsgJoinRoom.String())
	assert.Equal(t, "UNKNOWN", MessageType(99).String())
	assert.Equal(t, "room full", ErrCodeRoomFull.String())
	assert.Equal(t, "error code 200", ErrCode(200).String())
}
