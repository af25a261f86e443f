package router

import (
	"testing"

	tele "gopkg.in/telebot.v4"

	"heraldbot/internal/transport"
)

func TestPayloadFromMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  *tele.Message
		want *transport.Payload
	}{
		{
			name: "text",
			msg:  &tele.Message{Text: "hello"},
			want: &transport.Payload{Kind: transport.KindText, Text: "hello"},
		},
		{
			name: "photo with caption",
			msg:  &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "p1"}}, Caption: "cap"},
			want: &transport.Payload{Kind: transport.KindPhoto, FileID: "p1", Caption: "cap"},
		},
		{
			name: "video",
			msg:  &tele.Message{Video: &tele.Video{File: tele.File{FileID: "v1"}}},
			want: &transport.Payload{Kind: transport.KindVideo, FileID: "v1"},
		},
		{
			name: "document",
			msg:  &tele.Message{Document: &tele.Document{File: tele.File{FileID: "d1"}}, Caption: "notes.pdf"},
			want: &transport.Payload{Kind: transport.KindDocument, FileID: "d1", Caption: "notes.pdf"},
		},
		{
			name: "audio",
			msg:  &tele.Message{Audio: &tele.Audio{File: tele.File{FileID: "a1"}}},
			want: &transport.Payload{Kind: transport.KindAudio, FileID: "a1"},
		},
		{
			name: "voice",
			msg:  &tele.Message{Voice: &tele.Voice{File: tele.File{FileID: "vc1"}}},
			want: &transport.Payload{Kind: transport.KindVoice, FileID: "vc1"},
		},
		{
			name: "sticker ignores caption",
			msg:  &tele.Message{Sticker: &tele.Sticker{File: tele.File{FileID: "s1"}}, Caption: "cap"},
			want: &transport.Payload{Kind: transport.KindSticker, FileID: "s1"},
		},
		{
			name: "video note",
			msg:  &tele.Message{VideoNote: &tele.VideoNote{File: tele.File{FileID: "vn1"}}},
			want: &transport.Payload{Kind: transport.KindVideoNote, FileID: "vn1"},
		},
		{
			name: "photo wins over text",
			msg:  &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "p2"}}, Text: "ignored"},
			want: &transport.Payload{Kind: transport.KindPhoto, FileID: "p2"},
		},
		{
			name: "empty message",
			msg:  &tele.Message{},
			want: nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := payloadFromMessage(tc.msg)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("payloadFromMessage = %+v, want %+v", got, tc.want)
			}
			if got == nil {
				return
			}
			if *got != *tc.want {
				t.Fatalf("payloadFromMessage = %+v, want %+v", *got, *tc.want)
			}
		})
	}
}

func TestPendingActionsTakeClears(t *testing.T) {
	t.Parallel()

	p := newPendingActions()
	if got := p.take(1); got != pendingNone {
		t.Fatalf("take on empty = %q", got)
	}
	p.set(1, pendingBroadcast)
	p.set(2, pendingWelcome)
	if got := p.take(1); got != pendingBroadcast {
		t.Fatalf("take = %q, want broadcast", got)
	}
	if got := p.take(1); got != pendingNone {
		t.Fatal("pending action survived take")
	}
	if got := p.take(2); got != pendingWelcome {
		t.Fatalf("take = %q, want welcome", got)
	}
}
