package router

import (
	tele "gopkg.in/telebot.v4"

	"heraldbot/internal/transport"
)

// payloadFromMessage reconstructs sendable content from a Telegram message so
// delivery has a fallback when copying the original fails. Returns nil for
// content that cannot be rebuilt from a file reference.
func payloadFromMessage(m *tele.Message) *transport.Payload {
	switch {
	case m.Photo != nil:
		return &transport.Payload{Kind: transport.KindPhoto, FileID: m.Photo.FileID, Caption: m.Caption}
	case m.Video != nil:
		return &transport.Payload{Kind: transport.KindVideo, FileID: m.Video.FileID, Caption: m.Caption}
	case m.Document != nil:
		return &transport.Payload{Kind: transport.KindDocument, FileID: m.Document.FileID, Caption: m.Caption}
	case m.Audio != nil:
		return &transport.Payload{Kind: transport.KindAudio, FileID: m.Audio.FileID, Caption: m.Caption}
	case m.Voice != nil:
		return &transport.Payload{Kind: transport.KindVoice, FileID: m.Voice.FileID, Caption: m.Caption}
	case m.Sticker != nil:
		return &transport.Payload{Kind: transport.KindSticker, FileID: m.Sticker.FileID}
	case m.VideoNote != nil:
		return &transport.Payload{Kind: transport.KindVideoNote, FileID: m.VideoNote.FileID}
	case m.Text != "":
		return &transport.Payload{Kind: transport.KindText, Text: m.Text}
	default:
		return nil
	}
}
