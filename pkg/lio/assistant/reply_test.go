package assistant

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

// recordingReplier captures Reply calls for assertions.
type recordingReplier struct {
	calls   int
	batches [][]OutMessage
	err     error
}

func (r *recordingReplier) Reply(_ context.Context, messages []OutMessage) error {
	r.calls++
	r.batches = append(r.batches, messages)
	return r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAssembleBatchOrder(t *testing.T) {
	voice := OutMessage{Type: MessageAudio, URL: "https://cdn/a.mp3", DurationMS: 2000}
	images := []OutMessage{
		{Type: MessageImage, URL: "https://cdn/1.png"},
		{Type: MessageImage, URL: "https://cdn/2.png"},
	}

	batch := AssembleBatch("哈囉", &voice, images)

	wantTypes := []MessageType{MessageText, MessageAudio, MessageImage, MessageImage}
	if len(batch) != len(wantTypes) {
		t.Fatalf("batch len = %d, want %d", len(batch), len(wantTypes))
	}
	for i, want := range wantTypes {
		if batch[i].Type != want {
			t.Errorf("batch[%d].Type = %s, want %s", i, batch[i].Type, want)
		}
	}
}

func TestAssembleBatchSkipsEmptyPieces(t *testing.T) {
	if got := AssembleBatch("", nil, nil); len(got) != 0 {
		t.Errorf("empty pieces produced %d messages", len(got))
	}

	batch := AssembleBatch("", nil, []OutMessage{{Type: MessageImage, URL: "u"}})
	if len(batch) != 1 || batch[0].Type != MessageImage {
		t.Errorf("image-only batch = %#v", batch)
	}
}

func TestSendReplyEmptyBatchMakesNoCall(t *testing.T) {
	replier := &recordingReplier{}
	if err := SendReply(context.Background(), replier, nil, discardLogger()); err != nil {
		t.Fatalf("SendReply: %v", err)
	}
	if replier.calls != 0 {
		t.Errorf("Reply called %d times, want 0", replier.calls)
	}
}

func TestSendReplyOversizedBatchSendsWarning(t *testing.T) {
	batch := make([]OutMessage, MaxReplyMessages+1)
	for i := range batch {
		batch[i] = OutMessage{Type: MessageText, Text: "x"}
	}

	replier := &recordingReplier{}
	if err := SendReply(context.Background(), replier, batch, discardLogger()); err != nil {
		t.Fatalf("SendReply: %v", err)
	}
	if replier.calls != 1 {
		t.Fatalf("Reply called %d times, want 1", replier.calls)
	}
	sent := replier.batches[0]
	if len(sent) != 1 || sent[0].Text != oversizedReplyText {
		t.Errorf("oversized batch sent %#v, want single warning", sent)
	}
}

func TestSendReplyWithinCapPassesThrough(t *testing.T) {
	batch := []OutMessage{
		{Type: MessageText, Text: "a"},
		{Type: MessageText, Text: "b"},
	}
	replier := &recordingReplier{}
	if err := SendReply(context.Background(), replier, batch, discardLogger()); err != nil {
		t.Fatalf("SendReply: %v", err)
	}
	if len(replier.batches[0]) != 2 {
		t.Errorf("sent %d messages, want 2", len(replier.batches[0]))
	}
}
