package assistant

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseSegments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Segment
	}{
		{
			name: "plain text",
			raw:  "你好，今天過得如何？",
			want: []Segment{{Kind: SegmentText, Content: "你好，今天過得如何？"}},
		},
		{
			name: "voice only",
			raw:  "<voice>早安！</voice>",
			want: []Segment{{Kind: SegmentVoice, Content: "早安！"}},
		},
		{
			name: "text voice image interleaved",
			raw:  "先看這個 <voice>我用說的</voice> 然後 <image>a cat on a sofa</image> 結束",
			want: []Segment{
				{Kind: SegmentText, Content: "先看這個"},
				{Kind: SegmentVoice, Content: "我用說的"},
				{Kind: SegmentText, Content: "然後"},
				{Kind: SegmentImage, Content: "a cat on a sofa"},
				{Kind: SegmentText, Content: "結束"},
			},
		},
		{
			name: "unterminated voice becomes text",
			raw:  "前面 <voice>沒有關起來",
			want: []Segment{
				{Kind: SegmentText, Content: "前面"},
				{Kind: SegmentText, Content: "沒有關起來"},
			},
		},
		{
			name: "nested open marker is literal until first close",
			raw:  "<voice>外層 <voice>內層</voice>",
			want: []Segment{
				{Kind: SegmentVoice, Content: "外層 <voice>內層"},
			},
		},
		{
			name: "empty tagged span is kept",
			raw:  "<image>  </image>",
			want: []Segment{{Kind: SegmentImage, Content: ""}},
		},
		{
			name: "unknown html tags stripped",
			raw:  "<b>重點</b>和<span class=\"x\">其他</span>",
			want: []Segment{{Kind: SegmentText, Content: "重點和其他"}},
		},
		{
			name: "whitespace only",
			raw:  "   \n  ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSegments(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSegments(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseSegmentsNoMarkersLeak(t *testing.T) {
	raw := "哈囉 <voice>語音一</voice> 中間 <image>prompt</image> <voice>語音二</voice>"
	for _, seg := range ParseSegments(raw) {
		for _, marker := range []string{openVoice, closeVoice, openImage, closeImage} {
			if strings.Contains(seg.Content, marker) {
				t.Errorf("segment %q leaked marker %q", seg.Content, marker)
			}
		}
	}
}

func TestCombine(t *testing.T) {
	steps := []Step{
		{Text: "第一段 <voice>大家好</voice>"},
		{Text: "<image>sunset over Taipei</image> 第二段"},
		{Text: "<voice>再見</voice>"},
	}

	got := Combine(steps)

	if got.Text != "第一段\n\n第二段" {
		t.Errorf("Text = %q", got.Text)
	}
	if got.Voice != "大家好 再見" {
		t.Errorf("Voice = %q", got.Voice)
	}
	if !reflect.DeepEqual(got.Images, []string{"sunset over Taipei"}) {
		t.Errorf("Images = %#v", got.Images)
	}
}

func TestCombineEmptySpansDropped(t *testing.T) {
	got := Combine([]Step{{Text: "<voice></voice><image>  </image>"}})
	if got.Voice != "" {
		t.Errorf("Voice = %q, want empty", got.Voice)
	}
	if len(got.Images) != 0 {
		t.Errorf("Images = %#v, want none", got.Images)
	}
}

func TestDedupSteps(t *testing.T) {
	steps := []Step{
		{Text: "相同的話"},
		{Text: "  相同的話  "},
		{Text: ""},
		{Text: "不同的話"},
		{Text: "相同的話"},
	}

	got := DedupSteps(steps)
	if len(got) != 2 {
		t.Fatalf("got %d steps, want 2: %#v", len(got), got)
	}
	if got[0].Text != "相同的話" || got[1].Text != "不同的話" {
		t.Errorf("wrong survivors: %#v", got)
	}

	// Running again must not change anything.
	again := DedupSteps(got)
	if !reflect.DeepEqual(again, got) {
		t.Errorf("dedup not idempotent: %#v vs %#v", again, got)
	}
}
