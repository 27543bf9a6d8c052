package relay

import (
	"strings"
	"testing"
)

func TestSelectDelivery_Boundary(t *testing.T) {
	cases := []struct {
		name string
		text string
		want DeliveryKind
	}{
		{"empty", "", DeliveryInline},
		{"short", "hi there", DeliveryInline},
		{"at limit", strings.Repeat("x", 2000), DeliveryInline},
		{"one over", strings.Repeat("x", 2001), DeliveryFile},
		{"well over", strings.Repeat("x", 2500), DeliveryFile},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := SelectDelivery(tc.text, DiscordMaxMessageLen, DefaultAttachmentName, DefaultAttachmentCaption)
			if d.Kind != tc.want {
				t.Fatalf("len %d: expected %s, got %s", len(tc.text), tc.want, d.Kind)
			}
		})
	}
}

func TestSelectDelivery_InlineCarriesTextOnly(t *testing.T) {
	d := SelectDelivery("hi there", 2000, "response.txt", "caption")
	if d.Text != "hi there" {
		t.Fatalf("expected text, got %q", d.Text)
	}
	if d.Data != nil || d.Filename != "" || d.Caption != "" {
		t.Fatalf("inline delivery must not carry file fields: %+v", d)
	}
}

func TestSelectDelivery_FileCarriesExactBytes(t *testing.T) {
	text := strings.Repeat("ü", 1001) // 2002 bytes
	d := SelectDelivery(text, 2000, "response.txt", "caption")
	if d.Kind != DeliveryFile {
		t.Fatalf("expected file for %d bytes, got %s", len(text), d.Kind)
	}
	if string(d.Data) != text {
		t.Fatal("attachment bytes differ from the response text")
	}
	if d.Filename != "response.txt" || d.Caption != "caption" {
		t.Fatalf("unexpected file metadata: %+v", d)
	}
}

func TestSelectDelivery_LengthIsMeasuredInBytes(t *testing.T) {
	// 1000 runes, 3000 bytes.
	text := strings.Repeat("語", 1000)
	if d := SelectDelivery(text, 2000, "response.txt", "c"); d.Kind != DeliveryFile {
		t.Fatalf("expected file delivery for %d bytes, got %s", len(text), d.Kind)
	}
}
