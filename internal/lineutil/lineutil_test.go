package lineutil

import (
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/ray319129/czj/bot"
	"github.com/ray319129/czj/catalog"
)

func TestImageURLEscapesSegments(t *testing.T) {
	t.Parallel()

	r := &Renderer{BaseURL: "https://example.com/"}
	e := catalog.Entry{ID: "a0001", Name: "臣妾做不到", Path: "【皇后】/臣妾做不到.jpg"}

	got := r.ImageURL(e)
	if strings.Contains(got, "【") {
		t.Fatalf("ImageURL() = %q, want escaped segments", got)
	}
	if !strings.HasPrefix(got, "https://example.com/images/") {
		t.Fatalf("ImageURL() = %q, want /images/ prefix without double slash", got)
	}
	if strings.Contains(got, "%2F") {
		t.Fatalf("ImageURL() = %q, path separators must stay literal", got)
	}
}

func TestRenderEntryEmitsImageThenCaption(t *testing.T) {
	t.Parallel()

	r := &Renderer{BaseURL: "https://example.com"}
	e := catalog.Entry{ID: "a0001", Name: "臣妾做不到", Path: "x.jpg"}

	msgs := r.Render([]bot.Action{bot.ShowEntry{Entry: e, WithNav: true}}, false)
	if len(msgs) != 2 {
		t.Fatalf("Render() = %d messages, want 2", len(msgs))
	}
	img, ok := msgs[0].(*messaging_api.ImageMessage)
	if !ok {
		t.Fatalf("first message = %T, want ImageMessage", msgs[0])
	}
	if img.OriginalContentUrl != img.PreviewImageUrl {
		t.Fatalf("image urls differ: %q vs %q", img.OriginalContentUrl, img.PreviewImageUrl)
	}
	txt, ok := msgs[1].(*messaging_api.TextMessage)
	if !ok {
		t.Fatalf("second message = %T, want TextMessage", msgs[1])
	}
	if want := "【a0001】 臣妾做不到"; txt.Text != want {
		t.Fatalf("caption = %q, want %q", txt.Text, want)
	}
	if txt.QuickReply == nil || len(txt.QuickReply.Items) != 3 {
		t.Fatalf("caption quick reply = %+v, want 3 nav items", txt.QuickReply)
	}
}

func TestNavQuickReplyGroupPrefix(t *testing.T) {
	t.Parallel()

	qr := NavQuickReply(true)
	for _, item := range qr.Items {
		action, ok := item.Action.(*messaging_api.MessageAction)
		if !ok {
			t.Fatalf("action = %T, want MessageAction", item.Action)
		}
		if !strings.HasPrefix(action.Text, "!") {
			t.Fatalf("group nav text = %q, want ! prefix", action.Text)
		}
	}

	for _, item := range NavQuickReply(false).Items {
		action := item.Action.(*messaging_api.MessageAction)
		if strings.HasPrefix(action.Text, "!") {
			t.Fatalf("private nav text = %q, want no prefix", action.Text)
		}
	}
}

func TestFormatListGroupIDsCarryPrefix(t *testing.T) {
	t.Parallel()

	list := bot.ShowList{
		Header: "找到以下符合關鍵字的圖片：",
		Entries: []catalog.Entry{
			{ID: "a0001", Name: "臣妾做不到"},
			{ID: "a0002", Name: "賤人就是矯情"},
		},
		Footer: "請輸入圖片編號來查看圖片。",
	}

	private := FormatList(list, false)
	if !strings.Contains(private, "【a0001】臣妾做不到") {
		t.Fatalf("private list = %q", private)
	}
	if strings.Contains(private, "【!a0001】") {
		t.Fatalf("private list = %q, must not carry prefix", private)
	}
	if !strings.HasSuffix(private, list.Footer) {
		t.Fatalf("private list = %q, want footer last", private)
	}

	group := FormatList(list, true)
	if !strings.Contains(group, "【!a0001】臣妾做不到") {
		t.Fatalf("group list = %q, want prefixed ids", group)
	}
}

func TestRenderCapsAtReplyLimit(t *testing.T) {
	t.Parallel()

	r := &Renderer{BaseURL: "https://example.com"}
	var actions []bot.Action
	for i := 0; i < 4; i++ {
		actions = append(actions, bot.ShowEntry{Entry: catalog.Entry{ID: "a0001", Path: "x.jpg"}})
	}

	if got := len(r.Render(actions, false)); got != 5 {
		t.Fatalf("Render() = %d messages, want capped at 5", got)
	}
}
