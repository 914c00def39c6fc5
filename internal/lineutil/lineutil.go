// Package lineutil renders dispatcher actions into LINE messaging API
// payloads. It owns everything LINE-specific about the outbound side:
// image URLs, captions, list formatting and navigation quick replies.
package lineutil

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/ray319129/czj/bot"
	"github.com/ray319129/czj/catalog"
)

// replyLimit is the hard cap the messaging API puts on one reply call.
const replyLimit = 5

// Renderer turns bot.Action values into LINE messages. BaseURL is the
// public https origin that serves the image tree (no trailing slash).
type Renderer struct {
	BaseURL string
}

// Render converts the dispatcher's actions for one event. isGroup switches
// the quick-reply texts and list ids to the prefixed command form.
func (r *Renderer) Render(actions []bot.Action, isGroup bool) []messaging_api.MessageInterface {
	var msgs []messaging_api.MessageInterface
	for _, a := range actions {
		switch act := a.(type) {
		case bot.ShowEntry:
			msgs = append(msgs, r.imageMessage(act.Entry), textMessage(Caption(act.Entry), act.WithNav, isGroup))
		case bot.ShowText:
			msgs = append(msgs, textMessage(act.Text, act.WithNav, isGroup))
		case bot.ShowList:
			msgs = append(msgs, textMessage(FormatList(act, isGroup), act.WithNav, isGroup))
		}
	}
	if len(msgs) > replyLimit {
		msgs = msgs[:replyLimit]
	}
	return msgs
}

func textMessage(text string, withNav, isGroup bool) messaging_api.MessageInterface {
	msg := &messaging_api.TextMessage{Text: text}
	if withNav {
		msg.QuickReply = NavQuickReply(isGroup)
	}
	return msg
}

func (r *Renderer) imageMessage(e catalog.Entry) messaging_api.MessageInterface {
	u := r.ImageURL(e)
	return &messaging_api.ImageMessage{
		OriginalContentUrl: u,
		PreviewImageUrl:    u,
	}
}

// ImageURL builds the public URL of an entry's image. Each path segment is
// escaped individually so the CJK file names survive the trip.
func (r *Renderer) ImageURL(e catalog.Entry) string {
	segments := strings.Split(e.Path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(r.BaseURL, "/") + "/images/" + strings.Join(segments, "/")
}

// Caption is the text shown under an entry's image.
func Caption(e catalog.Entry) string {
	return fmt.Sprintf("【%s】 %s", e.ID, e.Name)
}

// FormatList renders a ShowList as one text block. In group chats the id
// lines carry the command prefix so they can be copied back verbatim.
func FormatList(list bot.ShowList, isGroup bool) string {
	var sb strings.Builder
	sb.WriteString(list.Header)
	for _, e := range list.Entries {
		sb.WriteString("\n")
		if isGroup {
			sb.WriteString(fmt.Sprintf("【!%s】%s", e.ID, e.Name))
		} else {
			sb.WriteString(fmt.Sprintf("【%s】%s", e.ID, e.Name))
		}
	}
	if list.Footer != "" {
		sb.WriteString("\n\n")
		sb.WriteString(list.Footer)
	}
	return sb.String()
}

// NavQuickReply is the previous/next/menu row attached to navigable replies.
func NavQuickReply(isGroup bool) *messaging_api.QuickReply {
	prefix := ""
	if isGroup {
		prefix = "!"
	}
	return &messaging_api.QuickReply{
		Items: []messaging_api.QuickReplyItem{
			{Action: &messaging_api.MessageAction{Label: "上一張", Text: prefix + "上一張"}},
			{Action: &messaging_api.MessageAction{Label: "下一張", Text: prefix + "下一張"}},
			{Action: &messaging_api.MessageAction{Label: "Menu", Text: prefix + "menu"}},
		},
	}
}
