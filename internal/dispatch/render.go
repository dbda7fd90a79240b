package dispatch

import (
	"fmt"
	"html"

	"github.com/protonrent/telegram-relay/internal/domain"
	"github.com/protonrent/telegram-relay/internal/messenger"
)

const (
	orderButtonText  = "📋 View order"
	legacyButtonText = "🔗 Open"
)

// render produces the message text and optional inline button for one
// delivery. Structured requests use a fixed HTML template; legacy requests
// carry their text verbatim.
func render(req *domain.DeliveryRequest) (string, *messenger.InlineButton) {
	if req.Order != nil {
		text := fmt.Sprintf(
			"🚛 <b>New equipment rental order</b>\n\n"+
				"📋 <b>Vehicle type:</b> %s\n"+
				"📍 <b>Location:</b> %s\n"+
				"📅 <b>Date and time:</b> %s\n"+
				"💰 <b>Price:</b> %s",
			html.EscapeString(req.Order.VehicleType),
			html.EscapeString(req.Order.Location),
			html.EscapeString(req.Order.DateTime),
			html.EscapeString(req.Order.Price),
		)
		if req.ActionURL == "" {
			return text, nil
		}
		text += "\n\nTap the button below to view the order details."
		return text, &messenger.InlineButton{Text: orderButtonText, URL: req.ActionURL}
	}

	if req.ActionURL != "" {
		return req.FreeText, &messenger.InlineButton{Text: legacyButtonText, URL: req.ActionURL}
	}
	return req.FreeText, nil
}
