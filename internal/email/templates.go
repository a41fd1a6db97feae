package email

import (
	"fmt"
	"strings"
)

// RentalItem represents a rented unit for email purposes
type RentalItem struct {
	UnitID    string
	Name      string
	DailyRate int
}

func itemRows(items []RentalItem) string {
	var rows strings.Builder
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = item.UnitID
		}
		rows.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">$%d/day</td>
			</tr>`,
			name,
			item.DailyRate,
		))
	}
	return rows.String()
}

func wrap(heading, inner string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">%s</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		%s
	</div>

	<p style="text-align: center; font-size: 12px; color: #999; margin-top: 20px;">
		This is an automated message. Please do not reply.
	</p>
</body>
</html>`, heading, inner)
}

// BuildCheckoutConfirmationBody builds the HTML body for checkout confirmation
func BuildCheckoutConfirmationBody(cartID string, items []RentalItem) string {
	inner := fmt.Sprintf(`<p style="margin-top: 0;">Thanks for your order. We are preparing your items for shipment.</p>

		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tbody>
				%s
			</tbody>
		</table>

		<p>You will get another email with tracking once your shipment is picked up.</p>`,
		cartID, itemRows(items))
	return wrap("Your order is confirmed", inner)
}

// BuildDeliveryNoticeBody builds the HTML body for the delivery notice
func BuildDeliveryNoticeBody(items []RentalItem) string {
	inner := fmt.Sprintf(`<p style="margin-top: 0;">Your rental was delivered today. Daily billing starts now and runs until we receive the items back.</p>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<tbody>
				%s
			</tbody>
		</table>

		<p>When you are done, start a return from your account and we will email you a prepaid label.</p>`,
		itemRows(items))
	return wrap("Delivered!", inner)
}

// BuildReturnReceivedBody builds the HTML body for the return receipt
func BuildReturnReceivedBody(productName string) string {
	inner := fmt.Sprintf(`<p style="margin-top: 0;">We received <strong>%s</strong> back at the warehouse. Billing for it has stopped.</p>

		<p>The item is headed to inspection and will rejoin the catalog shortly.</p>`,
		productName)
	return wrap("Return received", inner)
}
