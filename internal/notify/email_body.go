package notify

import (
	"fmt"
	"html"
	"time"
)

const mailFooter = `<p style="color: #6b7280; font-size: 14px;">This is an automated message from AquaMon Monitoring Service.</p>`

func wrapMail(heading, color, boxBG, boxBorder, rows, trailer string) string {
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: %s;">%s</h2>
<div style="background-color: %s; border: 1px solid %s; border-radius: 8px; padding: 16px; margin: 16px 0;">
%s</div>
<p>%s</p>
%s</div>`, color, heading, boxBG, boxBorder, rows, trailer, mailFooter)
}

func row(label, value string) string {
	return fmt.Sprintf("<p><strong>%s:</strong> %s</p>\n", label, html.EscapeString(value))
}

func offlineSubject(ev Event) string {
	return fmt.Sprintf("🚨 AquaMon Alert: Device %s is Offline", ev.DeviceID)
}

func offlineBody(ev Event) string {
	rows := row("Aquarium", ev.UnitName) +
		row("Location", ev.Location) +
		row("Device ID", ev.DeviceID) +
		row("Reason", ev.Reason) +
		row("Time", ev.At.Format(time.RFC1123))
	return wrapMail("🚨 Device Offline Alert", "#dc2626", "#fef2f2", "#fecaca", rows,
		"Please check your device connection and ensure it's powered on.")
}

func recoverySubject(ev Event) string {
	return fmt.Sprintf("✅ AquaMon Recovery: Device %s is Back Online", ev.DeviceID)
}

func recoveryBody(ev Event) string {
	rows := row("Aquarium", ev.UnitName) +
		row("Location", ev.Location) +
		row("Device ID", ev.DeviceID) +
		row("Time", ev.At.Format(time.RFC1123))
	return wrapMail("✅ Device Recovery Alert", "#059669", "#f0fdf4", "#bbf7d0", rows,
		"Your device is now back online and sending data normally.")
}

func testSubject() string { return "🧪 AquaMon Test Notification" }

func testBody(at time.Time) string {
	rows := "<p>This is a test notification from AquaMon Monitoring Service.</p>\n" +
		row("Time", at.Format(time.RFC1123))
	return fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2 style="color: #3b82f6;">🧪 Test Notification</h2>
<div style="background-color: #eff6ff; border: 1px solid #bfdbfe; border-radius: 8px; padding: 16px; margin: 16px 0;">
%s</div>
<p>If you received this email, your notification system is working correctly!</p>
</div>`, rows)
}
