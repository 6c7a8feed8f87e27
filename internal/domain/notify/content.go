package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/vitalsignal/vitalsignal/internal/domain/emergency"
	"github.com/vitalsignal/vitalsignal/internal/domain/patient"
	"github.com/vitalsignal/vitalsignal/internal/domain/vitals"
)

// Disclaimer is part of every notification, on every channel. The system
// never contacts public emergency services on anyone's behalf.
const Disclaimer = "This alert was sent by an automated monitoring system. " +
	"It does NOT contact emergency services. If you cannot reach the patient, " +
	"call your local emergency services immediately."

// Content is the rendered notification for all channels.
type Content struct {
	Subject  string
	HTMLBody string
	TextBody string
	SMSText  string
}

// mapsLink builds a Google Maps deep link for the event coordinates.
func mapsLink(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", lat, lng)
}

// BuildContent renders the emergency notification from the event, the
// patient's display info, and an optional vitals snapshot.
func BuildContent(event *emergency.Event, p *patient.Patient, snap *vitals.Snapshot) Content {
	name := p.DisplayName()
	when := event.TriggeredAt.UTC().Format(time.RFC1123)

	var text strings.Builder
	fmt.Fprintf(&text, "EMERGENCY ALERT for %s\n", name)
	fmt.Fprintf(&text, "Triggered at: %s\n", when)

	if snap != nil && !snap.Empty() {
		text.WriteString("\nLatest vitals:\n")
		for _, line := range vitalsLines(snap) {
			fmt.Fprintf(&text, "  %s\n", line)
		}
	}

	if event.LocationConsented && event.LocationLat != nil && event.LocationLng != nil {
		text.WriteString("\nLast known location:\n")
		fmt.Fprintf(&text, "  %v, %v\n", *event.LocationLat, *event.LocationLng)
		fmt.Fprintf(&text, "  %s\n", mapsLink(*event.LocationLat, *event.LocationLng))
	}

	fmt.Fprintf(&text, "\n%s\n", Disclaimer)

	var sms strings.Builder
	fmt.Fprintf(&sms, "EMERGENCY: %s needs help (triggered %s).",
		name, event.TriggeredAt.UTC().Format("15:04 MST"))
	if event.LocationConsented && event.LocationLat != nil && event.LocationLng != nil {
		fmt.Fprintf(&sms, " Location: %s.", mapsLink(*event.LocationLat, *event.LocationLng))
	}
	sms.WriteString(" This system does not call emergency services; if you cannot reach them, call local emergency services.")

	return Content{
		Subject:  fmt.Sprintf("EMERGENCY ALERT: %s needs help", name),
		HTMLBody: buildHTML(event, name, when, snap),
		TextBody: text.String(),
		SMSText:  sms.String(),
	}
}

func buildHTML(event *emergency.Event, name, when string, snap *vitals.Snapshot) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family:sans-serif">`)
	fmt.Fprintf(&b, `<h2 style="color:#c0392b">Emergency Alert: %s</h2>`, name)
	fmt.Fprintf(&b, `<p>An emergency was triggered at <strong>%s</strong>.</p>`, when)

	if snap != nil && !snap.Empty() {
		b.WriteString(`<h3>Latest vitals</h3><ul>`)
		for _, line := range vitalsLines(snap) {
			fmt.Fprintf(&b, "<li>%s</li>", line)
		}
		b.WriteString(`</ul>`)
	}

	if event.LocationConsented && event.LocationLat != nil && event.LocationLng != nil {
		fmt.Fprintf(&b, `<h3>Last known location</h3><p><a href="%s">%v, %v</a></p>`,
			mapsLink(*event.LocationLat, *event.LocationLng), *event.LocationLat, *event.LocationLng)
	}

	fmt.Fprintf(&b, `<p style="color:#7f8c8d;font-size:12px">%s</p>`, Disclaimer)
	b.WriteString(`</div>`)
	return b.String()
}

func vitalsLines(s *vitals.Snapshot) []string {
	var lines []string
	if s.HeartRate != nil {
		lines = append(lines, fmt.Sprintf("Heart rate: %d bpm", *s.HeartRate))
	}
	if s.BloodPressureSys != nil && s.BloodPressureDia != nil {
		lines = append(lines, fmt.Sprintf("Blood pressure: %d/%d mmHg", *s.BloodPressureSys, *s.BloodPressureDia))
	}
	if s.OxygenSaturation != nil {
		lines = append(lines, fmt.Sprintf("Oxygen saturation: %d%%", *s.OxygenSaturation))
	}
	if s.Temperature != nil {
		lines = append(lines, fmt.Sprintf("Temperature: %.1f C", *s.Temperature))
	}
	if s.RespiratoryRate != nil {
		lines = append(lines, fmt.Sprintf("Respiratory rate: %d/min", *s.RespiratoryRate))
	}
	lines = append(lines, fmt.Sprintf("Recorded at: %s", s.RecordedAt.UTC().Format(time.RFC1123)))
	return lines
}
